package stores

import (
	"fmt"
	"strconv"

	"finitefield.org/store-admin/internal/admin/catalog"
	"finitefield.org/store-admin/internal/admin/stores"
	"finitefield.org/store-admin/internal/admin/templates/helpers"
	"finitefield.org/store-admin/internal/admin/templates/partials"
)

// ListPageData drives the store index.
type ListPageData struct {
	Query      string
	Rows       []StoreRow
	Pagination partials.PaginationProps
	CanManage  bool
	SelectedID string
	CSRFToken  string
	Error      string
	Flash      string
	NewURL     string
	SearchURL  string
}

// StoreRow is one line of the store table.
type StoreRow struct {
	ID           string
	Name         string
	NameSegments []helpers.HighlightSegment
	City         string
	StatusLabel  string
	StatusTone   string
	Products     int
	UpdatedAt    string
	EditURL      string
	ProductsURL  string
	SelectURL    string
	DeleteURL    string
	Selected     bool
}

// FormPageData drives the create and edit forms.
type FormPageData struct {
	Title     string
	Action    string
	Input     stores.StoreInput
	Errors    map[string]string
	Error     string
	CSRFToken string
	CancelURL string
	IsEdit    bool
}

// ProductsPageData drives the stock table of one store.
type ProductsPageData struct {
	StoreID        string
	StoreName      string
	StoreCity      string
	Rows           []StockRowData
	Pagination     partials.PaginationProps
	CanEdit        bool
	CSRFToken      string
	Error          string
	ProductListURL string
	SelectURL      string
	BackURL        string
}

// StockRowData is one editable stock line.
type StockRowData struct {
	ID            string
	Brand         string
	Name          string
	Flavor        string
	Active        bool
	Eligible      bool
	StockQuantity string
	CostPrice     string
	SalePrice     string
	SaleDisplay   string
	UpdateURL     string
	Editable      bool
	CSRFToken     string
	Errors        map[string]string
	Message       string
}

// BuildListPageData converts a stores page into table rows.
func BuildListPageData(basePath, rawQuery string, query stores.Query, result stores.ListResult, selectedID string, canManage bool) ListPageData {
	listURL := helpers.JoinPath(basePath, "/stores")
	data := ListPageData{
		Query:      query.Search,
		CanManage:  canManage,
		SelectedID: selectedID,
		NewURL:     helpers.JoinPath(basePath, "/stores/new"),
		SearchURL:  listURL,
	}

	for _, store := range result.Stores {
		id := strconv.FormatInt(store.ID, 10)
		label, tone := storeStatus(store.Active)
		data.Rows = append(data.Rows, StoreRow{
			ID:           id,
			Name:         store.Name,
			NameSegments: helpers.HighlightSegments(store.Name, query.Search),
			City:         store.City,
			StatusLabel:  label,
			StatusTone:   tone,
			Products:     store.Products,
			UpdatedAt:    helpers.Date(store.UpdatedAt, ""),
			EditURL:      helpers.JoinPath(basePath, "/stores/"+id+"/edit"),
			ProductsURL:  helpers.JoinPath(basePath, "/stores/"+id+"/products"),
			SelectURL:    helpers.JoinPath(basePath, "/stores/"+id+"/select"),
			DeleteURL:    helpers.JoinPath(basePath, "/stores/"+id+"/delete"),
			Selected:     id == selectedID,
		})
	}

	data.Pagination = pagination(listURL, rawQuery, result.Pagination)
	return data
}

// NewFormData prepares an empty create form.
func NewFormData(basePath string) FormPageData {
	return FormPageData{
		Title:     "Nova loja",
		Action:    helpers.JoinPath(basePath, "/stores"),
		Input:     stores.StoreInput{Active: true},
		CancelURL: helpers.JoinPath(basePath, "/stores"),
	}
}

// EditFormData prepares the edit form of store.
func EditFormData(basePath string, store stores.Store) FormPageData {
	id := strconv.FormatInt(store.ID, 10)
	return FormPageData{
		Title:  "Editar " + store.Name,
		Action: helpers.JoinPath(basePath, "/stores/"+id),
		Input: stores.StoreInput{
			Name:    store.Name,
			City:    store.City,
			Address: store.Address,
			Phone:   store.Phone,
			Active:  store.Active,
		},
		CancelURL: helpers.JoinPath(basePath, "/stores"),
		IsEdit:    true,
	}
}

// BuildProductsPageData converts a stock page into editable rows.
func BuildProductsPageData(basePath, rawQuery string, store stores.Store, page stores.ProductPage, canEdit bool, csrf string) ProductsPageData {
	id := strconv.FormatInt(store.ID, 10)
	productsURL := helpers.JoinPath(basePath, "/stores/"+id+"/products")
	data := ProductsPageData{
		StoreID:        id,
		StoreName:      store.Name,
		StoreCity:      store.City,
		CanEdit:        canEdit,
		CSRFToken:      csrf,
		ProductListURL: helpers.BuildURL(helpers.JoinPath(basePath, "/product-list"), "store="+id),
		SelectURL:      helpers.JoinPath(basePath, "/stores/"+id+"/select"),
		BackURL:        helpers.JoinPath(basePath, "/stores"),
		Pagination:     pagination(productsURL, rawQuery, page.Pagination),
	}
	for _, rec := range page.Items {
		data.Rows = append(data.Rows, StockRowFromRecord(basePath, store.ID, rec, canEdit, csrf))
	}
	return data
}

// StockRowFromRecord builds the row for rec.
func StockRowFromRecord(basePath string, storeID int64, rec catalog.StockRecord, editable bool, csrf string) StockRowData {
	row := StockRowData{
		ID:            strconv.FormatInt(rec.ID, 10),
		Active:        rec.Active,
		Eligible:      rec.Eligible(),
		StockQuantity: strconv.FormatInt(rec.StockQuantity, 10),
		SalePrice:     inputPrice(rec.SalePrice),
		CostPrice:     inputPrice(rec.CostPrice),
		SaleDisplay:   helpers.Money(rec.SalePrice),
		UpdateURL:     helpers.JoinPath(basePath, fmt.Sprintf("/stores/%d/products/%d", storeID, rec.ID)),
		Editable:      editable,
		CSRFToken:     csrf,
	}
	if rec.Product != nil {
		row.Brand = rec.Product.Brand
		row.Name = rec.Product.Name
		row.Flavor = rec.Product.Flavor
	} else {
		row.Name = "Produto removido"
	}
	return row
}

// WithInput overlays the submitted form values and validation messages on row.
func (row StockRowData) WithInput(input stores.StockInput, errs map[string]string) StockRowData {
	row.Active = input.Active
	row.StockQuantity = input.StockQuantity
	row.CostPrice = input.CostPrice
	row.SalePrice = input.SalePrice
	row.Errors = errs
	return row
}

func inputPrice(price string) string {
	if price == "" {
		return ""
	}
	return catalog.FormatPrice(price)
}

func storeStatus(active bool) (string, string) {
	if active {
		return "Ativa", "success"
	}
	return "Inativa", "warning"
}

func pagination(path, rawQuery string, p stores.Pagination) partials.PaginationProps {
	props := partials.PaginationProps{
		Page:     p.Page,
		LastPage: p.LastPage,
		Total:    p.Total,
	}
	if p.HasPrev() {
		props.PrevURL = helpers.BuildURL(path, helpers.SetRawQuery(rawQuery, "page", strconv.Itoa(p.Page-1)))
	}
	if p.HasNext() {
		props.NextURL = helpers.BuildURL(path, helpers.SetRawQuery(rawQuery, "page", strconv.Itoa(p.Page+1)))
	}
	return props
}
