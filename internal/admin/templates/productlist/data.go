package productlist

import (
	"sort"
	"strconv"

	"finitefield.org/store-admin/internal/admin/catalog"
	"finitefield.org/store-admin/internal/admin/stores"
	"finitefield.org/store-admin/internal/admin/templates/helpers"
)

// PageData drives the product list page.
type PageData struct {
	StoreID   string
	StoreName string
	Stores    []StoreOption
	PickerURL string
	Panel     PanelData
}

// StoreOption is an entry of the store picker.
type StoreOption struct {
	ID       string
	Name     string
	Selected bool
}

// PanelData is the swappable part of the page: the rendered text or the error.
type PanelData struct {
	StoreID    string
	StoreName  string
	LoadID     string
	LoadedAt   string
	Text       string
	Brands     []BrandView
	Records    int
	Variants   int
	Error      string
	AutoLoad   bool
	RefreshURL string
	CopyURL    string
	ExportURL  string
	ArchiveURL string
	CanArchive bool
	CSRFToken  string
}

// BrandView lists the variants of one brand.
type BrandView struct {
	Brand    string
	Variants []VariantView
}

// VariantView is one bold product line with its flavors.
type VariantView struct {
	Header  string
	Flavors []string
}

// HasSnapshot reports whether a successful load is shown.
func (p PanelData) HasSnapshot() bool {
	return p.LoadID != ""
}

// BuildPanel converts the listing state for storeID into panel data. An error
// replaces any result, so the view never shows stale or partial text.
func BuildPanel(basePath, storeID, storeName string, state catalog.State, canArchive bool, csrf string) PanelData {
	query := "store=" + storeID
	panel := PanelData{
		StoreID:    storeID,
		StoreName:  storeName,
		RefreshURL: helpers.BuildURL(helpers.JoinPath(basePath, "/product-list/refresh"), query),
		CopyURL:    helpers.BuildURL(helpers.JoinPath(basePath, "/product-list/copy"), query),
		ExportURL:  helpers.BuildURL(helpers.JoinPath(basePath, "/product-list/export.txt"), query),
		ArchiveURL: helpers.BuildURL(helpers.JoinPath(basePath, "/product-list/archive"), query),
		CanArchive: canArchive,
		CSRFToken:  csrf,
	}

	switch {
	case state.Err != nil:
		panel.Error = catalog.UserMessage(state.Err)
	case state.Snapshot != nil:
		snap := state.Snapshot
		panel.LoadID = snap.LoadID
		panel.LoadedAt = helpers.Date(snap.LoadedAt, "02/01/2006 15:04:05")
		panel.Text = snap.Text
		panel.Records = len(snap.Records)
		panel.Variants = snap.Grouping.VariantCount()
		panel.Brands = brandViews(snap.Grouping)
		if snap.StoreName != "" {
			panel.StoreName = snap.StoreName
		}
	default:
		panel.AutoLoad = storeID != ""
	}
	return panel
}

// BuildStoreOptions marks the selected store in the picker.
func BuildStoreOptions(list []stores.Store, selectedID string) []StoreOption {
	options := make([]StoreOption, 0, len(list))
	for _, store := range list {
		id := strconv.FormatInt(store.ID, 10)
		options = append(options, StoreOption{ID: id, Name: store.Name, Selected: id == selectedID})
	}
	return options
}

func brandViews(g catalog.Grouping) []BrandView {
	views := make([]BrandView, 0, len(g.Brands))
	for _, brand := range g.Brands {
		view := BrandView{Brand: brand.Brand}
		for _, variant := range brand.Variants {
			flavors := append([]string(nil), variant.Flavors...)
			sort.Strings(flavors)
			view.Variants = append(view.Variants, VariantView{
				Header:  catalog.VariantHeader(variant),
				Flavors: flavors,
			})
		}
		views = append(views, view)
	}
	return views
}
