package ui

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/catalog"
	custommw "finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/observability"
	"finitefield.org/store-admin/internal/admin/rbac"
	"finitefield.org/store-admin/internal/admin/stores"
	"finitefield.org/store-admin/internal/admin/templates/helpers"
	storestpl "finitefield.org/store-admin/internal/admin/templates/stores"
)

// StoreProductsPage renders the stock and pricing table of a store.
func (h *Handlers) StoreProductsPage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	storeID, ok := idParam(r, "storeID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.renderProductsPage(w, r, user, storeID, nil, http.StatusOK)
}

func (h *Handlers) renderProductsPage(w http.ResponseWriter, r *http.Request, user *custommw.User, storeID int64, override *storestpl.StockRowData, status int) {
	ctx := r.Context()

	store, err := h.stores.Get(ctx, user.Token, storeID)
	if err != nil {
		h.storeLookupFailed(w, r, err)
		return
	}

	query := stores.ProductQuery{Page: parsePage(r.URL.Query().Get("page"))}
	page, err := h.stores.ListProducts(ctx, user.Token, storeID, query)
	errMsg := ""
	if err != nil {
		observability.FromContext(ctx).Error("stores: list products failed", zap.Int64("store_id", storeID), zap.Error(err))
		errMsg = "Não foi possível carregar os produtos da loja. Tente novamente em instantes."
		page = stores.ProductPage{StoreID: storeID}
	}

	canEdit := helpers.Can(ctx, rbac.CapInventoryManage)
	data := storestpl.BuildProductsPageData(basePath(r), r.URL.RawQuery, store, page, canEdit, custommw.CSRFTokenFromContext(ctx))
	data.Error = errMsg
	if override != nil {
		for i := range data.Rows {
			if data.Rows[i].ID == override.ID {
				data.Rows[i] = *override
			}
		}
	}
	templ.Handler(storestpl.ProductsPage(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

// StoreProductUpdate saves one stock row and answers with the re-rendered
// row. Validation messages are shown inline on the row.
func (h *Handlers) StoreProductUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	storeID, ok := idParam(r, "storeID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	stockID, ok := idParam(r, "stockID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Não foi possível ler o formulário.", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	logger := observability.FromContext(ctx).With(zap.Int64("store_id", storeID), zap.Int64("stock_id", stockID))
	csrf := custommw.CSRFTokenFromContext(ctx)

	input := stores.StockInput{
		Active:        parseCheckbox(r.PostFormValue("active")),
		StockQuantity: r.PostFormValue("stockQuantity"),
		CostPrice:     r.PostFormValue("costPrice"),
		SalePrice:     r.PostFormValue("salePrice"),
	}

	record, err := h.stores.UpdateProduct(ctx, user.Token, storeID, stockID, input)
	if err == nil {
		logger.Info("stock updated", zap.Bool("eligible", record.Eligible()))
		if !custommw.IsHTMXRequest(ctx) {
			http.Redirect(w, r, adminPath(r, fmt.Sprintf("/stores/%d/products", storeID)), http.StatusSeeOther)
			return
		}
		row := storestpl.StockRowFromRecord(basePath(r), storeID, record, true, csrf)
		row.Message = "Salvo."
		templ.Handler(storestpl.StockRow(row)).ServeHTTP(w, r)
		return
	}

	switch {
	case errors.Is(err, stores.ErrStoreNotFound), errors.Is(err, stores.ErrStockNotFound):
		http.NotFound(w, r)
		return
	}

	var verr *stores.ValidationError
	if !errors.As(err, &verr) {
		logger.Error("stores: update product failed", zap.Error(err))
		if custommw.IsHTMXRequest(ctx) {
			custommw.Toast(w, "Não foi possível salvar o produto. Tente novamente.", "danger")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, "Não foi possível salvar o produto. Tente novamente.", http.StatusBadGateway)
		return
	}

	current, lookupErr := h.stores.GetProduct(ctx, user.Token, storeID, stockID)
	if lookupErr != nil {
		logger.Warn("stores: reload product failed", zap.Error(lookupErr))
		current = catalog.StockRecord{ID: stockID, StoreID: storeID}
	}
	row := storestpl.StockRowFromRecord(basePath(r), storeID, current, true, csrf).WithInput(input, verr.Fields)

	if !custommw.IsHTMXRequest(ctx) {
		h.renderProductsPage(w, r, user, storeID, &row, http.StatusUnprocessableEntity)
		return
	}
	templ.Handler(storestpl.StockRow(row)).ServeHTTP(w, r)
}
