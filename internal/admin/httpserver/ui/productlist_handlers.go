package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/catalog"
	"finitefield.org/store-admin/internal/admin/clipboard"
	"finitefield.org/store-admin/internal/admin/exports"
	custommw "finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/observability"
	"finitefield.org/store-admin/internal/admin/stores"
	productlisttpl "finitefield.org/store-admin/internal/admin/templates/productlist"
)

const pickerPageSize = 100

// ProductListPage renders the product list screen for the requested or
// selected store. The panel loads itself on first view.
func (h *Handlers) ProductListPage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	storeID, storeName := h.resolveStore(r, user, true)

	picker, err := h.stores.List(ctx, user.Token, stores.Query{PerPage: pickerPageSize})
	if err != nil {
		observability.FromContext(ctx).Warn("product list: store picker unavailable", zap.Error(err))
	}

	data := productlisttpl.PageData{
		StoreID:   storeID,
		StoreName: storeName,
		Stores:    productlisttpl.BuildStoreOptions(picker.Stores, storeID),
		PickerURL: adminPath(r, "/product-list"),
	}
	if storeID != "" {
		data.Panel = h.panel(r, user, storeID, storeName)
	}
	templ.Handler(productlisttpl.Page(data)).ServeHTTP(w, r)
}

// ProductListRefresh re-runs the fetch, aggregate and render pipeline and
// answers with the refreshed panel. A request overtaken by a newer refresh
// answers 204 so the newer response owns the panel.
func (h *Handlers) ProductListRefresh(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	storeID, storeName := h.resolveStore(r, user, false)

	listing := h.catalog.Get(listingKey(user, storeID))
	if _, err := listing.Refresh(r.Context(), user.Token, storeID, storeName); errors.Is(err, catalog.ErrSuperseded) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	templ.Handler(productlisttpl.Panel(h.panel(r, user, storeID, storeName))).ServeHTTP(w, r)
}

// ProductListCopy records a copy of the loaded text and returns it as the
// response body so the browser can place it on the clipboard.
func (h *Handlers) ProductListCopy(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	storeID, _ := h.resolveStore(r, user, false)

	listing := h.catalog.Get(listingKey(user, storeID))
	err := listing.CopyToClipboard(r.Context(), responseClipboard{w: w})
	switch {
	case err == nil:
		observability.FromContext(r.Context()).Info("product list copied", zap.String("store_id", storeID))
	case errors.Is(err, catalog.ErrNothingLoaded):
		custommw.Toast(w, "Gere a lista antes de copiar.", "warning")
		w.WriteHeader(http.StatusConflict)
	default:
		custommw.Toast(w, "Não foi possível copiar a lista.", "danger")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// ProductListExport downloads the loaded text as a .txt file.
func (h *Handlers) ProductListExport(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	storeID, _ := h.resolveStore(r, user, false)

	text, ok := h.catalog.Get(listingKey(user, storeID)).Text()
	if !ok {
		http.Error(w, "Nenhuma lista gerada para esta loja.", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="lista-produtos-%s.txt"`, safeFileSegment(storeID)))
	_, _ = io.WriteString(w, text)
}

// ProductListArchive stores the loaded text in the exports bucket.
func (h *Handlers) ProductListArchive(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	storeID, _ := h.resolveStore(r, user, false)
	logger := observability.FromContext(r.Context()).With(zap.String("store_id", storeID))

	state := h.catalog.Get(listingKey(user, storeID)).State()
	if state.Snapshot == nil {
		custommw.Toast(w, "Gere a lista antes de arquivar.", "warning")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if h.archiver == nil {
		custommw.Toast(w, "O arquivamento não está configurado.", "warning")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	snap := state.Snapshot
	receipt, err := h.archiver.Archive(r.Context(), exports.Entry{
		StoreID:   snap.StoreID,
		StoreName: snap.StoreName,
		LoadID:    snap.LoadID,
		Actor:     user.Email,
		Text:      snap.Text,
		CreatedAt: h.now(),
	})
	switch {
	case err == nil:
		logger.Info("product list archived", zap.String("object", receipt.Object), zap.Int("bytes", receipt.Size))
		custommw.Toast(w, "Lista arquivada.", "success")
	case errors.Is(err, exports.ErrNotConfigured):
		custommw.Toast(w, "O arquivamento não está configurado.", "warning")
	default:
		logger.Error("product list archive failed", zap.Error(err))
		custommw.Toast(w, "Não foi possível arquivar a lista.", "danger")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) panel(r *http.Request, user *custommw.User, storeID, storeName string) productlisttpl.PanelData {
	state := h.catalog.Get(listingKey(user, storeID)).State()
	return productlisttpl.BuildPanel(basePath(r), storeID, storeName, state, h.archiver != nil, custommw.CSRFTokenFromContext(r.Context()))
}

// resolveStore picks the store from the query string, falling back to the
// session selection. When remember is set, a store opened via the query
// string becomes the session selection.
func (h *Handlers) resolveStore(r *http.Request, user *custommw.User, remember bool) (string, string) {
	ctx := r.Context()
	sess, _ := custommw.SessionFromContext(ctx)

	requested := strings.TrimSpace(r.URL.Query().Get("store"))
	if requested == "" {
		if sess != nil {
			if sel, ok := sess.Store(); ok {
				return sel.ID, sel.Name
			}
		}
		return "", ""
	}

	if sess != nil {
		if sel, ok := sess.Store(); ok && sel.ID == requested && sel.Name != "" {
			return sel.ID, sel.Name
		}
	}

	id, err := catalog.ParseStoreID(requested)
	if err != nil {
		return requested, ""
	}
	store, err := h.stores.Get(ctx, user.Token, id)
	if err != nil {
		if !errors.Is(err, stores.ErrStoreNotFound) {
			observability.FromContext(ctx).Warn("product list: store lookup failed", zap.Int64("store_id", id), zap.Error(err))
		}
		return requested, ""
	}
	if remember && sess != nil {
		sess.SelectStore(requested, store.Name)
	}
	return requested, store.Name
}

func listingKey(user *custommw.User, storeID string) string {
	return catalog.ListingKey(user.UID, storeID)
}

func safeFileSegment(storeID string) string {
	if id, err := strconv.ParseInt(storeID, 10, 64); err == nil && id > 0 {
		return strconv.FormatInt(id, 10)
	}
	return "loja"
}

// responseClipboard hands the exported text to the browser, which writes it
// to the user's clipboard.
type responseClipboard struct {
	w http.ResponseWriter
}

func (c responseClipboard) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return &clipboard.Error{Err: err}
	}
	c.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(c.w, text); err != nil {
		return &clipboard.Error{Err: err}
	}
	return nil
}
