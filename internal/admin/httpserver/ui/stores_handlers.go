package ui

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/observability"
	"finitefield.org/store-admin/internal/admin/rbac"
	"finitefield.org/store-admin/internal/admin/stores"
	"finitefield.org/store-admin/internal/admin/templates/helpers"
	storestpl "finitefield.org/store-admin/internal/admin/templates/stores"
)

// StoresPage renders the searchable store index.
func (h *Handlers) StoresPage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	params := r.URL.Query()
	query := stores.Query{
		Search: strings.TrimSpace(params.Get("q")),
		Page:   parsePage(params.Get("page")),
	}

	result, err := h.stores.List(ctx, user.Token, query)
	errMsg := ""
	if err != nil {
		observability.FromContext(ctx).Error("stores: list failed", zap.Error(err))
		errMsg = "Não foi possível carregar as lojas. Tente novamente em instantes."
		result = stores.ListResult{}
	}

	selectedID := ""
	if sess, ok := custommw.SessionFromContext(ctx); ok {
		if sel, ok := sess.Store(); ok {
			selectedID = sel.ID
		}
	}

	data := storestpl.BuildListPageData(basePath(r), r.URL.RawQuery, query, result, selectedID, helpers.Can(ctx, rbac.CapStoresManage))
	data.CSRFToken = custommw.CSRFTokenFromContext(ctx)
	data.Error = errMsg
	data.Flash = storeFlash(params.Get("status"))

	if custommw.HTMXInfoFromContext(ctx).WantsFragment() {
		templ.Handler(storestpl.ListBody(data)).ServeHTTP(w, r)
		return
	}
	templ.Handler(storestpl.ListPage(data)).ServeHTTP(w, r)
}

// StoreNew renders the empty create form.
func (h *Handlers) StoreNew(w http.ResponseWriter, r *http.Request) {
	data := storestpl.NewFormData(basePath(r))
	data.CSRFToken = custommw.CSRFTokenFromContext(r.Context())
	templ.Handler(storestpl.FormPage(data)).ServeHTTP(w, r)
}

// StoreCreate validates and registers a new store.
func (h *Handlers) StoreCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	data := storestpl.NewFormData(basePath(r))
	data.CSRFToken = custommw.CSRFTokenFromContext(r.Context())

	input, ok := h.parseStoreForm(w, r, data)
	if !ok {
		return
	}
	data.Input = input

	if _, err := h.stores.Create(r.Context(), user.Token, input); err != nil {
		h.renderStoreFormError(w, r, data, err, "stores: create failed")
		return
	}

	h.redirectAfterPost(w, r, adminPath(r, "/stores?status=created"))
}

// StoreEdit renders the edit form of an existing store.
func (h *Handlers) StoreEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "storeID")
	if !ok {
		http.NotFound(w, r)
		return
	}

	store, err := h.stores.Get(r.Context(), user.Token, id)
	if err != nil {
		h.storeLookupFailed(w, r, err)
		return
	}

	data := storestpl.EditFormData(basePath(r), store)
	data.CSRFToken = custommw.CSRFTokenFromContext(r.Context())
	templ.Handler(storestpl.FormPage(data)).ServeHTTP(w, r)
}

// StoreUpdate validates and saves the edit form.
func (h *Handlers) StoreUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "storeID")
	if !ok {
		http.NotFound(w, r)
		return
	}

	data := storestpl.EditFormData(basePath(r), stores.Store{ID: id})
	data.Title = "Editar loja"
	data.CSRFToken = custommw.CSRFTokenFromContext(r.Context())

	input, ok := h.parseStoreForm(w, r, data)
	if !ok {
		return
	}
	data.Input = input

	updated, err := h.stores.Update(r.Context(), user.Token, id, input)
	if err != nil {
		if errors.Is(err, stores.ErrStoreNotFound) {
			http.NotFound(w, r)
			return
		}
		h.renderStoreFormError(w, r, data, err, "stores: update failed")
		return
	}

	// Keep the product list label in sync with a renamed store.
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if sel, ok := sess.Store(); ok && sel.ID == strconv.FormatInt(updated.ID, 10) {
			sess.SelectStore(sel.ID, updated.Name)
		}
	}

	h.redirectAfterPost(w, r, adminPath(r, "/stores?status=updated"))
}

// StoreDelete removes a store.
func (h *Handlers) StoreDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "storeID")
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := h.stores.Delete(r.Context(), user.Token, id); err != nil {
		if errors.Is(err, stores.ErrStoreNotFound) {
			http.NotFound(w, r)
			return
		}
		observability.FromContext(r.Context()).Error("stores: delete failed", zap.Int64("store_id", id), zap.Error(err))
		http.Error(w, "Não foi possível excluir a loja. Tente novamente.", http.StatusBadGateway)
		return
	}

	storeID := strconv.FormatInt(id, 10)
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if sel, ok := sess.Store(); ok && sel.ID == storeID {
			sess.ClearStore()
		}
	}
	h.catalog.Forget(listingKey(user, storeID))

	h.redirectAfterPost(w, r, adminPath(r, "/stores?status=deleted"))
}

// StoreSelect remembers the store used by the product list.
func (h *Handlers) StoreSelect(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "storeID")
	if !ok {
		http.NotFound(w, r)
		return
	}

	store, err := h.stores.Get(r.Context(), user.Token, id)
	if err != nil {
		h.storeLookupFailed(w, r, err)
		return
	}

	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.SelectStore(strconv.FormatInt(store.ID, 10), store.Name)
	}
	observability.FromContext(r.Context()).Info("store selected", zap.Int64("store_id", store.ID))

	h.redirectAfterPost(w, r, adminPath(r, "/product-list"))
}

func (h *Handlers) parseStoreForm(w http.ResponseWriter, r *http.Request, data storestpl.FormPageData) (stores.StoreInput, bool) {
	if err := r.ParseForm(); err != nil {
		data.Error = "Não foi possível ler o formulário. Tente novamente."
		templ.Handler(storestpl.FormPage(data), templ.WithStatus(http.StatusBadRequest)).ServeHTTP(w, r)
		return stores.StoreInput{}, false
	}

	input := stores.StoreInput{
		Name:    r.PostFormValue("name"),
		City:    r.PostFormValue("city"),
		Address: r.PostFormValue("address"),
		Phone:   r.PostFormValue("phone"),
		Active:  parseCheckbox(r.PostFormValue("isActive")),
	}
	normalized, err := input.Normalize()
	if err != nil {
		data.Input = input
		h.renderStoreFormError(w, r, data, err, "")
		return stores.StoreInput{}, false
	}
	return normalized, true
}

func (h *Handlers) renderStoreFormError(w http.ResponseWriter, r *http.Request, data storestpl.FormPageData, err error, logMsg string) {
	var verr *stores.ValidationError
	if errors.As(err, &verr) {
		data.Errors = verr.Fields
		templ.Handler(storestpl.FormPage(data), templ.WithStatus(http.StatusUnprocessableEntity)).ServeHTTP(w, r)
		return
	}
	if logMsg != "" {
		observability.FromContext(r.Context()).Error(logMsg, zap.Error(err))
	}
	data.Error = "Não foi possível salvar a loja. Tente novamente em instantes."
	templ.Handler(storestpl.FormPage(data), templ.WithStatus(http.StatusBadGateway)).ServeHTTP(w, r)
}

func (h *Handlers) storeLookupFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, stores.ErrStoreNotFound) {
		http.NotFound(w, r)
		return
	}
	observability.FromContext(r.Context()).Error("stores: get failed", zap.Error(err))
	http.Error(w, "Não foi possível carregar a loja. Tente novamente.", http.StatusBadGateway)
}

func (h *Handlers) redirectAfterPost(w http.ResponseWriter, r *http.Request, target string) {
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func storeFlash(status string) string {
	switch status {
	case "created":
		return "Loja criada."
	case "updated":
		return "Loja atualizada."
	case "deleted":
		return "Loja excluída."
	default:
		return ""
	}
}
