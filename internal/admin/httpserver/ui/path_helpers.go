package ui

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	custommw "finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/templates/helpers"
)

func adminPath(r *http.Request, suffix string) string {
	return helpers.JoinPath(custommw.BasePathFromContext(r.Context()), suffix)
}

func basePath(r *http.Request) string {
	return custommw.BasePathFromContext(r.Context())
}

// idParam reads a positive integer route parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
