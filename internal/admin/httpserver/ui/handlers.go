package ui

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"finitefield.org/store-admin/internal/admin/catalog"
	"finitefield.org/store-admin/internal/admin/exports"
	custommw "finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/stores"
)

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	Stores   stores.Service
	Catalog  *catalog.Registry
	Archiver exports.Archiver
	Now      func() time.Time
}

// Handlers exposes HTTP handlers for admin UI pages and fragments.
type Handlers struct {
	stores   stores.Service
	catalog  *catalog.Registry
	archiver exports.Archiver
	now      func() time.Time
}

// NewHandlers wires the UI handler set. Missing dependencies fall back to the
// in-memory store service and a listing registry reading from it.
func NewHandlers(deps Dependencies) *Handlers {
	service := deps.Stores
	if service == nil {
		service = stores.NewStaticService()
	}
	registry := deps.Catalog
	if registry == nil {
		source, ok := service.(catalog.PageSource)
		if !ok {
			source = stores.NewStaticService()
		}
		fetcher := catalog.NewFetcher(source)
		registry = catalog.NewRegistry(func() *catalog.Listing {
			return catalog.NewListing(catalog.ListingDeps{Loader: fetcher})
		})
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		stores:   service,
		catalog:  registry,
		archiver: deps.Archiver,
		now:      now,
	}
}

// Home redirects the admin root to the store index.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, adminPath(r, "/stores"), http.StatusFound)
}

func currentUser(w http.ResponseWriter, r *http.Request) (*custommw.User, bool) {
	user, ok := custommw.UserFromContext(r.Context())
	if !ok || user == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}
	return user, true
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parseCheckbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

// ForgetUser drops the product listings held for a staff member, so a signed
// out session leaves no snapshots behind.
func (h *Handlers) ForgetUser(uid string) {
	h.catalog.ForgetOwner(uid)
}
