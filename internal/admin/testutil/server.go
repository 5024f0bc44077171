package testutil

import (
	"net/http/httptest"
	"testing"

	"finitefield.org/store-admin/internal/admin/catalog"
	"finitefield.org/store-admin/internal/admin/exports"
	"finitefield.org/store-admin/internal/admin/httpserver"
	"finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/stores"
)

// CSRFCookieName is the CSRF cookie configured by NewServer.
const CSRFCookieName = "csrf_token"

// ServerOption adjusts the admin configuration before the server starts.
type ServerOption func(*httpserver.Config)

// WithAuthenticator replaces the development authenticator.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) { cfg.Authenticator = auth }
}

// WithBasePath mounts the admin below path.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) { cfg.BasePath = path }
}

// WithStoresService swaps the in-memory store fixtures.
func WithStoresService(service stores.Service) ServerOption {
	return func(cfg *httpserver.Config) { cfg.Stores = service }
}

// WithCatalog supplies a product list registry. By default the server builds
// one over the stores service.
func WithCatalog(registry *catalog.Registry) ServerOption {
	return func(cfg *httpserver.Config) { cfg.Catalog = registry }
}

// WithArchiver turns on the archive action.
func WithArchiver(archiver exports.Archiver) ServerOption {
	return func(cfg *httpserver.Config) { cfg.Archiver = archiver }
}

// WithEnvironment labels the deployment shown in the top bar.
func WithEnvironment(env string) ServerOption {
	return func(cfg *httpserver.Config) { cfg.Environment = env }
}

// NewServer starts the admin over the static store fixtures and closes it
// when the test ends.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	cfg := httpserver.Config{
		Address:        "127.0.0.1:0",
		BasePath:       "/admin",
		CSRFCookieName: CSRFCookieName,
		Authenticator:  middleware.DevAuthenticator(),
		Stores:         stores.NewStaticService(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("start admin: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}
