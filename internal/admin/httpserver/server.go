package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/catalog"
	"finitefield.org/store-admin/internal/admin/exports"
	custommw "finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/httpserver/ui"
	"finitefield.org/store-admin/internal/admin/observability"
	"finitefield.org/store-admin/internal/admin/rbac"
	appsession "finitefield.org/store-admin/internal/admin/session"
	"finitefield.org/store-admin/internal/admin/stores"
	"finitefield.org/store-admin/public"
)

const defaultRequestTimeout = 60 * time.Second

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address          string
	BasePath         string
	Environment      string
	Authenticator    custommw.Authenticator
	CSRFCookieName   string
	CSRFCookiePath   string
	CSRFCookieSecure bool
	CSRFHeaderName   string
	// Session stores the signed session cookie. A manager with ephemeral
	// keys is created when nil.
	Session        custommw.SessionStore
	Logger         *zap.Logger
	Stores         stores.Service
	Catalog        *catalog.Registry
	Archiver       exports.Archiver
	RequestTimeout time.Duration
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NoopLogger()
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.RequestLogger(logger))
	router.Use(observability.Recoverer)
	router.Use(chimw.Timeout(timeout))

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("embed static: %w", err)
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))

	basePath := normalizeBasePath(cfg.BasePath)
	loginPath := resolveLoginPath(basePath)

	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = custommw.DevAuthenticator()
	}

	sessions := cfg.Session
	if sessions == nil {
		manager, err := appsession.NewManager(appsession.Config{
			HashKey:      securecookie.GenerateRandomKey(32),
			BlockKey:     securecookie.GenerateRandomKey(32),
			CookiePath:   basePath,
			CookieSecure: cfg.CSRFCookieSecure,
		})
		if err != nil {
			return nil, fmt.Errorf("session manager: %w", err)
		}
		logger.Warn("session keys not configured; using ephemeral keys")
		sessions = manager
	}

	csrfCfg := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		CookiePath: firstNonEmpty(cfg.CSRFCookiePath, basePath),
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
	}

	handlers := ui.NewHandlers(ui.Dependencies{
		Stores:   cfg.Stores,
		Catalog:  cfg.Catalog,
		Archiver: cfg.Archiver,
	})

	mountAdminRoutes(router, basePath, routeOptions{
		Authenticator: authenticator,
		LoginPath:     loginPath,
		Environment:   cfg.Environment,
		CSRF:          csrfCfg,
		Session:       sessions,
		Handlers:      handlers,
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      otelhttp.NewHandler(router, "store-admin"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}

type routeOptions struct {
	Authenticator custommw.Authenticator
	LoginPath     string
	Environment   string
	CSRF          custommw.CSRFConfig
	Session       custommw.SessionStore
	Handlers      *ui.Handlers
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	h := opts.Handlers
	login := newLoginHandlers(opts.Authenticator, base, opts.LoginPath)
	login.onLogout = h.ForgetUser

	if base != "/" {
		router.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, base, http.StatusFound)
		})
	}

	router.Route(base, func(r chi.Router) {
		r.Use(custommw.RequestInfoMiddleware(base, opts.Environment))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Session))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get("/login", login.Show)
		r.Post("/login", login.Submit)

		r.Group(func(r chi.Router) {
			r.Use(custommw.Auth(opts.Authenticator, opts.LoginPath))

			r.Post("/logout", login.Logout)
			r.Get("/", h.Home)

			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireCapability(rbac.CapStoresView))
				r.Get("/stores", h.StoresPage)
				r.Get("/stores/{storeID}/products", h.StoreProductsPage)
				r.Post("/stores/{storeID}/select", h.StoreSelect)
			})

			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireCapability(rbac.CapStoresManage))
				r.Get("/stores/new", h.StoreNew)
				r.Post("/stores", h.StoreCreate)
				r.Get("/stores/{storeID}/edit", h.StoreEdit)
				r.Post("/stores/{storeID}", h.StoreUpdate)
				r.Post("/stores/{storeID}/delete", h.StoreDelete)
			})

			r.With(custommw.RequireCapability(rbac.CapInventoryManage)).
				Post("/stores/{storeID}/products/{stockID}", h.StoreProductUpdate)

			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireCapability(rbac.CapProductListView))
				r.Get("/product-list", h.ProductListPage)
				r.Post("/product-list/refresh", h.ProductListRefresh)
				r.Post("/product-list/copy", h.ProductListCopy)
				r.Get("/product-list/export.txt", h.ProductListExport)
				r.Post("/product-list/archive", h.ProductListArchive)
			})
		})
	})
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	return custommw.NormaliseBasePath(p)
}

func resolveLoginPath(base string) string {
	if base == "/" {
		return "/login"
	}
	return base + "/login"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
