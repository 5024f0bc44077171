package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/catalog"
	"finitefield.org/store-admin/internal/admin/config"
	"finitefield.org/store-admin/internal/admin/exports"
	"finitefield.org/store-admin/internal/admin/httpserver"
	"finitefield.org/store-admin/internal/admin/httpserver/middleware"
	"finitefield.org/store-admin/internal/admin/observability"
	appsession "finitefield.org/store-admin/internal/admin/session"
	"finitefield.org/store-admin/internal/admin/stores"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	rootCtx := context.Background()

	storeService, source, err := buildStores(cfg, logger)
	if err != nil {
		logger.Fatal("stores service", zap.Error(err))
	}

	fetcher := catalog.NewFetcher(source,
		catalog.WithLogger(logger.Named("catalog")),
		catalog.WithMaxPages(cfg.Catalog.PageLimit),
		catalog.WithTracer(otel.Tracer("finitefield.org/store-admin/catalog")),
	)
	registry := catalog.NewRegistry(func() *catalog.Listing {
		return catalog.NewListing(catalog.ListingDeps{
			Loader:           fetcher,
			Logger:           logger.Named("listing"),
			DefaultStoreName: cfg.Catalog.DefaultStoreName,
		})
	})

	serverCfg := httpserver.Config{
		Address:          cfg.Server.Address,
		BasePath:         cfg.Server.BasePath,
		Environment:      cfg.Server.Environment,
		Authenticator:    buildAuthenticator(rootCtx, cfg, logger),
		CSRFCookieSecure: cfg.Server.CSRFSecure,
		Logger:           logger,
		Stores:           storeService,
		Catalog:          registry,
		Archiver:         buildArchiver(rootCtx, cfg, logger),
		RequestTimeout:   cfg.Backend.Timeout * 2,
	}
	if len(cfg.Session.HashKey) > 0 {
		manager, err := appsession.NewManager(appsession.Config{
			HashKey:      cfg.Session.HashKey,
			BlockKey:     cfg.Session.BlockKey,
			CookiePath:   cfg.Server.BasePath,
			CookieSecure: cfg.Server.CSRFSecure,
		})
		if err != nil {
			logger.Fatal("session manager", zap.Error(err))
		}
		serverCfg.Session = manager
	}

	srv, err := httpserver.New(serverCfg)
	if err != nil {
		logger.Fatal("http server setup", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("admin server listening",
		zap.String("addr", cfg.Server.Address),
		zap.String("base_path", cfg.Server.BasePath),
		zap.Bool("static_mode", cfg.StaticMode()),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}

func buildStores(cfg config.Config, logger *zap.Logger) (stores.Service, catalog.PageSource, error) {
	if cfg.StaticMode() {
		logger.Warn("ADMIN_BACKEND_URL not set; serving in-memory stores")
		static := stores.NewStaticService()
		return static, static, nil
	}
	service, err := stores.NewHTTPService(cfg.Backend.BaseURL, &http.Client{Timeout: cfg.Backend.Timeout})
	if err != nil {
		return nil, nil, err
	}
	return service, service.PageSource(), nil
}

func buildAuthenticator(ctx context.Context, cfg config.Config, logger *zap.Logger) middleware.Authenticator {
	projectID := cfg.Firebase.ProjectID
	if projectID == "" {
		logger.Warn("FIREBASE_PROJECT_ID not set; using passthrough authenticator")
		return nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: projectID,
	})
	if err != nil {
		logger.Error("failed to initialise Firebase app", zap.Error(err))
		return nil
	}

	client, err := app.Auth(ctx)
	if err != nil {
		logger.Error("failed to initialise Firebase auth client", zap.Error(err))
		return nil
	}

	logger.Info("Firebase authenticator enabled", zap.String("project", projectID))
	return middleware.NewFirebaseAuthenticator(client)
}

func buildArchiver(ctx context.Context, cfg config.Config, logger *zap.Logger) exports.Archiver {
	if cfg.Exports.Bucket == "" {
		return nil
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		logger.Error("failed to initialise storage client; archiving disabled", zap.Error(err))
		return nil
	}
	writer, err := exports.NewGCSWriter(client)
	if err != nil {
		logger.Error("storage writer", zap.Error(err))
		return nil
	}
	archiver, err := exports.NewBucketArchiver(cfg.Exports.Bucket, writer)
	if err != nil {
		logger.Error("bucket archiver", zap.Error(err))
		return nil
	}
	logger.Info("product list archiving enabled", zap.String("bucket", cfg.Exports.Bucket))
	return archiver
}
