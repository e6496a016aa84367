package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"propvalue/server/config"
	"propvalue/server/internal/analysis"
	"propvalue/server/internal/api"
	"propvalue/server/internal/database"
	"propvalue/server/internal/metrics"
	"propvalue/server/web"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	logger := cfg.NewLogger()
	logger.SetOutput(os.Stdout)
	gin.SetMode(cfg.Server.Mode)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}

// run owns every resource so deferred cleanup happens before main exits.
func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.WithError(err).Error("Failed to close storage")
		}
	}()

	if cfg.Provider.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; analyses will use the low-confidence fallback")
	}

	m := metrics.New()
	client := analysis.NewOpenAIClient(analysis.ClientConfig{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		Timeout: cfg.Provider.Timeout,
	}, logger)
	gateway := analysis.NewGateway(client, analysis.Options{
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
	}, logger, m)

	handler := api.NewHandler(store, gateway, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        m,
		Dashboard:      web.StaticFS,
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}
	return serve(ctx, srv, cfg.Server.ShutdownTimeout, logger)
}

// serve runs srv until ctx is done or the listener fails. A listener error
// is returned instead of exiting so callers still run their cleanup.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *logrus.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shut down: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (database.PropertyStore, error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		logger.Infof("Using SQLite database at: %s", cfg.Store.SQLitePath)
		db, err := database.NewDatabase(cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		return db, nil
	default:
		store, err := database.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to create indexes")
		}
		return store, nil
	}
}
