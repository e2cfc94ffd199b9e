package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pxql/pxql/internal/api"
	"github.com/pxql/pxql/internal/auth"
	"github.com/pxql/pxql/internal/config"
	"github.com/pxql/pxql/internal/database"
	"github.com/pxql/pxql/internal/observability"
	s3store "github.com/pxql/pxql/internal/storage/s3"
	"github.com/pxql/pxql/internal/store/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("pxql-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	sources, err := database.ParseSources(cfg.Tables.Sources)
	if err != nil {
		logger.Error("failed to parse table sources", slog.Any("error", err))
		os.Exit(1)
	}

	var (
		readiness   []api.ReadinessCheck
		openerOpts  = database.OpenerOptions{TempDir: cfg.Tables.TempDir, Logger: logger}
		postgresDB  *sql.DB
		needsObject = false
	)
	for _, source := range sources {
		if source.Kind == database.KindObject {
			needsObject = true
		}
	}

	if cfg.Postgres.DSN != "" {
		postgresDB, err = postgres.Open(context.Background(), postgres.DBConfig{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = postgresDB.Close() }()
		openerOpts.Postgres = postgresDB
		readiness = append(readiness, api.CheckPostgres(postgresDB))
	}

	if needsObject {
		objectStore, err := s3store.New(s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		openerOpts.Objects = objectStore
		readiness = append(readiness, api.CheckObjectStore(objectStore))
	}

	opener, err := database.NewOpener(sources, openerOpts)
	if err != nil {
		logger.Error("failed to configure table sources", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("table sources configured", slog.Int("tables", len(sources)))

	deps := api.Dependencies{
		Logger:           logger,
		Tables:           opener,
		Readiness:        api.CombineReadinessChecks(readiness...),
		DependencyTimout: time.Second,
		MaxRowLimit:      cfg.Query.MaxRowLimit,
		QueryTimeout:     cfg.Query.Timeout,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
