package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campus-portal/event-portal-api/internal/api"
	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
	"github.com/campus-portal/event-portal-api/internal/config"
	"github.com/campus-portal/event-portal-api/internal/db"
	"github.com/campus-portal/event-portal-api/internal/logger"
	"github.com/campus-portal/event-portal-api/internal/metrics"
	"github.com/campus-portal/event-portal-api/internal/realtime"
	"github.com/campus-portal/event-portal-api/internal/service"
)

const (
	configPath      = "./cmd/app/config.yml"
	shutdownTimeout = 10 * time.Second
)

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	metrics.Init()
	response.ExposeInternalErrors(conf.API.Environment == "development")

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(conf.Realtime.AllowedOrigins, conf.Realtime.SendBuffer)
	go hub.Run(ctx)

	s := api.NewServer(conf, postgresDB, hub)
	go service.RunReconciler(ctx, s.Registrations, conf.Registration.ReconcileInterval)

	config.Watch(configPath, func(next *config.AppConfig) {
		logger.SetEnvironment(next.API.Environment)
		s.CORS.Update(next.API.AllowedCORSDomains)
		zap.L().Info("configuration reloaded")
	})

	srv := &http.Server{
		Addr:              ":" + s.Config.API.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info(fmt.Sprintf("starting server at %v", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start the server -> %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down the server -> %w", err)
	}

	if sqlDB, err := postgresDB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	return nil
}
