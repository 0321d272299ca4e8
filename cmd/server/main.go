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

	"adpulse/internal/cache"
	"adpulse/internal/delivery"
	"adpulse/internal/infrastructure"
	"adpulse/internal/usecase"
	"adpulse/pkg/config"
	"adpulse/pkg/logger"
	"adpulse/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("Starting adpulse server")

	m := metrics.New()

	store, err := cache.Open(cfg.Cache.Path, cfg.Cache.TTL, log, m)
	if err != nil {
		log.WithError(err).Fatal("Failed to open snapshot cache")
	}
	defer store.Close()

	upstream := infrastructure.NewUpstreamClient(cfg.Upstream, log, m)

	dashboard := usecase.NewDashboardService(
		store, upstream, log, m,
		cfg.Dashboard.DefaultRangeLabel,
		cfg.Dashboard.AutoRefreshInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dashboard.Init(ctx)
	defer dashboard.Close()

	if cfg.Dashboard.AutoRefresh {
		dashboard.StartAutoRefresh()
	}

	handlers := delivery.NewHTTPHandlers(dashboard, log, m)
	router := delivery.NewHTTPRouter(handlers, log, m, cfg.Server.RequestTimeout)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.SetupRoutes(),
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}

	// Give in-flight background refreshes a moment to settle.
	time.Sleep(100 * time.Millisecond)
	log.Info("Server stopped")
}
