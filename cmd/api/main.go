package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/tradewise/trade-data-assistant/internal/adapters/http"
	"github.com/tradewise/trade-data-assistant/internal/bootstrap"
	"github.com/tradewise/trade-data-assistant/internal/config"
	"github.com/tradewise/trade-data-assistant/internal/observability/logging"
	"github.com/tradewise/trade-data-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	// Serve the persisted corpus immediately; a fresh deployment simply
	// reports unavailable until the first rebuild lands.
	if err := app.RebuildUC.Restore(ctx); err != nil {
		logger.Warn("index_restore_failed", "error", err)
	}

	app.Sessions.StartJanitor(ctx, time.Minute, logger)

	// Worker rebuilds land in postgres; poll the store so this process
	// picks them up without a restart.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := app.RebuildUC.Restore(ctx); err != nil {
					logger.Warn("index_refresh_failed", "error", err)
				}
			}
		}
	}()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(app.AskUC, app.Index, app.Queue, httpMetrics, logger).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_error", "error", err)
	}
}
