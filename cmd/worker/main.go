package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/bootstrap"
	"github.com/tradewise/trade-data-assistant/internal/config"
	"github.com/tradewise/trade-data-assistant/internal/core/domain"
	"github.com/tradewise/trade-data-assistant/internal/observability/logging"
	"github.com/tradewise/trade-data-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeRebuildRequested(ctx, func(handlerCtx context.Context) error {
		rebuildCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
		defer cancel()

		started := time.Now()
		workerMetrics.StartRebuild()
		report, err := app.Rebuilder.Rebuild(rebuildCtx)

		switch {
		case domain.IsKind(err, domain.ErrRebuildInProgress):
			// Another trigger landed while a rebuild was running; the running
			// one covers it.
			workerMetrics.FinishRebuild("worker", time.Since(started), metrics.RebuildSkipped)
			logger.Info("rebuild_skipped", "reason", "already running")
			return nil
		case err != nil:
			workerMetrics.FinishRebuild("worker", time.Since(started), metrics.RebuildError)
			return err
		}

		workerMetrics.FinishRebuild("worker", time.Since(started), metrics.RebuildSuccess)
		workerMetrics.ObserveIndexSize("worker", report.Documents, report.Chunks, len(report.Failed))
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
