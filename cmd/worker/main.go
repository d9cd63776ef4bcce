package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/compliance-decoder/internal/bootstrap"
	"github.com/kirillkom/compliance-decoder/internal/config"
	"github.com/kirillkom/compliance-decoder/internal/core/usecase"
	"github.com/kirillkom/compliance-decoder/internal/observability/logging"
	"github.com/kirillkom/compliance-decoder/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, workerMetrics.Analysis, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	processor := app.Processor(usecase.WithQueueLagObserver(func(lag time.Duration) {
		workerMetrics.ObserveQueueLag(lag)
	}))

	logger.Info("worker_subscribed", "subject", cfg.NATSAnalyzeSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeAnalysisRequested(ctx, func(handlerCtx context.Context, uploadID string) error {
		done := workerMetrics.TrackJob()
		err := processor.ProcessByID(handlerCtx, uploadID)
		done(err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
