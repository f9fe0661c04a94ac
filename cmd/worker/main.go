package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/mentorhub/internal/app"
	"github.com/felixgeelhaar/mentorhub/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/mentorhub/pkg/config"
	"github.com/felixgeelhaar/mentorhub/pkg/observability"
)

const outboxCleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logFormat := observability.LogFormatText
	if cfg.IsProduction() {
		logFormat = observability.LogFormatJSON
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  observability.LogLevel(cfg.LogLevel),
		Format: logFormat,
	})

	logger.Info("starting mentorhub worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	// Outbox processor: drains committed events to the broker.
	processor := container.NewOutboxProcessor()
	if cfg.OutboxProcessorEnabled {
		logger.Info("starting outbox processor",
			"poll_interval", cfg.OutboxPollInterval,
			"batch_size", cfg.OutboxBatchSize,
			"max_retries", cfg.OutboxMaxRetries,
		)
		if err := processor.Start(ctx); err != nil {
			logger.Error("failed to start outbox processor", "error", err)
			os.Exit(1)
		}
		defer processor.Stop()
	}

	// Broker consumer: feeds the projection and notification subscribers.
	// With the in-process bus the API process dispatches events itself and
	// there is nothing to consume here.
	if container.InProcessBus == nil {
		registry := eventbus.NewConsumerRegistry(logger)
		if container.ProjectionSubscriber != nil {
			registry.Register(container.ProjectionSubscriber)
		}
		if container.NotificationSubscriber != nil {
			registry.Register(container.NotificationSubscriber)
		}

		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:    cfg.RabbitMQURL,
			Logger: logger,
		}, registry)
		if err != nil {
			logger.Error("failed to create RabbitMQ consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error("consumer stopped", "error", err)
				cancel()
			}
		}()
	} else {
		logger.Warn("in-process event bus active, worker consumer disabled")
	}

	// Periodic cleanup of delivered outbox rows.
	cleanupTicker := time.NewTicker(outboxCleanupInterval)
	defer cleanupTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-cleanupTicker.C:
				deleted, err := container.OutboxRepo.DeleteOld(ctx, cfg.OutboxRetentionDays)
				if err != nil {
					logger.Error("outbox cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					logger.Info("outbox cleanup completed",
						"deleted", deleted,
						"retention_days", cfg.OutboxRetentionDays,
					)
				}
			}
		}
	}()

	if cfg.WorkerHealthAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":  "ok",
				"running": processor.IsRunning(),
			})
		})
		mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
			checkCtx, checkCancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer checkCancel()
			results := container.Health.Check(checkCtx)
			w.Header().Set("Content-Type", "application/json")
			if container.Health.OverallStatus() == observability.HealthStatusUnhealthy {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": container.Health.OverallStatus(),
				"checks": results,
			})
		})

		healthSrv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("worker stopped")
}
