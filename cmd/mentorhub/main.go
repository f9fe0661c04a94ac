package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/mentorhub/adapter/api"
	"github.com/felixgeelhaar/mentorhub/internal/app"
	"github.com/felixgeelhaar/mentorhub/pkg/config"
	"github.com/felixgeelhaar/mentorhub/pkg/observability"
)

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

	// In local mode events go through the in-process bus, so the outbox
	// processor must run here rather than in the worker.
	if cfg.OutboxProcessorEnabled && container.InProcessBus != nil {
		processor := container.NewOutboxProcessor()
		if err := processor.Start(ctx); err != nil {
			logger.Error("failed to start outbox processor", "error", err)
			os.Exit(1)
		}
		defer processor.Stop()
	}

	bookingHandler := api.NewBookingHandler(api.BookingHandlerConfig{
		CreateBooking:   container.CreateBookingHandler,
		ApproveBooking:  container.ApproveBookingHandler,
		RejectBooking:   container.RejectBookingHandler,
		CancelBooking:   container.CancelBookingHandler,
		ListBookings:    container.ListBookingsHandler,
		GetAvailability: container.GetAvailabilityHandler,
		Logger:          logger,
	})

	var streamHandler *api.StreamHandler
	if container.ReadModel != nil {
		streamHandler = api.NewStreamHandler(container.ReadModel, logger)
	}

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.HTTPAddr
	server := api.NewServer(serverCfg, bookingHandler, streamHandler, container.Health, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", "error", err)
	}
}
