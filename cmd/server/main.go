package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/config"
	"github.com/gdugdh24/rakshak-backend/internal/infrastructure/container"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependency injection container
	app, err := container.NewContainer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	logger := app.Logger

	app.Start(ctx)

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Server.Start()
	}()

	logger.Info("server started",
		zap.String("addr", app.Server.Addr()),
		zap.String("backend_mode", app.Breaker.Mode()),
	)

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			exitCode = 1
		}
	}
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		exitCode = 1
	}

	if err := app.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing application: %v\n", err)
		exitCode = 1
	}

	fmt.Println("Server exited properly")
	os.Exit(exitCode)
}
