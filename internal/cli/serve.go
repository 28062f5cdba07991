package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anime-shed/webcritic-go/internal/container"
	"github.com/anime-shed/webcritic-go/internal/logger"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(opts []container.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the session API, the one-shot critique endpoint and the
websocket event stream. Configuration comes from the environment
(HOST, PORT, ANTHROPIC_API_KEY, ...).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
}

func runServe(opts []container.Option) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	// Initialize dependency injection container
	c, err := container.NewContainer(cfg, opts...)
	if err != nil {
		return err
	}
	defer closeContainer(c, os.Stderr)

	if cfg.AnthropicAPIKey == "" && cfg.AnthropicBaseURL == "" {
		logger.Warn("ANTHROPIC_API_KEY is not set; critiques will fail until it is")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go c.Sessions().RunSweeper(ctx, cfg.SessionTTL, sweepInterval(cfg.SessionTTL))

	// Create HTTP server with configurable timeouts
	server := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"address": cfg.ServerAddress(),
			"timeout": cfg.RequestTimeout,
			"model":   cfg.AnthropicModel,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		logger.WithError(err).Error("Failed to start server")
		return err
	case <-quit:
	}

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return err
	}

	logger.Info("Server exited")
	return nil
}

// sweepInterval checks a few times per TTL without spinning on tiny TTLs
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		return time.Second
	}
	return interval
}
