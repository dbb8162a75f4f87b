package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/api"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/lookup"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/metrics"
)

const shutdownGrace = 10 * time.Second

// newServeCmd creates and configures the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the lookup HTTP API",
		Long: `Starts the HTTP lookup service. Records are pulled from the configured
source URL (typically the published results.json), cached on disk and in
memory, and matched exactly or by fuzzy similarity.`,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := lookup.NewCache(lookup.Config{
		SourceURL: cfg.Lookup.SourceURL,
		CacheFile: cfg.Lookup.CacheFile,
		TTL:       cfg.CacheTTL(),
	}, logger)

	covers, err := api.NewCoverCache(cfg.Lookup.CoversDir, logger)
	if err != nil {
		return fmt.Errorf("init cover cache: %w", err)
	}

	server := api.NewServer(cache, covers, cfg, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Lookup service listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down lookup service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
