package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/enrich"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/store"
)

// newEnrichCmd creates and configures the 'enrich' subcommand.
func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Backfill Audible ASINs for scraped records",
		Long: `Looks up each record's ISBN against the audimeta book database and
stores the matching Audible ASIN. Records that already carry an ASIN or
have no ISBN are left untouched.`,
		RunE: runEnrichCommand,
	}
}

func runEnrichCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := store.NewRecordStore(cfg.Scraper.ResultsFile)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}

	snapshot := records.Records()
	client := enrich.NewClient(cfg.Enrich.APIURL, logger)
	updated, runErr := client.Run(ctx, snapshot)

	// Persist whatever was enriched, even on interruption.
	if updated > 0 {
		if err := records.Replace(snapshot); err != nil {
			return fmt.Errorf("persist enriched records: %w", err)
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run enrichment: %w", runErr)
	}

	logger.Info("Enrichment finished",
		zap.Int("records", len(snapshot)),
		zap.Int("updated", updated),
	)
	return nil
}
