package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/metrics"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/scraper"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/store"
)

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Scrape the GraphicAudio catalog into the results file",
		Long: `Fetches the full production listing, then scrapes each product page
not already present in the results file. Every scraped record is persisted
immediately, so an interrupted crawl resumes where it left off.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher, err := scraper.NewCollyFetcher(scraper.FetcherConfig{
		UserAgent:      cfg.Scraper.UserAgent,
		RequestTimeout: cfg.ScrapeTimeout(),
		Delay:          cfg.ScrapeDelay(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}

	records, err := store.NewRecordStore(cfg.Scraper.ResultsFile)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	urlCache := store.NewURLCache(cfg.Scraper.URLsFile)

	crawler := scraper.NewCrawler(
		scraper.Config{CatalogURL: cfg.Scraper.CatalogURL},
		fetcher,
		urlCache,
		records,
		logger,
	)

	summary, err := crawler.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("Crawl finished",
		zap.Int("total", summary.Total),
		zap.Int("appended", summary.Appended),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return nil
}
