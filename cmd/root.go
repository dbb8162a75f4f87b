// Package cmd defines and implements the CLI commands for the
// graphicaudio-scraper executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/config"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graphicaudio-scraper",
		Short: "Scrape the GraphicAudio catalog and serve fuzzy metadata lookups.",
		Long: `graphicaudio-scraper maintains a JSON catalog of GraphicAudio audio
drama releases. The crawl command walks the production listing and scrapes
every product page, the enrich command backfills Audible ASINs, and the
serve command exposes the catalog over HTTP with fuzzy matching.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus GA_* env vars)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newEnrichCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// loadRuntime builds the config and logger every subcommand needs.
func loadRuntime() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
