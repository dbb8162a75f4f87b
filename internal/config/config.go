// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Lookup  LookupConfig  `mapstructure:"lookup"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ScraperConfig governs the catalog crawl.
type ScraperConfig struct {
	CatalogURL     string `mapstructure:"catalog_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DelayMs        int    `mapstructure:"delay_ms"`
	URLsFile       string `mapstructure:"urls_file"`
	ResultsFile    string `mapstructure:"results_file"`
}

// LookupConfig governs the lookup service's data cache and search.
type LookupConfig struct {
	SourceURL       string  `mapstructure:"source_url"`
	CacheFile       string  `mapstructure:"cache_file"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
	CoversDir       string  `mapstructure:"covers_dir"`
	Threshold       float64 `mapstructure:"threshold"`
	PublicBaseURL   string  `mapstructure:"public_base_url"`
}

// EnrichConfig configures the ASIN enrichment pass.
type EnrichConfig struct {
	APIURL string `mapstructure:"api_url"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scraper.catalog_url",
		"https://www.graphicaudiointernational.net/our-productions.html?product_list_limit=all")
	v.SetDefault("scraper.user_agent", "graphicaudio-scraper/1.0")
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.delay_ms", 500)
	v.SetDefault("scraper.urls_file", "data/urls.json")
	v.SetDefault("scraper.results_file", "data/results.json")
	v.SetDefault("lookup.source_url",
		"https://raw.githubusercontent.com/binyaminyblatt/graphicaudio_scraper/refs/heads/main/results.json")
	v.SetDefault("lookup.cache_file", "data/cache.json")
	v.SetDefault("lookup.cache_ttl_seconds", 3600)
	v.SetDefault("lookup.covers_dir", "data/covers")
	v.SetDefault("lookup.threshold", 70)
	v.SetDefault("enrich.api_url", "https://audimeta.de/db/book")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.CatalogURL == "" {
		return fmt.Errorf("scraper.catalog_url must be set")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Lookup.SourceURL == "" {
		return fmt.Errorf("lookup.source_url must be set")
	}
	if c.Lookup.CacheTTLSeconds <= 0 {
		return fmt.Errorf("lookup.cache_ttl_seconds must be > 0")
	}
	if c.Lookup.Threshold < 0 || c.Lookup.Threshold > 100 {
		return fmt.Errorf("lookup.threshold must be within [0, 100]")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// ScrapeTimeout returns the per-request fetch timeout.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// ScrapeDelay returns the politeness delay between fetches.
func (c Config) ScrapeDelay() time.Duration {
	return time.Duration(c.Scraper.DelayMs) * time.Millisecond
}

// CacheTTL returns the lookup cache TTL.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Lookup.CacheTTLSeconds) * time.Second
}
