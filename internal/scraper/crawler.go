package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/metrics"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/store"
)

// Bundle SKUs are whole-series sets, not individually scrapable episodes.
const bundleSKUMarker = "-SET-"

// Config holds the settings for a crawl session.
type Config struct {
	CatalogURL string
}

// Crawler walks the catalog listing and scrapes each product detail page,
// persisting after every successful extraction.
type Crawler struct {
	cfg      Config
	fetcher  Fetcher
	urlCache *store.URLCache
	records  *store.RecordStore
	logger   *zap.Logger
}

// NewCrawler constructs a Crawler.
func NewCrawler(
	cfg Config,
	fetcher Fetcher,
	urlCache *store.URLCache,
	records *store.RecordStore,
	logger *zap.Logger,
) *Crawler {
	return &Crawler{
		cfg:      cfg,
		fetcher:  fetcher,
		urlCache: urlCache,
		records:  records,
		logger:   logger,
	}
}

// Summary reports what a crawl run did.
type Summary struct {
	Total    int
	Appended int
	Skipped  int
	Failed   int
}

// Run crawls the catalog. Work is sequential: each page is fetched,
// extracted and persisted before the next is attempted, so an interruption
// loses at most the in-flight record. A per-URL failure is logged and
// counted, never fatal.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	urls, err := c.productURLs(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(urls)}
	scraped := c.records.Links()

	for _, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, ok := scraped[store.CanonicalLink(rawURL)]; ok {
			c.logger.Debug("Skipping already scraped product", zap.String("url", rawURL))
			summary.Skipped++
			metrics.PageSkipped()
			continue
		}

		c.logger.Info("Scraping product", zap.String("url", rawURL))
		doc, err := c.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			c.logger.Error("Failed to scrape product", zap.String("url", rawURL), zap.Error(err))
			summary.Failed++
			metrics.PageFailed()
			continue
		}

		rec := Extract(doc, rawURL)
		if err := c.records.Append(rec); err != nil {
			return summary, fmt.Errorf("persist record for %s: %w", rawURL, err)
		}
		scraped[store.CanonicalLink(rawURL)] = struct{}{}
		summary.Appended++
		metrics.PageScraped()
	}

	c.logger.Info("Crawl finished",
		zap.Int("total", summary.Total),
		zap.Int("appended", summary.Appended),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// productURLs returns the detail-page URL list, fetching the listing only
// when no cached list exists on disk.
func (c *Crawler) productURLs(ctx context.Context) ([]string, error) {
	urls, ok, err := c.urlCache.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		c.logger.Info("Loaded cached product URLs", zap.Int("count", len(urls)))
		return urls, nil
	}

	c.logger.Info("Fetching catalog listing", zap.String("url", c.cfg.CatalogURL))
	doc, err := c.fetcher.Fetch(ctx, c.cfg.CatalogURL)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog listing: %w", err)
	}

	urls = ListProductURLs(doc)
	if err := c.urlCache.Save(urls); err != nil {
		return nil, err
	}
	c.logger.Info("Cached product URLs", zap.Int("count", len(urls)))
	return urls, nil
}

// ListProductURLs enumerates the detail-page URLs on a catalog listing in
// DOM order, dropping bundle SKUs and entries without a resolvable link.
func ListProductURLs(doc *Document) []string {
	var urls []string
	doc.Each("li.product-item", func(s *goquery.Selection) {
		sku, ok := s.Attr("data-sku")
		if !ok || sku == "" || strings.Contains(sku, bundleSKUMarker) {
			return
		}
		href, ok := s.Find("a").First().Attr("href")
		if !ok || href == "" {
			return
		}
		urls = append(urls, href)
	})
	return urls
}
