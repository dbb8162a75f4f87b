// Package lookup loads the scraped record set for the query service,
// caching it in memory and on disk with a TTL.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/catalog"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/metrics"
)

// ErrDataUnavailable is returned when neither a fresh cache nor the data
// source can produce a record set. Stale or corrupt data is never served.
var ErrDataUnavailable = errors.New("record data unavailable")

// Config controls where records come from and how long caches live.
type Config struct {
	// SourceURL is an http(s) URL or a local file path holding the JSON
	// record array.
	SourceURL string
	// CacheFile is the on-disk cache location.
	CacheFile string
	// TTL bounds the age of both the in-memory snapshot and the file
	// cache.
	TTL time.Duration
}

// Cache holds an in-memory snapshot of the record set. The snapshot is
// replaced atomically: readers see either the old set or the new one.
type Cache struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger

	mu       sync.RWMutex
	records  []catalog.Record
	loadedAt time.Time
}

// NewCache constructs a Cache.
func NewCache(cfg Config, logger *zap.Logger) *Cache {
	return &Cache{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Get returns the current record set, loading it from the file cache or
// the source as needed.
func (c *Cache) Get(ctx context.Context) ([]catalog.Record, error) {
	c.mu.RLock()
	if c.records != nil && time.Since(c.loadedAt) < c.cfg.TTL {
		records := c.records
		c.mu.RUnlock()
		return records, nil
	}
	c.mu.RUnlock()

	if records, ok := c.loadFileCache(); ok {
		c.swap(records)
		return records, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the source unconditionally, rewrites the file cache and
// swaps the snapshot.
func (c *Cache) Refresh(ctx context.Context) ([]catalog.Record, error) {
	payload, err := c.fetchSource(ctx)
	if err != nil {
		metrics.ObserveCacheRefresh("error")
		c.logger.Error("Record source fetch failed", zap.String("source", c.cfg.SourceURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	var records []catalog.Record
	if err := json.Unmarshal(payload, &records); err != nil {
		metrics.ObserveCacheRefresh("error")
		return nil, fmt.Errorf("%w: decode source: %v", ErrDataUnavailable, err)
	}

	if err := c.writeFileCache(payload); err != nil {
		// Cache-file trouble should not block serving fresh data.
		c.logger.Warn("Failed to write record cache file", zap.String("path", c.cfg.CacheFile), zap.Error(err))
	}

	c.swap(records)
	metrics.ObserveCacheRefresh("ok")
	c.logger.Info("Record set refreshed", zap.Int("records", len(records)))
	return records, nil
}

// Invalidate drops the snapshot and the file cache; the next Get hits the
// source.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.records = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()

	if c.cfg.CacheFile != "" {
		if err := os.Remove(c.cfg.CacheFile); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("Failed to remove record cache file", zap.String("path", c.cfg.CacheFile), zap.Error(err))
		}
	}
}

func (c *Cache) swap(records []catalog.Record) {
	c.mu.Lock()
	c.records = records
	c.loadedAt = time.Now()
	c.mu.Unlock()
}

// loadFileCache returns cached records when the cache file exists and is
// younger than the TTL.
func (c *Cache) loadFileCache() ([]catalog.Record, bool) {
	if c.cfg.CacheFile == "" {
		return nil, false
	}
	info, err := os.Stat(c.cfg.CacheFile)
	if err != nil || time.Since(info.ModTime()) >= c.cfg.TTL {
		return nil, false
	}
	data, err := os.ReadFile(c.cfg.CacheFile)
	if err != nil {
		return nil, false
	}
	var records []catalog.Record
	if err := json.Unmarshal(data, &records); err != nil {
		c.logger.Warn("Corrupt record cache file ignored", zap.String("path", c.cfg.CacheFile), zap.Error(err))
		return nil, false
	}
	return records, true
}

func (c *Cache) writeFileCache(payload []byte) error {
	if c.cfg.CacheFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.CacheFile), 0o750); err != nil {
		return err
	}
	tmp := c.cfg.CacheFile + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.cfg.CacheFile)
}

// fetchSource reads the record JSON from an HTTP URL or a local file.
func (c *Cache) fetchSource(ctx context.Context) ([]byte, error) {
	src := c.cfg.SourceURL
	if src == "" {
		return nil, errors.New("no record source configured")
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read source file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build source request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("Failed to close source response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read source body: %w", err)
	}
	return data, nil
}
