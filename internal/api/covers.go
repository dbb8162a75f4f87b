package api

import (
	"context"
	"crypto/md5" // #nosec G501 -- md5 only names cache files, no security use.
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// CoverCache is a read-through disk cache for cover images, keyed by the
// md5 of the cover URL.
type CoverCache struct {
	dir    string
	client *http.Client
	logger *zap.Logger
}

// NewCoverCache returns a cache rooted at dir, creating it if needed.
func NewCoverCache(dir string, logger *zap.Logger) (*CoverCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cover dir %s: %w", dir, err)
	}
	return &CoverCache{
		dir:    dir,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}, nil
}

// Path returns the on-disk location of the cover, downloading it on first
// access.
func (c *CoverCache) Path(ctx context.Context, coverURL string) (string, error) {
	// #nosec G401 -- md5 only names cache files, no security use.
	name := fmt.Sprintf("%x.jpg", md5.Sum([]byte(coverURL)))
	target := filepath.Join(c.dir, name)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return "", fmt.Errorf("build cover request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch cover %s: %w", coverURL, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("Failed to close cover response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cover %s: status %d", coverURL, resp.StatusCode)
	}

	tmp := target + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 -- path derived from a hash inside the cache dir.
	if err != nil {
		return "", fmt.Errorf("create cover file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write cover file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close cover file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return "", fmt.Errorf("finalize cover file: %w", err)
	}
	return target, nil
}
