// Package enrich backfills ASINs on scraped records by looking the ISBN up
// against the audimeta book database.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/catalog"
)

// DefaultAPIURL is the audimeta book lookup endpoint.
const DefaultAPIURL = "https://audimeta.de/db/book"

// Client queries the ASIN lookup API.
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Client. An empty apiURL selects the default
// endpoint.
func NewClient(apiURL string, logger *zap.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type bookResponse struct {
	Items []struct {
		ASIN string `json:"asin"`
	} `json:"items"`
}

// LookupASIN resolves an ISBN to an ASIN. Nil without error means the API
// had no match.
func (c *Client) LookupASIN(ctx context.Context, isbn string) (*string, error) {
	if isbn == "" {
		return nil, errors.New("isbn is required")
	}
	endpoint := fmt.Sprintf("%s?isbn=%s&page=1&limit=1", c.apiURL, url.QueryEscape(isbn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup isbn %s: %w", isbn, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("Failed to close lookup response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup isbn %s: status %d", isbn, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read lookup response: %w", err)
	}
	var parsed bookResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	if len(parsed.Items) == 0 || parsed.Items[0].ASIN == "" {
		return nil, nil
	}
	asin := parsed.Items[0].ASIN
	return &asin, nil
}

// Run fills in missing ASINs across the record set, matching by ISBN. The
// input slice is updated in place; the return value is the number of
// records updated. A failed lookup is logged and skipped.
func (c *Client) Run(ctx context.Context, records []catalog.Record) (int, error) {
	updated := 0
	for i := range records {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		rec := &records[i]
		if rec.ASIN != nil || rec.ISBN == nil || *rec.ISBN == "" {
			continue
		}

		asin, err := c.LookupASIN(ctx, *rec.ISBN)
		if err != nil {
			c.logger.Error("ASIN lookup failed", zap.String("isbn", *rec.ISBN), zap.Error(err))
			continue
		}
		if asin == nil {
			c.logger.Info("No ASIN found", zap.String("isbn", *rec.ISBN))
			continue
		}
		rec.ASIN = asin
		updated++
		c.logger.Info("ASIN found", zap.String("isbn", *rec.ISBN), zap.String("asin", *asin))
	}
	return updated, nil
}
