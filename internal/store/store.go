// Package store persists the crawl URL cache and the scraped record set,
// and implements the resume/skip bookkeeping between crawl runs.
package store

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/catalog"
)

// The catalog is served under two hostnames; links are compared in
// canonical form so a record scraped under either counts for both.
const (
	canonicalHost     = "graphicaudio.net"
	internationalHost = "graphicaudiointernational.net"
)

// CanonicalLink reduces a product URL to the form used for resume
// comparisons: lowercased host, no www prefix, international host folded
// onto the canonical one. Unparseable input is returned as-is.
func CanonicalLink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	if host == internationalHost {
		host = canonicalHost
	}
	u.Host = host
	return u.String()
}

// URLCache holds the ordered detail-page URL list discovered from the
// catalog listing. It is written once and reloaded on every run; there is
// no TTL.
type URLCache struct {
	path string
}

// NewURLCache returns a cache backed by the given file.
func NewURLCache(path string) *URLCache {
	return &URLCache{path: path}
}

// Load reads the cached URL list. The boolean reports whether a cache file
// existed.
func (c *URLCache) Load() ([]string, bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read url cache %s: %w", c.path, err)
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, false, fmt.Errorf("decode url cache %s: %w", c.path, err)
	}
	return urls, true, nil
}

// Save writes the URL list to disk.
func (c *URLCache) Save(urls []string) error {
	return writeJSONAtomic(c.path, urls)
}

// RecordStore persists the scraped record set as a JSON array. Append
// rewrites the whole file after every record so an interrupted crawl loses
// at most the in-flight page.
type RecordStore struct {
	path    string
	records []catalog.Record
}

// NewRecordStore opens the store at path, loading any existing records.
func NewRecordStore(path string) (*RecordStore, error) {
	s := &RecordStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read record store %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("decode record store %s: %w", path, err)
	}
	return s, nil
}

// Records returns the current record set.
func (s *RecordStore) Records() []catalog.Record {
	return s.records
}

// Len returns the number of persisted records.
func (s *RecordStore) Len() int {
	return len(s.records)
}

// Links returns the set of canonicalized links already scraped.
func (s *RecordStore) Links() map[string]struct{} {
	links := make(map[string]struct{}, len(s.records))
	for i := range s.records {
		links[CanonicalLink(s.records[i].Link)] = struct{}{}
	}
	return links
}

// Contains reports whether the given URL, under any known host variant,
// already has a record.
func (s *RecordStore) Contains(rawURL string) bool {
	_, ok := s.Links()[CanonicalLink(rawURL)]
	return ok
}

// Append adds one record and flushes the full set to disk.
func (s *RecordStore) Append(rec catalog.Record) error {
	s.records = append(s.records, rec)
	if err := writeJSONAtomic(s.path, s.records); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}
	return nil
}

// Replace swaps the whole record set and persists it. Used by the ASIN
// enrichment pass, which updates records in place.
func (s *RecordStore) Replace(records []catalog.Record) error {
	if err := writeJSONAtomic(s.path, records); err != nil {
		return err
	}
	s.records = records
	return nil
}

// writeJSONAtomic writes via a temp file and rename so readers never see a
// partially written array.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
