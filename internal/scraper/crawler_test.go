package scraper

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/store"
)

const listingHTML = `<!DOCTYPE html>
<html><body><ul>
<li class="product-item" data-sku="GA-SA-4"><a href="https://www.graphicaudiointernational.net/rhythm-of-war-4.html">x</a></li>
<li class="product-item" data-sku="GA-SA-SET-1"><a href="https://www.graphicaudiointernational.net/stormlight-set.html">x</a></li>
<li class="product-item" data-sku="GA-DS-1"><a href="https://www.graphicaudiointernational.net/dead-six-1.html">x</a></li>
<li class="product-item" data-sku="GA-NO-LINK"></li>
<li class="product-item"><a href="https://www.graphicaudiointernational.net/no-sku.html">x</a></li>
</ul></body></html>`

// stubFetcher serves canned HTML per URL and records visit counts.
type stubFetcher struct {
	pages  map[string]string
	errs   map[string]error
	visits map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages:  map[string]string{},
		errs:   map[string]error{},
		visits: map[string]int{},
	}
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (*Document, error) {
	f.visits[rawURL]++
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	html, ok := f.pages[rawURL]
	if !ok {
		return nil, errors.New("no such page")
	}
	return ParseDocument([]byte(html))
}

func TestListProductURLs(t *testing.T) {
	doc, err := ParseDocument([]byte(listingHTML))
	require.NoError(t, err)

	urls := ListProductURLs(doc)
	assert.Equal(t, []string{
		"https://www.graphicaudiointernational.net/rhythm-of-war-4.html",
		"https://www.graphicaudiointernational.net/dead-six-1.html",
	}, urls)
}

func newTestCrawler(t *testing.T, fetcher Fetcher) (*Crawler, *store.RecordStore, string) {
	t.Helper()
	dir := t.TempDir()
	records, err := store.NewRecordStore(filepath.Join(dir, "results.json"))
	require.NoError(t, err)
	crawler := NewCrawler(
		Config{CatalogURL: "https://www.graphicaudiointernational.net/our-productions.html"},
		fetcher,
		store.NewURLCache(filepath.Join(dir, "urls.json")),
		records,
		zap.NewNop(),
	)
	return crawler, records, dir
}

func TestCrawlerRun(t *testing.T) {
	catalogURL := "https://www.graphicaudiointernational.net/our-productions.html"
	detailA := "https://www.graphicaudiointernational.net/rhythm-of-war-4.html"
	detailB := "https://www.graphicaudiointernational.net/dead-six-1.html"

	t.Run("ScrapesAllListedProducts", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.pages[catalogURL] = listingHTML
		fetcher.pages[detailA] = detailPageHTML
		fetcher.pages[detailB] = "<html><body><h1 class='episode-name'>Dead Six</h1></body></html>"

		crawler, records, _ := newTestCrawler(t, fetcher)
		summary, err := crawler.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 2, summary.Appended)
		assert.Zero(t, summary.Skipped)
		assert.Zero(t, summary.Failed)
		require.Equal(t, 2, records.Len())
		// Output ordering matches the listing order.
		assert.Equal(t, detailA, records.Records()[0].Link)
		assert.Equal(t, detailB, records.Records()[1].Link)
	})

	t.Run("SecondRunIsIdempotent", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.pages[catalogURL] = listingHTML
		fetcher.pages[detailA] = detailPageHTML
		fetcher.pages[detailB] = detailPageHTML

		crawler, records, _ := newTestCrawler(t, fetcher)
		_, err := crawler.Run(context.Background())
		require.NoError(t, err)

		summary, err := crawler.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, summary.Appended)
		assert.Equal(t, 2, summary.Skipped)
		assert.Equal(t, 2, records.Len())
		// The listing itself is fetched only once; the second run reads
		// the URL cache from disk.
		assert.Equal(t, 1, fetcher.visits[catalogURL])
	})

	t.Run("SkipsHostVariantOfScrapedLink", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.pages[catalogURL] = listingHTML
		fetcher.pages[detailB] = detailPageHTML

		crawler, records, _ := newTestCrawler(t, fetcher)
		// Pre-seed a record scraped under the other hostname.
		require.NoError(t, records.Append(Extract(mustDoc(t, detailPageHTML),
			"https://www.graphicaudio.net/rhythm-of-war-4.html")))

		summary, err := crawler.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 1, summary.Appended)
		assert.Zero(t, fetcher.visits[detailA])
	})

	t.Run("FetchFailureDoesNotAbort", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.pages[catalogURL] = listingHTML
		fetcher.errs[detailA] = errors.New("connection refused")
		fetcher.pages[detailB] = detailPageHTML

		crawler, records, _ := newTestCrawler(t, fetcher)
		summary, err := crawler.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 1, summary.Appended)
		require.Equal(t, 1, records.Len())
		assert.Equal(t, detailB, records.Records()[0].Link)
	})

	t.Run("CanceledContextStopsRun", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.pages[catalogURL] = listingHTML

		crawler, _, _ := newTestCrawler(t, fetcher)
		ctx, cancel := context.WithCancel(context.Background())

		_, err := crawler.Run(ctx)
		require.NoError(t, err)
		cancel()
		_, err = crawler.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func mustDoc(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(html))
	require.NoError(t, err)
	return doc
}
