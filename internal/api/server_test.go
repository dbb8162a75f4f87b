package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/catalog"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/config"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/lookup"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/search"
)

func strPtr(s string) *string { return &s }

// stubSource serves a fixed record set, or fails when unavailable is set.
type stubSource struct {
	records     []catalog.Record
	unavailable bool
	refreshes   int
}

func (s *stubSource) Get(context.Context) ([]catalog.Record, error) {
	if s.unavailable {
		return nil, lookup.ErrDataUnavailable
	}
	return s.records, nil
}

func (s *stubSource) Refresh(ctx context.Context) ([]catalog.Record, error) {
	s.refreshes++
	return s.Get(ctx)
}

func (s *stubSource) Invalidate() {}

func stubRecords() []catalog.Record {
	return []catalog.Record{
		{
			Link:        "https://www.graphicaudio.net/sa-3",
			Title:       strPtr("Oathbringer"),
			RawTitle:    strPtr("3 : Oathbringer (1 of 6)"),
			SeriesName:  strPtr("The Stormlight Archive"),
			Author:      strPtr("Brandon Sanderson"),
			ISBN:        strPtr("9781640633978"),
			ASIN:        strPtr("B0C5TEST03"),
			EpisodeCode: strPtr("3.1"),
			Genre:       strPtr("Fantasy"),
			ReleaseDate: strPtr("2023-08-15T00:00:00Z"),
			Cover:       strPtr("https://cdn.graphicaudio.net/covers/oathbringer.jpg"),
			Cast:        []string{"Alice Actor", "Bob Voice"},
		},
		{
			Link:     "https://www.graphicaudio.net/ds-1",
			Title:    strPtr("Dead Six"),
			RawTitle: strPtr("Dead Six"),
			Author:   strPtr("Larry Correia"),
			ISBN:     strPtr("9781640630000"),
		},
	}
}

func newTestServer(t *testing.T, source *stubSource, cfg config.Config) *httptest.Server {
	t.Helper()
	covers, err := NewCoverCache(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	srv := NewServer(source, covers, cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url) // #nosec G107 -- test requests against the local test server.
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestLookupEndpoints(t *testing.T) {
	source := &stubSource{records: stubRecords()}
	ts := newTestServer(t, source, config.Config{Lookup: config.LookupConfig{Threshold: 70}})

	t.Run("ASINExact", func(t *testing.T) {
		status, body := get(t, ts.URL+"/asin/B0C5TEST03")
		assert.Equal(t, http.StatusOK, status)
		var rec catalog.Record
		require.NoError(t, json.Unmarshal(body, &rec))
		assert.Equal(t, "https://www.graphicaudio.net/sa-3", rec.Link)
	})

	t.Run("ASINNotFound", func(t *testing.T) {
		status, _ := get(t, ts.URL+"/asin/B000000000")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("ISBNExact", func(t *testing.T) {
		// Dashes are sanitized away before matching.
		status, body := get(t, ts.URL+"/isbn/978-164-063-3978")
		assert.Equal(t, http.StatusOK, status)
		var rec catalog.Record
		require.NoError(t, json.Unmarshal(body, &rec))
		require.NotNil(t, rec.ISBN)
		assert.Equal(t, "9781640633978", *rec.ISBN)
	})

	t.Run("SeriesFuzzy", func(t *testing.T) {
		status, body := get(t, ts.URL+"/series/Stormlight%20Archive")
		assert.Equal(t, http.StatusOK, status)
		var matches []search.Match
		require.NoError(t, json.Unmarshal(body, &matches))
		require.Len(t, matches, 1)
		assert.GreaterOrEqual(t, matches[0].Confidence, 70.0)
	})

	t.Run("SeriesNotFound", func(t *testing.T) {
		status, _ := get(t, ts.URL+"/series/Zzzz")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("FreeTextSearch", func(t *testing.T) {
		status, body := get(t, ts.URL+"/search?q=Oathbringer")
		assert.Equal(t, http.StatusOK, status)
		var matches []search.Match
		require.NoError(t, json.Unmarshal(body, &matches))
		require.NotEmpty(t, matches)
		assert.Equal(t, "https://www.graphicaudio.net/sa-3", matches[0].Link)
		assert.GreaterOrEqual(t, matches[0].Confidence, 70.0)
	})

	t.Run("SearchNoResults", func(t *testing.T) {
		status, _ := get(t, ts.URL+"/search?q=qqqqqqq")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("Healthz", func(t *testing.T) {
		status, _ := get(t, ts.URL+"/healthz")
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("Metrics", func(t *testing.T) {
		status, _ := get(t, ts.URL+"/metrics")
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestProviderSearch(t *testing.T) {
	source := &stubSource{records: stubRecords()}
	ts := newTestServer(t, source, config.Config{Lookup: config.LookupConfig{
		Threshold:     70,
		PublicBaseURL: "https://lookup.example.com",
	}})

	t.Run("MatchesShape", func(t *testing.T) {
		status, body := get(t, ts.URL+"/provider/search?query=Oathbringer")
		assert.Equal(t, http.StatusOK, status)

		var resp ProviderResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		require.Len(t, resp.Matches, 1)

		m := resp.Matches[0]
		assert.Equal(t, "Oathbringer", m.Title)
		assert.Equal(t, "Brandon Sanderson", m.Author)
		assert.Equal(t, []string{"Brandon Sanderson"}, m.Authors)
		assert.Equal(t, "Alice Actor", m.Narrator)
		assert.Equal(t, []string{"Alice Actor", "Bob Voice"}, m.Narrators)
		assert.Equal(t, "GraphicAudio", m.Publisher)
		assert.Equal(t, "2023", m.PublishedYear)
		assert.Equal(t, "English", m.Language)
		assert.Equal(t, []string{"Fantasy"}, m.Genres)
		assert.NotNil(t, m.Tags)
		assert.Empty(t, m.Tags)
		assert.Equal(t, "https://lookup.example.com/isbn/9781640633978/cover", m.Cover)
		require.Len(t, m.Series, 1)
		assert.Equal(t, "The Stormlight Archive", m.Series[0].Series)
		assert.Equal(t, "3.1", m.Series[0].Sequence)
	})

	t.Run("EmptyMatchesIsNotAnError", func(t *testing.T) {
		status, body := get(t, ts.URL+"/provider/search?query=qqqqqqq")
		assert.Equal(t, http.StatusOK, status)
		var resp ProviderResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.NotNil(t, resp.Matches)
		assert.Empty(t, resp.Matches)
	})

	t.Run("MissingQuery", func(t *testing.T) {
		status, _ := get(t, ts.URL+"/provider/search")
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestDataUnavailable(t *testing.T) {
	source := &stubSource{unavailable: true}
	ts := newTestServer(t, source, config.Config{})

	for _, path := range []string{"/asin/B0C5TEST03", "/isbn/9781640633978", "/series/Stormlight", "/search?q=x"} {
		status, _ := get(t, ts.URL+path)
		assert.Equal(t, http.StatusServiceUnavailable, status, path)
	}
}

func TestRefresh(t *testing.T) {
	source := &stubSource{records: stubRecords()}
	ts := newTestServer(t, source, config.Config{})

	resp, err := http.Post(ts.URL+"/refresh", "application/json", nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, source.refreshes)
}

func TestAPIKeyMiddleware(t *testing.T) {
	source := &stubSource{records: stubRecords()}
	ts := newTestServer(t, source, config.Config{
		Auth: config.AuthConfig{Enabled: true, APIKey: "sekrit"},
	})

	t.Run("MissingKey", func(t *testing.T) {
		status, _ := get(t, ts.URL+"/healthz")
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("QueryKey", func(t *testing.T) {
		status, _ := get(t, ts.URL+"/healthz?api_key=sekrit")
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("HeaderKey", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Header.Set("X-API-Key", "sekrit")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() {
			require.NoError(t, resp.Body.Close())
		}()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestSanitizers(t *testing.T) {
	assert.Equal(t, "B0C5TEST03", SanitizeASIN(" B0C5-TEST_03 "))
	assert.Equal(t, "9781640633978", SanitizeISBN("978-1-64063-397-8"))
	assert.Equal(t, "The Hitchhiker's Guide", SanitizeSeries("The Hitchhiker's Guide!"))
	assert.Equal(t, "", SanitizeISBN("no digits"))
}
