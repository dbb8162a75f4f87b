package api

import (
	"fmt"
	"time"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/catalog"
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/search"
)

// Constants baked into every provider match.
const (
	providerPublisher = "GraphicAudio"
	providerLanguage  = "English"
)

// ProviderResponse is the payload shape the metadata-provider protocol
// expects: a matches array at the top level.
type ProviderResponse struct {
	Matches []ProviderMatch `json:"matches"`
}

// ProviderMatch is one result entry in the provider protocol.
type ProviderMatch struct {
	Title         string           `json:"title"`
	Subtitle      string           `json:"subtitle,omitempty"`
	Author        string           `json:"author,omitempty"`
	Authors       []string         `json:"authors"`
	Narrator      string           `json:"narrator,omitempty"`
	Narrators     []string         `json:"narrators,omitempty"`
	Publisher     string           `json:"publisher"`
	PublishedYear string           `json:"publishedYear,omitempty"`
	Description   string           `json:"description,omitempty"`
	Cover         string           `json:"cover,omitempty"`
	ISBN          string           `json:"isbn,omitempty"`
	ASIN          string           `json:"asin,omitempty"`
	Genres        []string         `json:"genres,omitempty"`
	Tags          []string         `json:"tags"`
	Language      string           `json:"language"`
	Series        []ProviderSeries `json:"series,omitempty"`
}

// ProviderSeries names the series an entry belongs to and its sequence
// within it.
type ProviderSeries struct {
	Series   string `json:"series"`
	Sequence string `json:"sequence,omitempty"`
}

// toProviderResponse converts ranked search matches into the provider
// payload. publicBaseURL, when set, routes covers through the local cover
// cache for records with an ISBN.
func toProviderResponse(matches []search.Match, publicBaseURL string) ProviderResponse {
	out := ProviderResponse{Matches: make([]ProviderMatch, 0, len(matches))}
	for i := range matches {
		out.Matches = append(out.Matches, toProviderMatch(&matches[i].Record, publicBaseURL))
	}
	return out
}

func toProviderMatch(rec *catalog.Record, publicBaseURL string) ProviderMatch {
	m := ProviderMatch{
		Title:       strOrEmpty(rec.Title),
		Subtitle:    strOrEmpty(rec.Subtitle),
		Author:      strOrEmpty(rec.Author),
		Authors:     []string{},
		Narrators:   rec.Cast,
		Publisher:   providerPublisher,
		Description: strOrEmpty(rec.Description),
		Cover:       coverURL(rec, publicBaseURL),
		ISBN:        strOrEmpty(rec.ISBN),
		ASIN:        strOrEmpty(rec.ASIN),
		Tags:        []string{},
		Language:    providerLanguage,
	}
	if m.Title == "" {
		m.Title = strOrEmpty(rec.RawTitle)
	}
	if rec.Author != nil {
		m.Authors = append(m.Authors, *rec.Author)
	}
	if len(rec.Cast) > 0 {
		m.Narrator = rec.Cast[0]
	}
	if rec.Genre != nil {
		m.Genres = []string{*rec.Genre}
	}
	if rec.ReleaseDate != nil {
		if t, err := time.Parse(time.RFC3339, *rec.ReleaseDate); err == nil {
			m.PublishedYear = fmt.Sprintf("%d", t.Year())
		}
	}
	if rec.SeriesName != nil {
		m.Series = []ProviderSeries{{
			Series:   *rec.SeriesName,
			Sequence: strOrEmpty(rec.EpisodeCode),
		}}
	}
	return m
}

// coverURL prefers the local cover proxy so clients get the cached copy.
func coverURL(rec *catalog.Record, publicBaseURL string) string {
	if rec.Cover == nil {
		return ""
	}
	if publicBaseURL != "" && rec.ISBN != nil && *rec.ISBN != "" {
		return fmt.Sprintf("%s/isbn/%s/cover", publicBaseURL, *rec.ISBN)
	}
	return *rec.Cover
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
