package scraper

import (
	"github.com/binyaminyblatt/graphicaudio-scraper/internal/catalog"
)

// Detail-page selectors on the GraphicAudio product template.
const (
	selISBN        = ".product-isbn"
	selEpisodeName = ".episode-name"
	selCover       = ".gallery-placeholder__image"
	selSeriesName  = ".series-name"
	selSubtitle    = ".dramatized-adaptation"
	selAuthor      = `div[itemprop="author"]`
	selReleaseDate = ".product-releasedate"
	selGenre       = ".product-genre"
	selDescription = ".product-description"
	selCopyright   = ".product-copyright"
	selCastCredit  = ".additional-attributes-wrapper .attribute a.credit"
)

// Extract builds one record from a fetched detail page. It never fails:
// any field missing from the page is simply nil. No I/O happens here.
func Extract(doc *Document, link string) catalog.Record {
	rawTitle := catalog.NormalizeWhitespace(doc.Text(selEpisodeName))
	ep := catalog.ParseEpisodeTitle(deref(rawTitle))

	rec := catalog.Record{
		Link:          link,
		Cover:         optional(doc.Attr(selCover, "src")),
		SeriesName:    catalog.NormalizeWhitespace(doc.Text(selSeriesName)),
		Title:         ep.Title,
		RawTitle:      rawTitle,
		EpisodeNumber: ep.Number,
		EpisodePart:   ep.Part,
		EpisodeCode:   ep.Code,
		TotalParts:    ep.TotalParts,
		Subtitle:      catalog.NormalizeWhitespace(doc.Text(selSubtitle)),
		Author:        catalog.NormalizeWhitespace(doc.Text(selAuthor)),
		ReleaseDate:   catalog.ParseReleaseDate(deref(catalog.NormalizeWhitespace(doc.Text(selReleaseDate)))),
		ISBN:          catalog.ExtractISBN(doc.Text(selISBN)),
		Genre:         cleanedGenre(doc.Text(selGenre)),
		Description:   catalog.NormalizeWhitespace(doc.Text(selDescription)),
		Copyright:     catalog.NormalizeWhitespace(doc.Text(selCopyright)),
		Cast:          dedupCast(doc.EachText(selCastCredit)),
	}
	return rec
}

func cleanedGenre(raw string) *string {
	normalized := catalog.NormalizeWhitespace(raw)
	if normalized == nil {
		return nil
	}
	return catalog.CleanGenre(*normalized)
}

// dedupCast normalizes each credit and drops duplicates, keeping first
// occurrence order.
func dedupCast(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	cast := make([]string, 0, len(raw))
	for _, entry := range raw {
		normalized := catalog.NormalizeWhitespace(entry)
		if normalized == nil {
			continue
		}
		if _, ok := seen[*normalized]; ok {
			continue
		}
		seen[*normalized] = struct{}{}
		cast = append(cast, *normalized)
	}
	return cast
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
