package search

import (
	"math"
	"sort"
	"strings"

	"github.com/binyaminyblatt/graphicaudio-scraper/internal/catalog"
)

// DefaultThreshold is the minimum confidence a fuzzy match must score.
const DefaultThreshold = 70

// DefaultSearchFields are the fields consulted by free-text Search.
var DefaultSearchFields = []catalog.Field{
	catalog.FieldTitle,
	catalog.FieldSeries,
	catalog.FieldRawTitle,
	catalog.FieldAuthor,
}

// Match pairs a record with the confidence the scorer assigned to it. The
// confidence is a query-time annotation, never persisted.
type Match struct {
	catalog.Record
	Confidence float64 `json:"_confidence"`
}

// FindExact returns the first record whose field equals value
// case-insensitively, or nil.
func FindExact(records []catalog.Record, field catalog.Field, value string) *catalog.Record {
	for i := range records {
		v := records[i].FieldValue(field)
		if v != nil && *v != "" && strings.EqualFold(*v, value) {
			return &records[i]
		}
	}
	return nil
}

// FindFuzzy scores every record's field against value and returns those at
// or above threshold, in record order. An empty slice means nothing
// qualified; callers treat that as not found.
func FindFuzzy(records []catalog.Record, field catalog.Field, value string, threshold float64) []Match {
	needle := strings.ToLower(value)
	var matches []Match
	for i := range records {
		v := records[i].FieldValue(field)
		if v == nil || *v == "" {
			continue
		}
		score := Percent(strings.ToLower(*v), needle)
		if score >= threshold {
			matches = append(matches, Match{
				Record:     records[i],
				Confidence: round2(score),
			})
		}
	}
	return matches
}

// FindByField performs an exact-first lookup: an exact hit short-circuits
// fuzzy scoring entirely. Exactly one of the return values is non-empty.
func FindByField(records []catalog.Record, field catalog.Field, value string, threshold float64) (*catalog.Record, []Match) {
	if exact := FindExact(records, field, value); exact != nil {
		return exact, nil
	}
	return nil, FindFuzzy(records, field, value, threshold)
}

// Search scores the query against each of the given fields, keeping the
// maximum per-field score for every record that clears the threshold. An
// exact field hit counts as 100. Results are sorted descending by
// confidence; ties keep record order.
func Search(records []catalog.Record, query string, fields []catalog.Field, threshold float64) []Match {
	if len(fields) == 0 {
		fields = DefaultSearchFields
	}
	needle := strings.ToLower(query)

	var matches []Match
	for i := range records {
		best := -1.0
		for _, field := range fields {
			v := records[i].FieldValue(field)
			if v == nil || *v == "" {
				continue
			}
			haystack := strings.ToLower(*v)
			if haystack == needle {
				best = 100
				break
			}
			if score := Percent(haystack, needle); score > best {
				best = score
			}
		}
		if best >= threshold {
			matches = append(matches, Match{
				Record:     records[i],
				Confidence: round2(best),
			})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Confidence > matches[b].Confidence
	})
	return matches
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
