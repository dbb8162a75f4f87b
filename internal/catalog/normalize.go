package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	isbnLabelRe    = regexp.MustCompile(`(?i)ISBN`)
	isbnRunRe      = regexp.MustCompile(`[0-9X]+`)
	genreLabelRe   = regexp.MustCompile(`(?i)Genre:`)
	releaseLabelRe = regexp.MustCompile(`(?i)Release Date:`)

	// Matches "4 : Rhythm of War (5 of 6)" and "4 : Rhythm of War".
	// Only the first colon after the leading number is significant; the
	// title portion runs up to the optional trailing parenthetical.
	episodeTitleRe = regexp.MustCompile(`(\d+)\s*:\s*(.*?)(?:\((\d+)\s+of\s+(\d+)\))?$`)
)

// NormalizeWhitespace collapses any run of whitespace to a single space and
// trims both ends. Empty input yields nil.
func NormalizeWhitespace(s string) *string {
	if s == "" {
		return nil
	}
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// ExtractISBN strips an "ISBN" label plus colons and whitespace, then
// returns the first run of digits and "X". Nil when no such run exists.
func ExtractISBN(raw string) *string {
	if raw == "" {
		return nil
	}
	cleaned := raw
	if loc := isbnLabelRe.FindStringIndex(cleaned); loc != nil {
		cleaned = cleaned[:loc[0]] + cleaned[loc[1]:]
	}
	cleaned = strings.Map(func(r rune) rune {
		if r == ':' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, cleaned)
	match := isbnRunRe.FindString(cleaned)
	if match == "" {
		return nil
	}
	return &match
}

// CleanGenre strips a leading "Genre:" label and trims.
func CleanGenre(raw string) *string {
	if raw == "" {
		return nil
	}
	cleaned := strings.TrimSpace(genreLabelRe.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// ParseReleaseDate strips a "Release Date:" prefix and parses whatever date
// format the site emits. Returns an RFC 3339 UTC string, or nil when the
// remainder is not a recognizable date.
func ParseReleaseDate(raw string) *string {
	if raw == "" {
		return nil
	}
	dateStr := strings.TrimSpace(releaseLabelRe.ReplaceAllString(raw, ""))
	if dateStr == "" {
		return nil
	}
	t, err := dateparse.ParseAny(dateStr)
	if err != nil {
		return nil
	}
	iso := t.UTC().Format(time.RFC3339)
	return &iso
}

// Episode holds the parts parsed out of a raw episode title.
type Episode struct {
	Number     *int
	Title      *string
	Part       string
	TotalParts string
	Code       *string
}

// ParseEpisodeTitle splits a raw title of the form
// "<number> : <title> (<part> of <total>)". The parenthetical is optional
// and defaults to part 1 of 1. When the pattern does not match at all the
// trimmed raw text becomes the title and no episode code is derived.
func ParseEpisodeTitle(raw string) Episode {
	if raw == "" {
		return Episode{Part: "1", TotalParts: "1"}
	}

	ep := Episode{Part: "1", TotalParts: "1"}
	m := episodeTitleRe.FindStringSubmatch(raw)
	if m == nil {
		title := strings.TrimSpace(raw)
		ep.Title = &title
		return ep
	}

	num, err := strconv.Atoi(m[1])
	if err == nil {
		ep.Number = &num
	}
	title := strings.TrimSpace(m[2])
	ep.Title = &title
	if m[3] != "" {
		ep.Part = m[3]
	}
	if m[4] != "" {
		ep.TotalParts = m[4]
	}
	if ep.Number != nil {
		code := fmt.Sprintf("%d.%s", *ep.Number, ep.Part)
		ep.Code = &code
	}
	return ep
}
