package api

import (
	"regexp"
	"strings"
)

var (
	asinAllowedRe   = regexp.MustCompile(`[^A-Za-z0-9]`)
	isbnAllowedRe   = regexp.MustCompile(`[^0-9]`)
	seriesAllowedRe = regexp.MustCompile(`[^A-Za-z0-9 \-']`)
)

// SanitizeASIN keeps alphanumerics only.
func SanitizeASIN(input string) string {
	return asinAllowedRe.ReplaceAllString(strings.TrimSpace(input), "")
}

// SanitizeISBN keeps digits only.
func SanitizeISBN(input string) string {
	return isbnAllowedRe.ReplaceAllString(strings.TrimSpace(input), "")
}

// SanitizeSeries keeps letters, digits, spaces, dashes and apostrophes.
func SanitizeSeries(input string) string {
	return seriesAllowedRe.ReplaceAllString(strings.TrimSpace(input), "")
}
