// Package scraper fetches catalog pages and extracts product records from
// them.
package scraper

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Document is a queryable HTML page.
type Document struct {
	doc *goquery.Document
}

// ParseDocument builds a Document from raw HTML.
func ParseDocument(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Text returns the combined text content of the first selector match, or
// the empty string.
func (d *Document) Text(selector string) string {
	return d.doc.Find(selector).First().Text()
}

// Attr returns the named attribute of the first selector match, or the
// empty string.
func (d *Document) Attr(selector, attr string) string {
	v, _ := d.doc.Find(selector).First().Attr(attr)
	return v
}

// EachText returns the text content of every selector match in document
// order.
func (d *Document) EachText(selector string) []string {
	var out []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// Each runs fn over every selector match in document order.
func (d *Document) Each(selector string, fn func(s *goquery.Selection)) {
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		fn(s)
	})
}
