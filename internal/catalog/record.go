// Package catalog defines the product record model and the text
// normalization helpers used when scraping the GraphicAudio catalog.
package catalog

// Record is one scraped audio-drama episode. Pointer fields serialize as
// JSON null when absent, keeping the on-disk shape compatible with the
// published results.json.
type Record struct {
	Link          string   `json:"link"`
	Cover         *string  `json:"cover"`
	SeriesName    *string  `json:"seriesName"`
	Title         *string  `json:"title"`
	RawTitle      *string  `json:"rawtitle"`
	EpisodeNumber *int     `json:"episodeNumber"`
	EpisodePart   string   `json:"episodePart"`
	EpisodeCode   *string  `json:"episodeCode"`
	TotalParts    string   `json:"totalParts"`
	Subtitle      *string  `json:"subtitle"`
	Author        *string  `json:"author"`
	ReleaseDate   *string  `json:"releaseDate"`
	ISBN          *string  `json:"isbn"`
	Genre         *string  `json:"genre"`
	Description   *string  `json:"description"`
	Copyright     *string  `json:"copyright"`
	Cast          []string `json:"cast"`
	ASIN          *string  `json:"asin,omitempty"`
}

// Field identifies a searchable record field.
type Field string

// Searchable fields.
const (
	FieldASIN     Field = "asin"
	FieldISBN     Field = "isbn"
	FieldSeries   Field = "seriesName"
	FieldTitle    Field = "title"
	FieldRawTitle Field = "rawtitle"
	FieldAuthor   Field = "author"
)

// FieldValue returns the value of the named field, or nil when the record
// does not carry it.
func (r *Record) FieldValue(f Field) *string {
	switch f {
	case FieldASIN:
		return r.ASIN
	case FieldISBN:
		return r.ISBN
	case FieldSeries:
		return r.SeriesName
	case FieldTitle:
		return r.Title
	case FieldRawTitle:
		return r.RawTitle
	case FieldAuthor:
		return r.Author
	default:
		return nil
	}
}
