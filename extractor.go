package pagesignal

// MaxSnippetLength is the number of characters kept in Signal.Snippet.
const MaxSnippetLength = 1200

// Signal is the compact summary extracted from one HTML page.
type Signal struct {
	// TitleTag is the trimmed text of the first <title> element.
	TitleTag string `json:"titleTag"`

	// Heading is the trimmed text of the first <h1> element.
	Heading string `json:"heading"`

	// Snippet is the normalized body text, at most MaxSnippetLength characters.
	// Navigation, scripts, styles and other chrome are stripped first.
	Snippet string `json:"snippet"`
}

// Extractor derives a Signal from raw HTML.
type Extractor interface {
	// Extract parses html and returns its signal. It never fails:
	// malformed markup yields a best-effort result, empty input an empty one.
	// Implementations must be deterministic.
	Extract(html string) Signal
}
