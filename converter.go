package pagesignal

// Converter renders cleaned HTML into text for a snippet.
type Converter interface {
	// Convert transforms HTML content into text.
	// The input has already been stripped of link targets, media and
	// non-content elements by an Extractor.
	Convert(html string) (string, error)
}
