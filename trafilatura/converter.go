// Package trafilatura renders snippets from the main article text of a page
// using go-trafilatura.
package trafilatura

import (
	"strings"

	"github.com/fwojciec/pagesignal"
	"github.com/markusmobius/go-trafilatura"
)

var _ pagesignal.Converter = (*Converter)(nil)

// Converter keeps only the main content of cleaned HTML, dropping the
// boilerplate that survives tag-level stripping (sidebars in plain divs,
// cookie banners, related-link lists).
type Converter struct {
	opts trafilatura.Options
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	return &Converter{
		opts: trafilatura.Options{
			EnableFallback: true,
		},
	}
}

// Convert returns the plain text of the main content in html.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", pagesignal.Errorf(pagesignal.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(html), c.opts)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(result.ContentText)
	if text == "" {
		return "", pagesignal.Errorf(pagesignal.EINVALID, "no main content found")
	}
	return text, nil
}
