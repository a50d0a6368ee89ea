// Package htmltomarkdown renders snippet bodies as Markdown.
package htmltomarkdown

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/pagesignal"
)

var _ pagesignal.Converter = (*Converter)(nil)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Converter renders cleaned HTML as a Markdown snippet. Headings, lists,
// emphasis, code and tables survive; blank-line runs are collapsed and the
// output is capped at maxLength characters.
type Converter struct {
	md        *converter.Converter
	maxLength int
}

// Option configures a Converter.
type Option func(*Converter)

// WithMaxLength caps the output at n characters. Non-positive n disables the cap.
func WithMaxLength(n int) Option {
	return func(c *Converter) {
		c.maxLength = n
	}
}

// NewConverter returns a Converter capped at pagesignal.MaxSnippetLength.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		md: converter.NewConverter(converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		)),
		maxLength: pagesignal.MaxSnippetLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert renders an HTML fragment as Markdown.
func (c *Converter) Convert(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", pagesignal.Errorf(pagesignal.EINVALID, "empty HTML input")
	}

	md, err := c.md.ConvertString(fragment)
	if err != nil {
		return "", pagesignal.Errorf(pagesignal.EINVALID, "convert HTML: %v", err)
	}
	return c.tidy(md), nil
}

// tidy strips trailing space from every line, keeps at most one blank line
// between blocks and applies the length cap. Leading indentation is kept
// because nested lists and code blocks depend on it.
func (c *Converter) tidy(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	md = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	md = strings.TrimSpace(md)

	if c.maxLength <= 0 {
		return md
	}
	var n int
	for i := range md {
		if n == c.maxLength {
			return strings.TrimRightFunc(md[:i], unicode.IsSpace)
		}
		n++
	}
	return md
}
