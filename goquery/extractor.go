// Package goquery implements pagesignal.Extractor on top of goquery.
package goquery

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/pagesignal"
	"golang.org/x/net/html"
)

// Ensure Extractor implements pagesignal.Extractor at compile time.
var _ pagesignal.Extractor = (*Extractor)(nil)

// Elements that never carry page content.
const noiseSelector = "script, style, noscript, svg, nav, header, footer, aside, template, iframe"

// Embedded media is dropped so that alt text and fallbacks don't leak into
// the snippet.
const mediaSelector = "img, picture, video, audio, canvas, object, embed, map"

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// Extractor derives title, heading and a text snippet from HTML.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	converter     pagesignal.Converter
	snippetLength int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConverter renders the cleaned body with c instead of the built-in
// plain-text renderer. A conversion error or empty result falls back to
// plain text.
func WithConverter(c pagesignal.Converter) Option {
	return func(e *Extractor) {
		e.converter = c
	}
}

// WithSnippetLength sets the maximum snippet length in characters.
// Defaults to pagesignal.MaxSnippetLength.
func WithSnippetLength(n int) Option {
	return func(e *Extractor) {
		e.snippetLength = n
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{snippetLength: pagesignal.MaxSnippetLength}
	for _, opt := range opts {
		opt(e)
	}
	if e.snippetLength <= 0 {
		e.snippetLength = pagesignal.MaxSnippetLength
	}
	return e
}

// Extract returns the signal of raw. Parsing is tolerant of malformed
// markup, so Extract never fails.
func (e *Extractor) Extract(raw string) pagesignal.Signal {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return pagesignal.Signal{}
	}

	// Title and heading are read before any element is removed, so an <h1>
	// inside <header> still counts.
	signal := pagesignal.Signal{
		TitleTag: collapseSpace(doc.Find("title").First().Text()),
		Heading:  collapseSpace(doc.Find("h1").First().Text()),
	}

	body := doc.Find("body")
	body.Find(noiseSelector).Remove()
	body.Find(mediaSelector).Remove()
	body.Find("a").Each(func(_ int, a *goquery.Selection) {
		if contents := a.Contents(); contents.Length() > 0 {
			contents.Unwrap()
		} else {
			a.Remove()
		}
	})

	signal.Snippet = truncate(e.render(body), e.snippetLength)
	return signal
}

func (e *Extractor) render(body *goquery.Selection) string {
	if e.converter != nil {
		if inner, err := body.Html(); err == nil && strings.TrimSpace(inner) != "" {
			if out, err := e.converter.Convert(inner); err == nil {
				if out = normalizeMarkup(out); out != "" {
					return out
				}
			}
		}
	}

	var b strings.Builder
	for _, n := range body.Nodes {
		writeText(&b, n, false)
	}
	return NormalizeText(b.String())
}

// Elements rendered as separate paragraphs.
var paragraphElements = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "ul": true, "ol": true, "dl": true, "table": true,
	"section": true, "article": true, "main": true, "figure": true, "form": true,
	"fieldset": true, "address": true, "hr": true,
}

// Elements rendered on their own line.
var lineElements = map[string]bool{
	"div": true, "li": true, "tr": true, "dt": true, "dd": true, "figcaption": true,
	"caption": true, "summary": true, "details": true, "thead": true,
	"tbody": true, "tfoot": true, "legend": true, "label": true,
}

func writeText(b *strings.Builder, n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		if pre {
			b.WriteString(n.Data)
			return
		}
		// Surrounding space separates words across inline elements;
		// NormalizeText collapses the excess.
		if strings.TrimLeftFunc(n.Data, unicode.IsSpace) != n.Data {
			b.WriteByte(' ')
		}
		b.WriteString(strings.Join(strings.Fields(n.Data), " "))
		if strings.TrimRightFunc(n.Data, unicode.IsSpace) != n.Data {
			b.WriteByte(' ')
		}
		return
	case html.ElementNode, html.DocumentNode:
	default:
		return
	}

	var breaks int
	switch {
	case n.Data == "br":
		b.WriteByte('\n')
		return
	case n.Data == "td" || n.Data == "th":
		b.WriteByte(' ')
	case paragraphElements[n.Data]:
		breaks = 2
	case lineElements[n.Data]:
		breaks = 1
	}

	ensureBreaks(b, breaks)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c, pre || n.Data == "pre")
	}
	ensureBreaks(b, breaks)
}

// ensureBreaks ends b with at least n newlines, ignoring trailing blanks.
func ensureBreaks(b *strings.Builder, n int) {
	s := b.String()
	if n == 0 || s == "" {
		return
	}
	var have int
	for i := len(s) - 1; i >= 0 && have < n; i-- {
		if s[i] == '\n' {
			have++
		} else if s[i] != ' ' && s[i] != '\t' {
			break
		}
	}
	b.WriteString(strings.Repeat("\n", n-have))
}

// NormalizeText collapses whitespace within each line, reduces runs of three
// or more newlines to exactly two and trims the result.
func NormalizeText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	s = strings.Join(lines, "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// normalizeMarkup is NormalizeText for converter output: leading
// indentation is meaningful there, so only trailing space is removed.
func normalizeMarkup(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate returns the first n characters of s.
func truncate(s string, n int) string {
	var count int
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
