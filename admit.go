package pagesignal

import (
	"net/url"
	"strings"
)

// Admit returns the candidates that are absolute http or https URLs with a
// host, in input order, with blanks dropped and the result truncated to max
// entries. Duplicates are kept; each one owns a slot of the report. A non-positive max selects
// DefaultMaxURLs. Admit performs no network I/O.
func Admit(candidates []string, max int) []string {
	if max <= 0 {
		max = DefaultMaxURLs
	}

	admitted := make([]string, 0, min(len(candidates), max))
	for _, c := range candidates {
		if len(admitted) == max {
			break
		}
		c = strings.TrimSpace(c)
		if c == "" || !isHTTPURL(c) {
			continue
		}
		admitted = append(admitted, c)
	}
	return admitted
}

// isHTTPURL reports whether raw parses as an absolute http(s) URL with a host.
func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}
	return u.Hostname() != ""
}
