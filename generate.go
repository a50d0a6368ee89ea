package pagesignal

import (
	"math"
	"strconv"
	"strings"
)

// GenerateNext is the placeholder returned in place of generated copy.
const GenerateNext = "Copy generation is not implemented; signals were extracted from the supplied links."

// GenerateInput is the validated body of a generate request.
type GenerateInput struct {
	Title string   `json:"title"`
	Price string   `json:"price"`
	Pages float64  `json:"pages"`
	Links []string `json:"links"`
}

// ParseGenerateRequest validates a decoded JSON request body. Scalar fields
// may arrive as strings, numbers or booleans; falsy values count as missing.
// Non-string link entries are ignored and the remaining links are trimmed,
// with blanks dropped. Links is never nil.
func ParseGenerateRequest(body map[string]any) (*GenerateInput, error) {
	title := strings.TrimSpace(looseString(body["title"]))
	price := strings.TrimSpace(looseString(body["price"]))
	pagesRaw := strings.TrimSpace(looseString(body["pages"]))

	links := []string{}
	if raw, ok := body["links"].([]any); ok {
		for _, v := range raw {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				links = append(links, s)
			}
		}
	}

	if title == "" {
		return nil, Errorf(EINVALID, "Missing title.")
	}
	if price == "" {
		return nil, Errorf(EINVALID, "Missing price.")
	}
	if pagesRaw == "" {
		return nil, Errorf(EINVALID, "Missing pages.")
	}

	pages, err := strconv.ParseFloat(pagesRaw, 64)
	if err != nil || math.IsNaN(pages) || math.IsInf(pages, 0) || pages <= 0 {
		return nil, Errorf(EINVALID, "Pages must be a positive number.")
	}

	return &GenerateInput{
		Title: title,
		Price: price,
		Pages: pages,
		Links: links,
	}, nil
}

// looseString converts a decoded JSON value to text, treating falsy values
// (null, false, zero and the empty string) as empty.
func looseString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if !v {
			return ""
		}
		return "true"
	case float64:
		if v == 0 || math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
