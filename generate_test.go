package pagesignal_test

import (
	"testing"

	"github.com/fwojciec/pagesignal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenerateRequest(t *testing.T) {
	t.Parallel()

	t.Run("accepts a complete request", func(t *testing.T) {
		t.Parallel()

		in, err := pagesignal.ParseGenerateRequest(map[string]any{
			"title": "  Field Guide ",
			"price": "19.99",
			"pages": "240",
			"links": []any{" https://a.example ", "", 42, nil, "https://b.example"},
		})

		require.NoError(t, err)
		assert.Equal(t, "Field Guide", in.Title)
		assert.Equal(t, "19.99", in.Price)
		assert.InDelta(t, 240.0, in.Pages, 0)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, in.Links)
	})

	t.Run("accepts numeric fields", func(t *testing.T) {
		t.Parallel()

		in, err := pagesignal.ParseGenerateRequest(map[string]any{
			"title": "T",
			"price": 9.5,
			"pages": 12.0,
		})

		require.NoError(t, err)
		assert.Equal(t, "9.5", in.Price)
		assert.InDelta(t, 12.0, in.Pages, 0)
		assert.NotNil(t, in.Links)
		assert.Empty(t, in.Links)
	})

	for _, tc := range []struct {
		name string
		body map[string]any
		msg  string
	}{
		{"missing title", map[string]any{"price": "1", "pages": "1"}, "Missing title."},
		{"blank title", map[string]any{"title": "   ", "price": "1", "pages": "1"}, "Missing title."},
		{"false title", map[string]any{"title": false, "price": "1", "pages": "1"}, "Missing title."},
		{"missing price", map[string]any{"title": "T", "pages": "1"}, "Missing price."},
		{"zero price", map[string]any{"title": "T", "price": 0.0, "pages": "1"}, "Missing price."},
		{"missing pages", map[string]any{"title": "T", "price": "1"}, "Missing pages."},
		{"zero pages", map[string]any{"title": "T", "price": "1", "pages": 0.0}, "Missing pages."},
		{"negative pages", map[string]any{"title": "T", "price": "1", "pages": "-3"}, "Pages must be a positive number."},
		{"non-numeric pages", map[string]any{"title": "T", "price": "1", "pages": "many"}, "Pages must be a positive number."},
		{"infinite pages", map[string]any{"title": "T", "price": "1", "pages": "Inf"}, "Pages must be a positive number."},
		{"string zero pages", map[string]any{"title": "T", "price": "1", "pages": "0"}, "Pages must be a positive number."},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := pagesignal.ParseGenerateRequest(tc.body)

			assert.Equal(t, pagesignal.EINVALID, pagesignal.ErrorCode(err))
			assert.Equal(t, tc.msg, pagesignal.ErrorMessage(err))
		})
	}

	t.Run("ignores links that are not a list", func(t *testing.T) {
		t.Parallel()

		in, err := pagesignal.ParseGenerateRequest(map[string]any{
			"title": "T", "price": "1", "pages": "1", "links": "https://a.example",
		})

		require.NoError(t, err)
		assert.Empty(t, in.Links)
	})
}
