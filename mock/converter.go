package mock

import "github.com/fwojciec/pagesignal"

var _ pagesignal.Converter = (*Converter)(nil)

// Converter is a mock implementation of pagesignal.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
