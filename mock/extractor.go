package mock

import "github.com/fwojciec/pagesignal"

var _ pagesignal.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of pagesignal.Extractor.
type Extractor struct {
	ExtractFn func(html string) pagesignal.Signal
}

func (e *Extractor) Extract(html string) pagesignal.Signal {
	return e.ExtractFn(html)
}
