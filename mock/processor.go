package mock

import (
	"context"

	"github.com/fwojciec/pagesignal"
)

var _ pagesignal.Processor = (*Processor)(nil)

// Processor is a mock implementation of pagesignal.Processor.
type Processor struct {
	ProcessFn func(ctx context.Context, rawURLs []string) (pagesignal.Report, error)
}

func (p *Processor) Process(ctx context.Context, rawURLs []string) (pagesignal.Report, error) {
	return p.ProcessFn(ctx, rawURLs)
}
