package mock

import (
	"context"

	"github.com/fwojciec/pagesignal"
)

var (
	_ pagesignal.Fetcher       = (*Fetcher)(nil)
	_ pagesignal.DomainLimiter = (*DomainLimiter)(nil)
)

// Fetcher is a mock implementation of pagesignal.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*pagesignal.FetchResult, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*pagesignal.FetchResult, error) {
	return f.FetchFn(ctx, url)
}

// DomainLimiter is a mock implementation of pagesignal.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
