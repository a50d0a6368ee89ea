package pagesignal

import "context"

// FetchResult is the body retrieved for one URL.
type FetchResult struct {
	// Body is the HTML decoded to UTF-8.
	Body string

	// FinalURL is the URL the body was served from after redirects.
	FinalURL string
}

// Fetcher retrieves HTML from untrusted URLs.
type Fetcher interface {
	// Fetch issues a GET for url and returns its HTML body.
	// Failures are returned as *Error values whose code names the failure
	// kind (EPRIVATE, ETIMEOUT, ETOOLARGE, ...).
	// The context controls cancellation; implementations add their own
	// overall deadline on top of it.
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled before the wait completes.
	Wait(ctx context.Context, domain string) error
}
