// Package batch turns a list of untrusted URLs into an ordered report.
package batch

import (
	"context"
	"net/url"
	"sync/atomic"

	"github.com/fwojciec/pagesignal"
	"golang.org/x/sync/errgroup"
)

var _ pagesignal.Processor = (*Processor)(nil)

// Processor admits URLs, then fetches and extracts each one concurrently.
// Every admitted URL owns one slot of the report, so results keep
// admission order regardless of completion order.
type Processor struct {
	Fetcher     pagesignal.Fetcher
	Extractor   pagesignal.Extractor
	RateLimiter pagesignal.DomainLimiter // optional
	MaxURLs     int
	Concurrency int
	Progress    ProgressFunc // optional
}

// ProgressEvent reports progress during a batch.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	URL       string
	Error     string
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting batch progress. It may be called
// from several goroutines at once.
type ProgressFunc func(event ProgressEvent)

// Process implements pagesignal.Processor. Per-URL failures never abort the
// batch; only a cancelled context or a panic while processing a URL does.
func (p *Processor) Process(ctx context.Context, rawURLs []string) (pagesignal.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	urls := pagesignal.Admit(rawURLs, p.MaxURLs)
	report := make(pagesignal.Report, len(urls))
	total := len(urls)

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = max(total, 1)
	}

	p.notify(ProgressEvent{Type: ProgressStarted, Total: total})

	var completed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range urls {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = pagesignal.Errorf(pagesignal.EINTERNAL, "processing %s: %v", u, r)
				}
			}()

			outcome := p.processURL(gctx, u)
			report[i] = outcome

			event := ProgressEvent{
				Type:      ProgressCompleted,
				Completed: int(completed.Add(1)),
				Total:     total,
				URL:       u,
			}
			if !outcome.OK {
				event.Type = ProgressFailed
				event.Error = outcome.Error
			}
			p.notify(event)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.notify(ProgressEvent{Type: ProgressFinished, Completed: total, Total: total})
	return report, nil
}

func (p *Processor) processURL(ctx context.Context, rawURL string) *pagesignal.Outcome {
	if p.RateLimiter != nil {
		if err := p.RateLimiter.Wait(ctx, hostOf(rawURL)); err != nil {
			return pagesignal.Failed(rawURL, pagesignal.Errorf(pagesignal.ETIMEOUT, "rate limit wait: %v", err))
		}
	}

	res, err := p.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return pagesignal.Failed(rawURL, err)
	}
	if res == nil {
		return pagesignal.Failed(rawURL, pagesignal.Errorf(pagesignal.EINTERNAL, "fetcher returned no result"))
	}

	return pagesignal.Succeeded(rawURL, res.FinalURL, p.Extractor.Extract(res.Body))
}

func (p *Processor) notify(event ProgressEvent) {
	if p.Progress != nil {
		p.Progress(event)
	}
}

// hostOf returns the lowercase host of an admitted URL.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
