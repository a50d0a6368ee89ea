// Package slog decorates pagesignal services with structured logging.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/pagesignal"
)

// Ensure LoggingFetcher implements pagesignal.Fetcher.
var _ pagesignal.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging.
type LoggingFetcher struct {
	next   pagesignal.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next pagesignal.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the outcome. Failures are
// expected for untrusted input, so they are logged at warn level with their
// code rather than as errors.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (res *pagesignal.FetchResult, err error) {
	logger := loggerFor(ctx, f.logger)
	defer func(begin time.Time) {
		if err != nil {
			logger.Warn("fetch",
				"url", url,
				"code", pagesignal.ErrorCode(err),
				"duration", time.Since(begin),
				"err", pagesignal.ErrorMessage(err),
			)
			return
		}
		logger.Info("fetch",
			"url", url,
			"final_url", res.FinalURL,
			"bytes", len(res.Body),
			"duration", time.Since(begin),
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}
