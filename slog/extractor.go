package slog

import (
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/pagesignal"
)

// Ensure LoggingExtractor implements pagesignal.Extractor.
var _ pagesignal.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging.
type LoggingExtractor struct {
	next   pagesignal.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next pagesignal.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the signal size.
func (e *LoggingExtractor) Extract(html string) pagesignal.Signal {
	begin := time.Now()
	signal := e.next.Extract(html)
	e.logger.Debug("extract",
		"title", signal.TitleTag,
		"html_bytes", len(html),
		"snippet_chars", utf8.RuneCountInString(signal.Snippet),
		"duration", time.Since(begin),
	)
	return signal
}
