package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/pagesignal"
	"github.com/google/uuid"
)

// Ensure LoggingProcessor implements pagesignal.Processor.
var _ pagesignal.Processor = (*LoggingProcessor)(nil)

// LoggingProcessor wraps a Processor with logging. Each batch gets a random
// id so its fetch lines can be correlated.
type LoggingProcessor struct {
	next   pagesignal.Processor
	logger *slog.Logger
}

// NewLoggingProcessor creates a new LoggingProcessor.
func NewLoggingProcessor(next pagesignal.Processor, logger *slog.Logger) *LoggingProcessor {
	return &LoggingProcessor{next: next, logger: logger}
}

// Process delegates to the wrapped processor and logs a batch summary.
func (p *LoggingProcessor) Process(ctx context.Context, rawURLs []string) (report pagesignal.Report, err error) {
	batchID := uuid.NewString()
	ctx = context.WithValue(ctx, batchIDKey{}, batchID)
	defer func(begin time.Time) {
		p.logger.Info("batch",
			"batch_id", batchID,
			"submitted", len(rawURLs),
			"admitted", len(report),
			"failed", report.Failures(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Process(ctx, rawURLs)
}

type batchIDKey struct{}

// loggerFor returns logger annotated with the batch id carried by ctx.
func loggerFor(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id, ok := ctx.Value(batchIDKey{}).(string); ok {
		return logger.With("batch_id", id)
	}
	return logger
}
