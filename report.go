package pagesignal

import (
	"context"
	"errors"
)

// Outcome is the result of processing one admitted URL.
// Exactly one of Signal and Error is set, matching OK.
type Outcome struct {
	URL      string  `json:"url"`
	OK       bool    `json:"ok"`
	FinalURL string  `json:"finalUrl,omitempty"`
	Signal   *Signal `json:"signal,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Succeeded returns a successful outcome for url.
func Succeeded(url, finalURL string, signal Signal) *Outcome {
	return &Outcome{
		URL:      url,
		OK:       true,
		FinalURL: finalURL,
		Signal:   &signal,
	}
}

// Failed returns a failed outcome for url describing err.
func Failed(url string, err error) *Outcome {
	msg := err.Error()
	var e *Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	return &Outcome{
		URL:   url,
		Error: msg,
	}
}

// Report holds one outcome per admitted URL, in admission order.
type Report []*Outcome

// Failures returns the number of failed outcomes.
func (r Report) Failures() int {
	var n int
	for _, o := range r {
		if !o.OK {
			n++
		}
	}
	return n
}

// Processor turns a raw list of caller-supplied URLs into a Report.
type Processor interface {
	// Process admits rawURLs, then fetches and extracts each admitted URL.
	// Per-URL failures are reported in the Report; an error is returned
	// only for faults that invalidate the whole batch.
	Process(ctx context.Context, rawURLs []string) (Report, error)
}
