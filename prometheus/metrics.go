// Package prometheus instruments pagesignal with Prometheus metrics.
package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/fwojciec/pagesignal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeOK labels successful fetches.
const OutcomeOK = "ok"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	FetchesTotal        *prometheus.CounterVec
	FetchDuration       prometheus.Histogram
	FetchBytes          prometheus.Histogram
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagesignal",
			Name:      "fetches_total",
			Help:      "Total number of fetches by outcome (ok or failure code).",
		}, []string{"outcome"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pagesignal",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetches, including redirects and body reads.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		FetchBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pagesignal",
			Name:      "fetch_body_bytes",
			Help:      "Size of successfully fetched bodies.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagesignal",
			Name:      "http_requests_total",
			Help:      "Total number of API requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pagesignal",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveRequest records one API request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// Ensure Fetcher implements pagesignal.Fetcher.
var _ pagesignal.Fetcher = (*Fetcher)(nil)

// Fetcher wraps a Fetcher and records fetch metrics.
type Fetcher struct {
	next    pagesignal.Fetcher
	metrics *Metrics
}

// NewFetcher creates a new Fetcher.
func NewFetcher(next pagesignal.Fetcher, metrics *Metrics) *Fetcher {
	return &Fetcher{next: next, metrics: metrics}
}

// Fetch delegates to the wrapped fetcher.
func (f *Fetcher) Fetch(ctx context.Context, url string) (res *pagesignal.FetchResult, err error) {
	defer func(begin time.Time) {
		f.metrics.FetchDuration.Observe(time.Since(begin).Seconds())
		if err != nil {
			f.metrics.FetchesTotal.WithLabelValues(pagesignal.ErrorCode(err)).Inc()
			return
		}
		f.metrics.FetchesTotal.WithLabelValues(OutcomeOK).Inc()
		if res != nil {
			f.metrics.FetchBytes.Observe(float64(len(res.Body)))
		}
	}(time.Now())
	return f.next.Fetch(ctx, url)
}
