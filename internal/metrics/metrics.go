// Package metrics exposes Prometheus collectors for scrape sessions.
//
// A Collector owns its registry instead of registering on the global
// default one, so several clients in one process (and parallel tests) do
// not collide on metric names.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/sitescribe/internal/model"
)

const namespace = "sitescribe"

// Session outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeTruncated = "truncated"
	OutcomeFailed    = "failed"
)

// Collector records crawl and session metrics.
// It implements crawler.Recorder and is safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	pagesFetched    *prometheus.CounterVec
	fetchRetries    prometheus.Counter
	fetchFailures   *prometheus.CounterVec
	linksDropped    prometheus.Counter
	sessions        *prometheus.CounterVec
	documents       prometheus.Counter
	sessionDuration prometheus.Histogram
}

// NewCollector creates a Collector with its own registry.
// The registry also carries the Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_fetched_total",
				Help:      "Total number of successfully fetched pages, labeled by status code.",
			},
			[]string{"status_code"},
		),
		fetchRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_retries_total",
				Help:      "Total number of fetch retries after transient failures.",
			},
		),
		fetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Total number of pages skipped after a failed fetch, labeled by failure kind.",
			},
			[]string{"kind"},
		),
		linksDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "links_dropped_total",
				Help:      "Total number of discovered links rejected by domain or pattern policy.",
			},
		),
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of finished scrape sessions, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		documents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_total",
				Help:      "Total number of synthesized documents.",
			},
		),
		sessionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_duration_seconds",
				Help:      "Wall-clock duration of scrape sessions in seconds.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.pagesFetched,
		c.fetchRetries,
		c.fetchFailures,
		c.linksDropped,
		c.sessions,
		c.documents,
		c.sessionDuration,
	)
	return c
}

// PageFetched counts a successful fetch.
func (c *Collector) PageFetched(statusCode int) {
	c.pagesFetched.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// FetchRetried counts a retry.
func (c *Collector) FetchRetried() {
	c.fetchRetries.Inc()
}

// FetchFailed counts a skipped page.
func (c *Collector) FetchFailed(kind string) {
	c.fetchFailures.WithLabelValues(kind).Inc()
}

// LinkDropped counts a link rejected by policy.
func (c *Collector) LinkDropped() {
	c.linksDropped.Inc()
}

// SessionFinished records the outcome, document count and duration of s.
// A nil session is ignored.
func (c *Collector) SessionFinished(s *model.Session) {
	if s == nil {
		return
	}
	c.sessions.WithLabelValues(Outcome(s)).Inc()
	c.documents.Add(float64(len(s.Documents)))
	if d := s.Duration(); d > 0 {
		c.sessionDuration.Observe(d.Seconds())
	}
}

// Outcome returns the outcome label for a finished session.
// A failed session is "failed" even when it was also truncated.
func Outcome(s *model.Session) string {
	switch {
	case s.Failed():
		return OutcomeFailed
	case s.Truncated:
		return OutcomeTruncated
	default:
		return OutcomeCompleted
	}
}

// Handler returns an HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve exposes the metrics on addr at /metrics until ctx is cancelled.
// It returns nil after a clean shutdown.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("exposing prometheus metrics", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}
