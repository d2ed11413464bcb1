package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// Backoff computes the delay before the next attempt.
// attempt is the number of attempts already made, starting at 1.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// ConstantBackoff waits the same interval between all attempts.
type ConstantBackoff struct {
	Interval time.Duration
}

// Delay implements Backoff.
func (b ConstantBackoff) Delay(_ int) time.Duration {
	return max(b.Interval, 0)
}

// ExponentialBackoff doubles (or multiplies by Multiplier) the delay after
// every attempt, up to Max. Jitter randomizes each delay within
// [d*(1-Jitter), d*(1+Jitter)] so concurrent retries spread out.
type ExponentialBackoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Delay implements Backoff.
func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 2
	}

	d := float64(b.Initial) * math.Pow(mult, float64(attempt-1))
	if b.Jitter > 0 {
		j := min(b.Jitter, 1)
		d *= 1 - j + 2*j*rand.Float64() //nolint:gosec // jitter does not need a CSPRNG
	}
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}

// RetryFetcher wraps a Fetcher with the retry policy.
//
// Transient failures (network errors, timeouts, 5xx, 408, 425, 429) are
// retried until maxAttempts attempts were made. Permanent failures (invalid
// URL, other 4xx) are returned after the first attempt. Every failure is
// returned as a *FetchError carrying the last observed error; RetryFetcher
// never panics on a failing fetch.
type RetryFetcher struct {
	next        Fetcher
	maxAttempts int
	backoff     Backoff
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
	recorder    Recorder
}

// RetryOption configures a RetryFetcher.
type RetryOption func(*RetryFetcher)

// WithAttempts sets the maximum number of attempts per URL. Values below 1 mean 1.
func WithAttempts(n int) RetryOption {
	return func(r *RetryFetcher) {
		r.maxAttempts = max(n, 1)
	}
}

// WithBackoffPolicy sets the delay policy between attempts.
func WithBackoffPolicy(b Backoff) RetryOption {
	return func(r *RetryFetcher) {
		if b != nil {
			r.backoff = b
		}
	}
}

// WithSleep replaces the context-aware sleep used between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *RetryFetcher) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithRetryLogger sets the logger for retry events.
func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(r *RetryFetcher) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetryRecorder sets the metrics recorder.
func WithRetryRecorder(rec Recorder) RetryOption {
	return func(r *RetryFetcher) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRetryFetcher wraps next with the default policy: 3 attempts with
// exponential backoff starting at 500ms and capped at 5s.
func NewRetryFetcher(next Fetcher, opts ...RetryOption) *RetryFetcher {
	r := &RetryFetcher{
		next:        next,
		maxAttempts: 3,
		backoff: ExponentialBackoff{
			Initial:    500 * time.Millisecond,
			Max:        5 * time.Second,
			Multiplier: 2,
			Jitter:     0.2,
		},
		sleep:    sleepContext,
		logger:   slog.New(slog.DiscardHandler),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch fetches rawURL, retrying transient failures.
// A successful result is a response with a status below 400.
func (r *RetryFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	var (
		lastErr    error
		lastStatus int
		kind       FailureKind
	)

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		resp, err := r.next.Fetch(ctx, rawURL)
		switch {
		case err != nil:
			lastErr, lastStatus, kind = err, 0, classifyError(err)
		case resp.StatusCode >= http.StatusBadRequest:
			lastErr = fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
			lastStatus, kind = resp.StatusCode, classifyStatus(resp.StatusCode)
		default:
			return resp, nil
		}

		// A cancelled session is not the page's fault; report the cause as is.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &FetchError{URL: rawURL, StatusCode: lastStatus, Kind: KindPermanent, Attempts: attempt, Err: ctxErr}
		}
		if kind == KindPermanent || attempt == r.maxAttempts {
			return nil, &FetchError{URL: rawURL, StatusCode: lastStatus, Kind: kind, Attempts: attempt, Err: lastErr}
		}

		delay := r.backoff.Delay(attempt)
		r.recorder.FetchRetried()
		r.logger.Debug("retrying fetch",
			"url", rawURL,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, &FetchError{URL: rawURL, StatusCode: lastStatus, Kind: KindPermanent, Attempts: attempt, Err: err}
		}
	}

	// Unreachable with maxAttempts >= 1, kept for the compiler.
	return nil, &FetchError{URL: rawURL, StatusCode: lastStatus, Kind: kind, Attempts: r.maxAttempts, Err: lastErr}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isCancellation reports whether err stems from ctx being done.
func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
