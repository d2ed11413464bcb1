package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/relevance"
)

// Spider crawls one site breadth-first from a seed URL.
//
// A Spider holds configuration only. All crawl state (visited set, frontier,
// results) lives inside a single Crawl call, so one Spider can run any
// number of sequential or concurrent crawls.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
type Spider struct {
	// fetcher is the retrying fetcher every page goes through.
	fetcher *RetryFetcher

	// workers is the number of fetches in flight at once within one BFS level.
	// 1 gives the sequential reference behavior.
	workers int

	// maxPages bounds the number of fetches per crawl. 0 means unbounded.
	maxPages int

	// sessionTimeout bounds the wall-clock time of one crawl. 0 means unbounded.
	sessionTimeout time.Duration

	// ignorePatterns are URL path patterns to skip during crawling.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	// If set, only URLs matching these patterns are crawled.
	followPatterns []string

	logger   *slog.Logger
	recorder Recorder

	// retryOpts are applied when the retrying fetcher is built.
	retryOpts []RetryOption
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithWorkers sets the number of concurrent fetches. Values below 1 mean 1.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		s.workers = max(n, 1)
	}
}

// WithMaxPages sets the maximum number of pages fetched per crawl.
// 0 disables the budget.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = max(maxPages, 0)
	}
}

// WithSessionTimeout bounds the wall-clock time of one crawl. When it
// expires the crawl stops and returns what it collected so far.
func WithSessionTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.sessionTimeout = d
	}
}

// WithMaxAttempts sets how many times a transiently failing URL is tried.
func WithMaxAttempts(n int) SpiderOption {
	return func(s *Spider) {
		s.retryOpts = append(s.retryOpts, WithAttempts(n))
	}
}

// WithBackoff sets the delay policy between attempts.
func WithBackoff(b Backoff) SpiderOption {
	return func(s *Spider) {
		s.retryOpts = append(s.retryOpts, WithBackoffPolicy(b))
	}
}

// WithRetrySleep replaces the sleep between attempts. Tests use it to
// retry without waiting.
func WithRetrySleep(sleep func(ctx context.Context, d time.Duration) error) SpiderOption {
	return func(s *Spider) {
		s.retryOpts = append(s.retryOpts, WithSleep(sleep))
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
// The seed itself is always fetched.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) SpiderOption {
	return func(s *Spider) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewSpider creates a Spider that fetches pages through fetcher.
// The fetcher is wrapped in a RetryFetcher; pass the plain transport-level
// Fetcher, not one that already retries.
func NewSpider(fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		workers:  1,
		logger:   slog.New(slog.DiscardHandler),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	retryOpts := append([]RetryOption{
		WithRetryLogger(s.logger),
		WithRetryRecorder(s.recorder),
	}, s.retryOpts...)
	s.fetcher = NewRetryFetcher(fetcher, retryOpts...)

	return s
}

// Result is the outcome of one crawl.
type Result struct {
	// Records holds the relevant records in discovery (BFS) order.
	Records []*model.ContentRecord

	// Failures lists the pages skipped after their fetch failed.
	Failures []model.FetchFailure

	// Stats summarizes the crawl.
	Stats model.CrawlStats

	// Truncated is set when the page budget or session timeout stopped
	// the crawl before the frontier was exhausted.
	Truncated bool
}

// task is one frontier entry.
type task struct {
	url       string
	remaining int
	depth     int
}

// outcome is what a worker learned about one task.
type outcome struct {
	resp     *Response
	finalURL string
	record   *model.ContentRecord
	relevant bool
	score    int
	err      error
}

// crawlState is the per-call state. It is only touched by the coordinating
// goroutine; workers report through outcome values.
type crawlState struct {
	seedHost   string
	visited    map[string]struct{}
	dispatched int
	result     *Result
}

// Crawl traverses the site reachable from seed, following same-host links
// up to maxDepth hops, and returns the records that are relevant to keywords.
//
// Traversal is level-synchronous breadth-first: every URL of one depth is
// fetched (up to the worker limit concurrently) before the next depth starts,
// and results are processed in discovery order, so the returned records are
// in BFS discovery order regardless of how many workers ran.
//
// Only session-level problems are returned as errors: an invalid seed
// (ErrInvalidSeedURL), a negative depth (ErrInvalidMaxDepth), or cancellation
// of ctx, in which case the partial result is returned along with ctx.Err().
// Page failures are recorded in Result.Failures and never abort the crawl.
// When the session timeout or page budget ends the crawl, the partial result
// is returned with Truncated set and a nil error.
func (s *Spider) Crawl(ctx context.Context, seed string, maxDepth int, keywords model.KeywordSet) (*Result, error) {
	seedURL, err := parseHTTPURL(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeedURL, seed)
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxDepth, maxDepth)
	}

	parent := ctx
	if s.sessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sessionTimeout)
		defer cancel()
	}

	start := normalizeURL(seedURL)
	state := &crawlState{
		seedHost: normalizeHost(strings.ToLower(seedURL.Scheme), seedURL.Host),
		visited:  map[string]struct{}{start: {}},
		result: &Result{
			Records:  make([]*model.ContentRecord, 0),
			Failures: make([]model.FetchFailure, 0),
		},
	}

	s.logger.Info("crawl started", "seed", start, "max_depth", maxDepth, "keywords", keywords.Len())

	level := []task{{url: start, remaining: maxDepth, depth: 0}}
	for len(level) > 0 && ctx.Err() == nil {
		if s.maxPages > 0 {
			room := s.maxPages - state.dispatched
			if room <= 0 {
				state.result.Truncated = true
				break
			}
			if len(level) > room {
				s.logger.Info("page budget reached", "max_pages", s.maxPages, "dropped", len(level)-room)
				level = level[:room]
				state.result.Truncated = true
			}
		}
		state.dispatched += len(level)

		outcomes := s.fetchLevel(ctx, level, state.seedHost, keywords)

		var next []task
		for i, out := range outcomes {
			next = append(next, s.process(ctx, state, level[i], out)...)
		}
		level = next
	}

	res := state.result
	if err := parent.Err(); err != nil {
		return res, err
	}
	if ctx.Err() != nil {
		s.logger.Info("session timeout reached", "timeout", s.sessionTimeout)
		res.Truncated = true
	}

	s.logger.Info("crawl finished",
		"seed", start,
		"fetched", res.Stats.PagesFetched,
		"relevant", res.Stats.PagesRelevant,
		"failed", res.Stats.PagesFailed,
		"truncated", res.Truncated,
	)
	return res, nil
}

// fetchLevel fetches and extracts every task of one BFS level.
// Workers never cancel each other: one page's failure does not affect siblings.
func (s *Spider) fetchLevel(ctx context.Context, level []task, seedHost string, keywords model.KeywordSet) []outcome {
	outcomes := make([]outcome, len(level))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, t := range level {
		g.Go(func() error {
			outcomes[i] = s.visit(ctx, t, seedHost, keywords)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers always return nil

	return outcomes
}

// visit fetches one URL and extracts and filters its content.
// A response served from another host than seedHost is a failure: its
// content must not be recorded under a seed-host URL.
func (s *Spider) visit(ctx context.Context, t task, seedHost string, keywords model.KeywordSet) outcome {
	resp, err := s.fetcher.Fetch(ctx, t.url)
	if err != nil {
		return outcome{err: err}
	}

	finalURL := t.url
	if resp.URL != "" {
		u, err := parseHTTPURL(resp.URL)
		if err != nil || normalizeHost(strings.ToLower(u.Scheme), u.Host) != seedHost {
			return outcome{err: &FetchError{
				URL:        t.url,
				StatusCode: resp.StatusCode,
				Kind:       KindPermanent,
				Attempts:   1,
				Err:        fmt.Errorf("%w: served from %s", ErrOffSiteRedirect, resp.URL),
			}}
		}
		finalURL = normalizeURL(u)
	}
	if !resp.IsHTML() {
		return outcome{resp: resp, finalURL: finalURL}
	}

	rec, err := Extract(bytes.NewReader(resp.Body), finalURL)
	if err != nil || resp.Truncated {
		s.logger.Warn("degraded extraction", "url", t.url, "truncated", resp.Truncated, "error", err)
	}
	rec.SourceURL = t.url
	rec.Depth = t.depth

	return outcome{
		resp:     resp,
		finalURL: finalURL,
		record:   rec,
		relevant: relevance.IsRelevant(rec, keywords),
		score:    relevance.Score(rec, keywords),
	}
}

// process folds one outcome into the crawl state and returns the tasks
// it discovered for the next level.
func (s *Spider) process(ctx context.Context, state *crawlState, t task, out outcome) []task {
	res := state.result

	if out.err != nil {
		if isCancellation(ctx, out.err) {
			return nil
		}
		failure := model.FetchFailure{
			URL:     t.url,
			Depth:   t.depth,
			Kind:    KindPermanent.String(),
			Message: out.err.Error(),
		}
		var fe *FetchError
		if errors.As(out.err, &fe) {
			failure.Kind = fe.Kind.String()
			failure.StatusCode = fe.StatusCode
			failure.Attempts = fe.Attempts
		}
		res.Failures = append(res.Failures, failure)
		res.Stats.PagesFailed++
		s.recorder.FetchFailed(failure.Kind)
		s.logger.Warn("skipping page",
			"url", t.url,
			"kind", failure.Kind,
			"attempts", failure.Attempts,
			"error", out.err,
		)
		return nil
	}

	res.Stats.PagesFetched++
	s.recorder.PageFetched(out.resp.StatusCode)

	// A redirect may land on a page the crawl already owns, as with
	// /index.html -> /. Only the first URL to reach a page records it.
	if out.finalURL != "" && out.finalURL != t.url {
		if _, seen := state.visited[out.finalURL]; seen {
			res.Stats.PagesSkipped++
			s.logger.Debug("skipping redirect to visited page", "url", t.url, "final_url", out.finalURL)
			return nil
		}
		state.visited[out.finalURL] = struct{}{}
	}

	if out.record == nil {
		res.Stats.PagesSkipped++
		s.logger.Debug("skipping non-HTML page", "url", t.url, "content_type", out.resp.ContentType)
		return nil
	}

	s.logger.Debug("page fetched",
		"url", t.url,
		"depth", t.depth,
		"relevant", out.relevant,
		"matched_keywords", out.score,
	)
	if out.relevant {
		res.Records = append(res.Records, out.record)
		res.Stats.PagesRelevant++
	}

	if t.remaining == 0 {
		return nil
	}

	var next []task
	for _, link := range out.record.Links {
		u, ok := s.admit(state, link)
		if !ok {
			res.Stats.LinksDropped++
			s.recorder.LinkDropped()
			continue
		}
		if _, seen := state.visited[u]; seen {
			continue
		}
		state.visited[u] = struct{}{}
		next = append(next, task{url: u, remaining: t.remaining - 1, depth: t.depth + 1})
	}
	return next
}

// admit checks a discovered link against the crawl policy and returns its
// normalized form. Links that are malformed, not http(s), on another host,
// or excluded by patterns are rejected.
func (s *Spider) admit(state *crawlState, link string) (string, bool) {
	u, err := parseHTTPURL(link)
	if err != nil {
		return "", false
	}
	if normalizeHost(strings.ToLower(u.Scheme), u.Host) != state.seedHost {
		return "", false
	}
	if !s.shouldCrawl(u) {
		return "", false
	}
	return normalizeURL(u), true
}

// CheckSeed reports whether seed is acceptable to Crawl.
func CheckSeed(seed string) error {
	if _, err := parseHTTPURL(seed); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSeedURL, seed)
	}
	return nil
}

// Host returns the normalized host of rawURL, or "" if it cannot be parsed.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return normalizeHost(strings.ToLower(u.Scheme), u.Host)
}
