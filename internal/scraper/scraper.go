package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/sitescribe/internal/config"
	"github.com/nao1215/sitescribe/internal/crawler"
	"github.com/nao1215/sitescribe/internal/database"
	"github.com/nao1215/sitescribe/internal/keyword"
	"github.com/nao1215/sitescribe/internal/metrics"
	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/pipeline"
)

var (
	// ErrInvalidSeedURL is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeedURL = crawler.ErrInvalidSeedURL

	// ErrInvalidMaxDepth is returned for a negative depth.
	ErrInvalidMaxDepth = crawler.ErrInvalidMaxDepth

	// ErrKeywordsUnavailable is returned under the "required" keyword policy
	// when no keywords could be obtained. No page is fetched in that case.
	ErrKeywordsUnavailable = keyword.ErrUnavailable
)

// stepValidate is the name of the seed validation step.
const stepValidate = "validate"

// Client runs scrape sessions.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger

	source keyword.Source
	policy keyword.Policy

	// fetcher replaces the per-site HTTP fetcher when set.
	fetcher crawler.Fetcher

	metrics    *metrics.Collector
	store      *database.Store
	retrySleep func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	progress   func(session *model.Session, done, total int)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithKeywordSource replaces the source selected by the configuration.
func WithKeywordSource(src keyword.Source) Option {
	return func(c *Client) {
		c.source = src
	}
}

// WithFetcher makes every session fetch through f instead of building an
// HTTP fetcher from the per-site configuration. Retries still apply.
func WithFetcher(f crawler.Fetcher) Option {
	return func(c *Client) {
		c.fetcher = f
	}
}

// WithMetrics records crawl and session metrics in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithStore saves every session finished by ScrapeAll in s.
func WithStore(s *database.Store) Option {
	return func(c *Client) {
		c.store = s
	}
}

// WithRetrySleep replaces the wait between fetch attempts.
func WithRetrySleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.retrySleep = sleep
	}
}

// WithClock sets the time source used for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithProgress registers a function called by ScrapeAll each time a session
// finishes. It is never called concurrently.
func WithProgress(fn func(session *model.Session, done, total int)) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// New creates a Client from cfg. A nil cfg uses config.NewConfig().
// cfg.Targets is not read; seeds are passed to Scrape and ScrapeAll.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.ValidateSettings(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	policy, err := keyword.ParsePolicy(cfg.KeywordPolicy)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.source == nil {
		src, err := keyword.NewSource(cfg.KeywordSource, keyword.OpenAIOptions{
			BaseURL:   cfg.LLMBaseURL,
			Model:     cfg.LLMModel,
			APIKeyEnv: cfg.APIKeyEnv,
			MaxTokens: cfg.LLMMaxTokens,
			Timeout:   cfg.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
		c.source = src
	}

	switch src := c.source.(type) {
	case *keyword.OpenAI:
		c.logger.Debug("keyword source selected", "source", "llm", "model", src.Model())
	case keyword.Heuristic:
		c.logger.Debug("keyword source selected", "source", "heuristic")
	}
	return c, nil
}

// Scrape crawls the site at url and returns the documents relevant to
// instructions, following links up to maxDepth hops from url.
//
// An empty instruction keeps every page. Pages that cannot be fetched are
// skipped; only session-level problems are returned as errors: an invalid
// url (ErrInvalidSeedURL), a negative depth (ErrInvalidMaxDepth), missing
// keywords under the required policy (ErrKeywordsUnavailable), or
// cancellation of ctx. When a page or time budget ends the crawl early the
// partial documents are returned with a nil error.
func (c *Client) Scrape(ctx context.Context, url, instructions string, maxDepth int) ([]model.Document, error) {
	session, err := c.Run(ctx, url, instructions, maxDepth)
	if err != nil {
		return nil, err
	}
	return session.Documents, nil
}

// Run is Scrape returning the whole session: keywords, stats, skipped
// pages and timing. The session is returned even when err is non-nil.
func (c *Client) Run(ctx context.Context, url, instructions string, maxDepth int) (*model.Session, error) {
	session := model.NewSession(url, instructions, maxDepth)
	err := c.pipelineFor(url).Execute(ctx, session)
	c.record(session)
	return session, err
}

// ScrapeAll runs one session per seed with the configured instructions,
// at most cfg.BatchSize at a time, and returns the sessions in seed order.
//
// The depth of each session is cfg.MaxDepth unless the seed's host has a
// depth override in the configuration file. A failed session does not stop
// the others; its error is recorded in the session. The returned error is
// only set when ctx was cancelled.
func (c *Client) ScrapeAll(ctx context.Context, seeds []string) ([]*model.Session, error) {
	sessions := make([]*model.Session, len(seeds))

	bp := pipeline.NewBatchProcessor(
		func(seed string) *model.Session {
			return model.NewSession(seed, c.cfg.Instructions, c.depthFor(seed))
		},
		c.pipelineFor,
		pipeline.WithConcurrency(c.cfg.BatchSize),
		pipeline.WithBatchLogger(c.logger),
	)

	var (
		mu   sync.Mutex
		done int
	)
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(session *model.Session, index int) {
		c.record(session)
		c.save(ctx, session)

		mu.Lock()
		defer mu.Unlock()
		sessions[index] = session
		done++
		if c.progress != nil {
			c.progress(session, done, len(seeds))
		}
	})
	return sessions, err
}

// depthFor returns the configured depth for seed, honoring per-site overrides.
func (c *Client) depthFor(seed string) int {
	site := c.cfg.SiteConfig(crawler.Host(seed))
	if site.Depth != nil {
		return *site.Depth
	}
	return c.cfg.MaxDepth
}

// pipelineFor builds the session pipeline for seed with its site settings.
func (c *Client) pipelineFor(seed string) *pipeline.Pipeline {
	site := c.cfg.SiteConfig(crawler.Host(seed))

	p := pipeline.New(
		pipeline.WithLogger(c.logger),
		pipeline.WithClock(c.now),
	)

	fetcher, err := c.fetcherFor(site)
	if err != nil {
		p.AddStep(failStep{name: stepValidate, err: err})
		return p
	}

	spider := crawler.NewSpider(fetcher, c.spiderOptions(site)...)
	p.AddSteps(
		validateStep{},
		pipeline.NewKeywordStep(c.source,
			pipeline.WithKeywordPolicy(c.policy),
			pipeline.WithKeywordLogger(c.logger),
		),
		pipeline.NewCrawlStep(spider, pipeline.WithCrawlLogger(c.logger)),
		pipeline.NewSynthesizeStep(
			pipeline.WithPassages(c.cfg.Passages),
			pipeline.WithMerge(c.cfg.Merge),
			pipeline.WithSynthesizeClock(c.now),
			pipeline.WithSynthesizeLogger(c.logger),
		),
	)
	return p
}

func (c *Client) spiderOptions(site config.SiteConfig) []crawler.SpiderOption {
	opts := []crawler.SpiderOption{
		crawler.WithWorkers(c.cfg.Workers),
		crawler.WithMaxPages(c.cfg.MaxPages),
		crawler.WithSessionTimeout(c.cfg.SessionTimeout),
		crawler.WithMaxAttempts(c.cfg.MaxAttempts),
		crawler.WithBackoff(backoffFor(c.cfg)),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithLogger(c.logger),
	}
	if c.metrics != nil {
		opts = append(opts, crawler.WithRecorder(c.metrics))
	}
	if c.retrySleep != nil {
		opts = append(opts, crawler.WithRetrySleep(c.retrySleep))
	}
	return opts
}

// fetcherFor returns the fetcher for one site.
// Cookies and headers are per site, so each site gets its own HTTP client.
func (c *Client) fetcherFor(site config.SiteConfig) (crawler.Fetcher, error) {
	if c.fetcher != nil {
		return c.fetcher, nil
	}

	clientOpts := []crawler.ClientOption{
		crawler.WithClientTimeout(c.cfg.RequestTimeout),
		crawler.WithCookie(site.Cookie),
		crawler.WithHeaders(site.Headers),
	}
	if c.cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, crawler.WithSOCKS5Proxy(c.cfg.ProxyAddress))
	}

	hc, err := crawler.NewHTTPClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return crawler.NewHTTPFetcher(hc,
		crawler.WithUserAgent(c.cfg.UserAgent),
		crawler.WithMaxBodySize(c.cfg.MaxBodySize),
	), nil
}

func backoffFor(cfg *config.Config) crawler.Backoff {
	if cfg.Backoff == config.BackoffConstant {
		return crawler.ConstantBackoff{Interval: cfg.BackoffInitial}
	}
	return crawler.ExponentialBackoff{
		Initial: cfg.BackoffInitial,
		Max:     cfg.BackoffMax,
		Jitter:  0.1,
	}
}

func (c *Client) record(session *model.Session) {
	if c.metrics != nil {
		c.metrics.SessionFinished(session)
	}
}

// save stores session in the history database. Failures are logged only;
// the scrape result does not depend on the history.
func (c *Client) save(ctx context.Context, session *model.Session) {
	if c.store == nil {
		return
	}
	// A cancelled scrape is still worth recording.
	if err := c.store.SaveSession(context.WithoutCancel(ctx), session); err != nil {
		c.logger.Error("failed to save session", "seed", session.SeedURL, "error", err)
		return
	}
	c.logger.Info("session saved", "seed", session.SeedURL, "id", session.ID)
}

// validateStep rejects bad seeds and depths before the keyword source is asked.
type validateStep struct{}

func (validateStep) Name() string { return stepValidate }

func (validateStep) Do(_ context.Context, session *model.Session) error {
	if err := crawler.CheckSeed(session.SeedURL); err != nil {
		return err
	}
	if session.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxDepth, session.MaxDepth)
	}
	return nil
}

// failStep fails the session with a setup error.
type failStep struct {
	name string
	err  error
}

func (s failStep) Name() string { return s.name }

func (s failStep) Do(context.Context, *model.Session) error { return s.err }
