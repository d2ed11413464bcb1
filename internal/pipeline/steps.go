package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/sitescribe/internal/crawler"
	"github.com/nao1215/sitescribe/internal/keyword"
	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/synth"
)

// Step names.
const (
	StepKeywords   = "keywords"
	StepCrawl      = "crawl"
	StepSynthesize = "synthesize"
)

// KeywordStep resolves the session instructions into its keyword set.
// It runs once per session, before any fetch, so that a required but
// unavailable keyword source fails the session without touching the site.
type KeywordStep struct {
	source keyword.Source
	policy keyword.Policy
	logger *slog.Logger
}

// KeywordStepOption configures a KeywordStep.
type KeywordStepOption func(*KeywordStep)

// WithKeywordPolicy sets how an unavailable source is handled.
func WithKeywordPolicy(policy keyword.Policy) KeywordStepOption {
	return func(s *KeywordStep) {
		s.policy = policy
	}
}

// WithKeywordLogger sets a custom logger for the keyword step.
func WithKeywordLogger(logger *slog.Logger) KeywordStepOption {
	return func(s *KeywordStep) {
		s.logger = logger
	}
}

// NewKeywordStep creates a keyword step backed by source.
// The default policy is keyword.PolicyFallback.
func NewKeywordStep(source keyword.Source, opts ...KeywordStepOption) *KeywordStep {
	s := &KeywordStep{
		source: source,
		policy: keyword.PolicyFallback,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *KeywordStep) Name() string {
	return StepKeywords
}

// Do resolves the keywords and stores them in the session.
func (s *KeywordStep) Do(ctx context.Context, session *model.Session) error {
	keywords, err := keyword.Resolve(ctx, s.source, session.Instructions, s.policy, s.logger)
	if err != nil {
		return err
	}
	session.Keywords = keywords
	return nil
}

// CrawlStep traverses the site from the session seed.
type CrawlStep struct {
	spider *crawler.Spider
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step that uses spider.
// The spider carries the per-site settings (patterns, budgets, retry policy).
func NewCrawlStep(spider *crawler.Spider, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		spider: spider,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return StepCrawl
}

// Do crawls the site and stores the relevant records, failures and stats.
// On cancellation the partial result is kept in the session and the
// context error is returned.
func (s *CrawlStep) Do(ctx context.Context, session *model.Session) error {
	res, err := s.spider.Crawl(ctx, session.SeedURL, session.MaxDepth, session.Keywords)
	if res != nil {
		session.Records = res.Records
		session.Failures = res.Failures
		session.Stats = res.Stats
		session.Truncated = res.Truncated
	}
	if err != nil {
		return err
	}
	if session.Truncated {
		s.logger.Warn("crawl stopped by budget, result is partial",
			"seed", session.SeedURL,
			"fetched", session.Stats.PagesFetched,
		)
	}
	return nil
}

// SynthesizeStep turns the relevant records into documents.
type SynthesizeStep struct {
	passages bool
	merge    bool
	now      func() time.Time
	logger   *slog.Logger
}

// SynthesizeStepOption configures a SynthesizeStep.
type SynthesizeStepOption func(*SynthesizeStep)

// WithPassages keeps only keyword-matching paragraphs in each document.
func WithPassages(enabled bool) SynthesizeStepOption {
	return func(s *SynthesizeStep) {
		s.passages = enabled
	}
}

// WithMerge merges all documents of a host into one.
func WithMerge(enabled bool) SynthesizeStepOption {
	return func(s *SynthesizeStep) {
		s.merge = enabled
	}
}

// WithSynthesizeClock sets the time source used for ExtractedAt.
func WithSynthesizeClock(now func() time.Time) SynthesizeStepOption {
	return func(s *SynthesizeStep) {
		s.now = now
	}
}

// WithSynthesizeLogger sets a custom logger for the synthesize step.
func WithSynthesizeLogger(logger *slog.Logger) SynthesizeStepOption {
	return func(s *SynthesizeStep) {
		s.logger = logger
	}
}

// NewSynthesizeStep creates a synthesize step.
func NewSynthesizeStep(opts ...SynthesizeStepOption) *SynthesizeStep {
	s := &SynthesizeStep{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SynthesizeStep) Name() string {
	return StepSynthesize
}

// Do builds the session documents from its records.
func (s *SynthesizeStep) Do(_ context.Context, session *model.Session) error {
	opts := []synth.Option{synth.WithClock(s.now)}
	if s.passages {
		opts = append(opts, synth.WithPassages(session.Keywords))
	}

	docs := synth.Synthesize(session.Records, opts...)
	if s.merge {
		docs = synth.MergeByHost(docs)
	}
	session.Documents = docs

	s.logger.Debug("documents synthesized",
		"seed", session.SeedURL,
		"records", len(session.Records),
		"documents", len(docs),
	)
	return nil
}
