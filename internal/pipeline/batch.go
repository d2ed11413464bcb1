package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescribe/internal/model"
)

// defaultConcurrency is the number of sessions run at once by default.
const defaultConcurrency = 2

// BatchProcessor runs one session per seed URL concurrently.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on a single session
// 2. Each seed gets a fresh pipeline, so no crawl state leaks between sessions
type BatchProcessor struct {
	// newSession creates the session for a seed.
	newSession func(seed string) *model.Session

	// pipelineFactory creates the pipeline for a seed. It is called once
	// per seed so that per-site settings can differ.
	pipelineFactory func(seed string) *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sessions.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(newSession func(seed string) *model.Session, pipelineFactory func(seed string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		newSession:      newSession,
		pipelineFactory: pipelineFactory,
		concurrency:     defaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatchWithCallback runs a session for every seed and calls callback
// as each one completes. The callback is called from worker goroutines and
// must be safe for concurrent use. Each index is reported exactly once.
//
// A failed session is reported with its error recorded and does not stop
// the others. The returned error is only set when ctx was cancelled; the
// sessions that had not started by then are reported failed.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(session *model.Session, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			session := bp.newSession(seed)
			if err := ctx.Err(); err != nil {
				session.Fail(err)
				session.FinishedAt = time.Now()
				callback(session, i)
				return nil
			}

			bp.logger.Info("scraping seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			if err := bp.pipelineFactory(seed).Execute(ctx, session); err != nil {
				bp.logger.Warn("session failed", "seed", seed, "error", err)
			} else {
				bp.logger.Info("session completed",
					"seed", seed,
					"documents", len(session.Documents),
				)
			}

			callback(session, i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers always return nil

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)
	return ctx.Err()
}
