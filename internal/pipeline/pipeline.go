package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/sitescribe/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each one receiving the session as left
// by the previous steps.
type Step interface {
	// Do executes the step.
	// Page-level problems are recorded in the session and return nil;
	// an error means the session cannot produce a meaningful result.
	Do(ctx context.Context, session *model.Session) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool

	now func() time.Time
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The first error is still recorded in the session.
//
// The default is to stop, because every stage depends on the one before:
// crawling without the keyword set the caller asked for is not a result.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// WithClock sets the time source used for FinishedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in order against session and sets FinishedAt.
//
// Cancellation is checked before each step; steps handle it themselves
// while running. Returns the first error if continueOnError is false.
// The error is also recorded in the session.
func (p *Pipeline) Execute(ctx context.Context, session *model.Session) error {
	defer func() {
		session.FinishedAt = p.now()
	}()

	p.logger.Debug("pipeline started",
		"seed", session.SeedURL,
		"steps", p.StepNames(),
	)

	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"seed", session.SeedURL,
				"reason", err,
			)
			if !session.Failed() {
				session.Fail(err)
			}
			return err
		}

		started := p.now()
		err := step.Do(ctx, session)
		p.logger.Debug("step finished",
			"step", step.Name(),
			"seed", session.SeedURL,
			"elapsed", p.now().Sub(started),
		)
		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", session.SeedURL,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
				session.Fail(err)
			}
			if !p.continueOnError {
				return err
			}
			continue
		}

		session.Steps = append(session.Steps, step.Name())
	}

	return firstErr
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
