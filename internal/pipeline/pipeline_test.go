package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/sitescribe/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, session *model.Session) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, session *model.Session) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, session)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if len(p.StepNames()) != 0 {
			t.Errorf("expected 0 steps, got %d", len(p.StepNames()))
		}
		if p.continueOnError {
			t.Error("expected continueOnError to default to false")
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	if len(p.StepNames()) != 3 {
		t.Errorf("expected 3 steps, got %d", len(p.StepNames()))
	}
	if got := p.StepNames(); !slices.Equal(got, []string{"first", "second", "third"}) {
		t.Errorf("unexpected step order %v", got)
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return finished }

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New(WithLogger(quietLogger()), WithClock(clock))
		for _, name := range []string{"a", "b", "c"} {
			p.AddStep(&mockStep{name: name, doFunc: func(context.Context, *model.Session) error {
				order = append(order, name)
				return nil
			}})
		}

		session := model.NewSession("https://example.com/", "", 1)
		if err := p.Execute(context.Background(), session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(order, []string{"a", "b", "c"}) {
			t.Errorf("unexpected execution order %v", order)
		}
		if !slices.Equal(session.Steps, []string{"a", "b", "c"}) {
			t.Errorf("unexpected recorded steps %v", session.Steps)
		}
		if !session.FinishedAt.Equal(finished) {
			t.Errorf("expected FinishedAt from clock, got %v", session.FinishedAt)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(context.Context, *model.Session) error { return errBoom }}
		after := &mockStep{name: "after"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(failing, after)

		session := model.NewSession("https://example.com/", "", 1)
		err := p.Execute(context.Background(), session)
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected errBoom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected the step after the failure not to run")
		}
		if !session.Failed() || session.ErrorMessage != "boom" {
			t.Errorf("expected error recorded in session, got %q", session.ErrorMessage)
		}
		if len(session.Steps) != 0 {
			t.Errorf("expected no completed steps, got %v", session.Steps)
		}
		if session.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set on failure")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		errFirst := errors.New("first")
		p := New(WithLogger(quietLogger()), WithContinueOnError(true))
		after := &mockStep{name: "after"}
		p.AddSteps(
			&mockStep{name: "one", doFunc: func(context.Context, *model.Session) error { return errFirst }},
			&mockStep{name: "two", doFunc: func(context.Context, *model.Session) error { return errors.New("second") }},
			after,
		)

		session := model.NewSession("https://example.com/", "", 1)
		err := p.Execute(context.Background(), session)
		if !errors.Is(err, errFirst) {
			t.Errorf("expected first error returned, got %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected later steps to run")
		}
		if session.ErrorMessage != "first" {
			t.Errorf("expected first error recorded, got %q", session.ErrorMessage)
		}
		if !slices.Equal(session.Steps, []string{"after"}) {
			t.Errorf("expected only successful steps recorded, got %v", session.Steps)
		}
	})

	t.Run("respects cancellation between steps", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		second := &mockStep{name: "second"}
		p := New(WithLogger(quietLogger()))
		p.AddSteps(
			&mockStep{name: "first", doFunc: func(context.Context, *model.Session) error {
				cancel()
				return nil
			}},
			second,
		)

		session := model.NewSession("https://example.com/", "", 1)
		err := p.Execute(ctx, session)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step to be skipped")
		}
		if !errors.Is(session.Error, context.Canceled) {
			t.Errorf("expected cancellation recorded, got %v", session.Error)
		}
	})
}
