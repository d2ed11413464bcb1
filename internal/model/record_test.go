package model

import (
	"testing"
	"time"
)

// TestContentRecord tests ContentRecord helpers.
func TestContentRecord(t *testing.T) {
	t.Parallel()

	t.Run("record with only a source URL is empty", func(t *testing.T) {
		t.Parallel()

		rec := &ContentRecord{SourceURL: "https://example.com/"}
		if !rec.IsEmpty() {
			t.Error("expected record to be empty")
		}
		if rec.HasTitle() {
			t.Error("expected no title")
		}
		if rec.Text() != "" {
			t.Errorf("expected empty text, got %q", rec.Text())
		}
	})

	t.Run("links alone do not count as content", func(t *testing.T) {
		t.Parallel()

		rec := &ContentRecord{Links: []string{"https://example.com/a"}}
		if !rec.IsEmpty() {
			t.Error("expected record with only links to be empty")
		}
	})

	t.Run("a title alone is content", func(t *testing.T) {
		t.Parallel()

		rec := &ContentRecord{Title: "Pricing"}
		if !rec.HasTitle() || rec.IsEmpty() {
			t.Error("expected a titled record to carry content")
		}
		if rec.Text() != "Pricing" {
			t.Errorf("expected the title as text, got %q", rec.Text())
		}
	})

	t.Run("text joins title headings and paragraphs in order", func(t *testing.T) {
		t.Parallel()

		rec := &ContentRecord{
			Title:      "Title",
			Headings:   []string{"H1", "H2"},
			Paragraphs: []string{"P1"},
		}
		want := "Title\nH1\nH2\nP1"
		if rec.Text() != want {
			t.Errorf("expected %q, got %q", want, rec.Text())
		}
	})
}

// TestSession tests Session helpers.
func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("new session has an ID and empty collections", func(t *testing.T) {
		t.Parallel()

		s := NewSession("https://example.com/", "find faq", 2)
		if s.ID == "" {
			t.Error("expected session ID")
		}
		if s.Documents == nil || s.Failures == nil || s.Records == nil {
			t.Error("expected initialized collections")
		}
		if s.Failed() {
			t.Error("expected new session not to be failed")
		}
	})

	t.Run("sessions get distinct IDs", func(t *testing.T) {
		t.Parallel()

		a := NewSession("https://example.com/", "", 0)
		b := NewSession("https://example.com/", "", 0)
		if a.ID == b.ID {
			t.Errorf("expected distinct IDs, both were %q", a.ID)
		}
	})

	t.Run("fail records the error message", func(t *testing.T) {
		t.Parallel()

		s := NewSession("https://example.com/", "", 0)
		s.Fail(nil)
		if s.Failed() {
			t.Error("expected Fail(nil) to be a no-op")
		}
		s.Fail(errTest)
		if !s.Failed() || s.ErrorMessage != "test error" {
			t.Errorf("expected failed session with message, got %q", s.ErrorMessage)
		}
	})

	t.Run("duration is zero until finished", func(t *testing.T) {
		t.Parallel()

		s := NewSession("https://example.com/", "", 0)
		if s.Duration() != 0 {
			t.Error("expected zero duration")
		}
		s.FinishedAt = s.StartedAt.Add(3 * time.Second)
		if s.Duration() != 3*time.Second {
			t.Errorf("expected 3s, got %v", s.Duration())
		}
	})
}

type testError struct{}

func (testError) Error() string { return "test error" }

var errTest error = testError{}
