package synth

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitescribe/internal/model"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func TestSynthesize(t *testing.T) {
	t.Parallel()

	records := []*model.ContentRecord{
		{
			SourceURL:  "https://example.com/",
			Title:      "Home",
			Headings:   []string{"Welcome"},
			Paragraphs: []string{"Our product features are listed below.", "Contact us anytime."},
			Depth:      0,
		},
		{
			SourceURL:  "https://example.com/faq",
			Title:      "FAQ",
			Headings:   []string{"FAQ", "Billing"},
			Paragraphs: []string{"How do refunds work?"},
			Depth:      1,
		},
	}

	t.Run("one document per record in order", func(t *testing.T) {
		t.Parallel()

		docs := Synthesize(records, WithClock(fixedClock))
		if len(docs) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(docs))
		}
		if docs[0].URL != "https://example.com/" || docs[1].URL != "https://example.com/faq" {
			t.Errorf("unexpected order: %s, %s", docs[0].URL, docs[1].URL)
		}

		want := "FAQ\n\nBilling\n\nHow do refunds work?"
		if docs[1].Content != want {
			t.Errorf("expected content %q, got %q", want, docs[1].Content)
		}
		if docs[1].Title != "FAQ" || docs[1].Depth != 1 {
			t.Errorf("unexpected title/depth: %q %d", docs[1].Title, docs[1].Depth)
		}
		if !slices.Equal(docs[1].Headings, []string{"FAQ", "Billing"}) {
			t.Errorf("unexpected headings %v", docs[1].Headings)
		}
		if !docs[0].ExtractedAt.Equal(fixedTime) {
			t.Errorf("expected clock time, got %v", docs[0].ExtractedAt)
		}
		if docs[0].Sources != nil {
			t.Errorf("expected no sources on unmerged document, got %v", docs[0].Sources)
		}
	})

	t.Run("ids are stable and content addressed", func(t *testing.T) {
		t.Parallel()

		a := Synthesize(records)
		b := Synthesize(records)
		if a[0].ID != b[0].ID {
			t.Error("expected identical IDs for identical input")
		}
		if a[0].ID == a[1].ID {
			t.Error("expected different IDs for different pages")
		}
		if len(a[0].ID) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(a[0].ID))
		}
	})

	t.Run("passages keep matching paragraphs only", func(t *testing.T) {
		t.Parallel()

		docs := Synthesize(records[:1], WithPassages(model.NewKeywordSet("product")))
		want := "Welcome\n\nOur product features are listed below."
		if docs[0].Content != want {
			t.Errorf("expected %q, got %q", want, docs[0].Content)
		}
	})

	t.Run("empty and nil input", func(t *testing.T) {
		t.Parallel()

		if docs := Synthesize(nil); docs == nil || len(docs) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", docs)
		}
		docs := Synthesize([]*model.ContentRecord{nil, {SourceURL: "https://example.com/empty"}})
		if len(docs) != 1 {
			t.Fatalf("expected nil records to be skipped, got %d docs", len(docs))
		}
		if docs[0].Content != "" || docs[0].Language != "" {
			t.Errorf("expected empty content and language, got %+v", docs[0])
		}
	})

	t.Run("does not alias record headings", func(t *testing.T) {
		t.Parallel()

		rec := &model.ContentRecord{SourceURL: "https://example.com/", Headings: []string{"A"}}
		docs := Synthesize([]*model.ContentRecord{rec})
		docs[0].Headings[0] = "changed"
		if rec.Headings[0] != "A" {
			t.Error("document headings alias the record")
		}
	})
}

func TestJoinContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headings   []string
		paragraphs []string
		want       string
	}{
		{name: "empty", want: ""},
		{name: "headings only", headings: []string{"A", "B"}, want: "A\n\nB"},
		{name: "paragraphs only", paragraphs: []string{"x"}, want: "x"},
		{name: "headings first", headings: []string{"H"}, paragraphs: []string{"p1", "p2"}, want: "H\n\np1\n\np2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := JoinContent(tt.headings, tt.paragraphs); got != tt.want {
				t.Errorf("JoinContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	english := strings.Repeat("The quick brown fox jumps over the lazy dog while the farmer watches from the house. "+
		"Customers often ask how the product works and where they can find the documentation for every feature. ", 3)
	if got := DetectLanguage(english); got != "en" {
		t.Errorf("expected en, got %q", got)
	}
	if got := DetectLanguage("   "); got != "" {
		t.Errorf("expected empty language for blank text, got %q", got)
	}
}

func TestMergeByHost(t *testing.T) {
	t.Parallel()

	docs := []model.Document{
		{URL: "https://example.com/", Title: "", Content: "home", Headings: []string{"Home"}, Depth: 1, ExtractedAt: fixedTime},
		{URL: "https://other.org/a", Title: "Other", Content: "other", Depth: 0},
		{URL: "https://EXAMPLE.com:443/faq", Title: "FAQ", Content: "faq", Headings: []string{"FAQ"}, Depth: 0},
	}

	merged := MergeByHost(docs)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged documents, got %d", len(merged))
	}

	first := merged[0]
	if first.URL != "https://example.com/" {
		t.Errorf("expected first page URL, got %q", first.URL)
	}
	if first.Title != "FAQ" {
		t.Errorf("expected first non-empty title, got %q", first.Title)
	}
	if first.Content != "home\n\nfaq" {
		t.Errorf("unexpected merged content %q", first.Content)
	}
	if first.Depth != 0 {
		t.Errorf("expected minimum depth 0, got %d", first.Depth)
	}
	if !slices.Equal(first.Sources, []string{"https://example.com/", "https://EXAMPLE.com:443/faq"}) {
		t.Errorf("unexpected sources %v", first.Sources)
	}
	if !slices.Equal(first.Headings, []string{"Home", "FAQ"}) {
		t.Errorf("unexpected headings %v", first.Headings)
	}
	if first.ID != DocumentID(first.URL, first.Content) {
		t.Error("expected ID recomputed from merged content")
	}
	if !first.ExtractedAt.Equal(fixedTime) {
		t.Errorf("expected ExtractedAt of first page, got %v", first.ExtractedAt)
	}

	if merged[1].URL != "https://other.org/a" || !slices.Equal(merged[1].Sources, []string{"https://other.org/a"}) {
		t.Errorf("unexpected second document %+v", merged[1])
	}

	if out := MergeByHost(nil); len(out) != 0 {
		t.Errorf("expected no documents, got %d", len(out))
	}
}
