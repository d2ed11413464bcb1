package relevance

import (
	"slices"
	"testing"

	"github.com/nao1215/sitescribe/internal/model"
)

func TestIsRelevant(t *testing.T) {
	t.Parallel()

	page := &model.ContentRecord{
		SourceURL:  "https://example.com/",
		Title:      "Acme Store",
		Headings:   []string{"Product Features"},
		Paragraphs: []string{"Our FAQ covers refunds and shipping"},
	}

	tests := []struct {
		name     string
		rec      *model.ContentRecord
		keywords model.KeywordSet
		want     bool
	}{
		{
			name:     "empty keyword set accepts a page",
			rec:      page,
			keywords: model.NewKeywordSet(),
			want:     true,
		},
		{
			name:     "empty keyword set accepts an empty record",
			rec:      &model.ContentRecord{SourceURL: "https://example.com/blank"},
			keywords: model.NewKeywordSet(),
			want:     true,
		},
		{
			name:     "heading match is case-insensitive",
			rec:      page,
			keywords: model.NewKeywordSet("features"),
			want:     true,
		},
		{
			name:     "paragraph match",
			rec:      page,
			keywords: model.NewKeywordSet("faq"),
			want:     true,
		},
		{
			name:     "title match",
			rec:      page,
			keywords: model.NewKeywordSet("acme"),
			want:     true,
		},
		{
			name:     "any keyword is enough",
			rec:      page,
			keywords: model.NewKeywordSet("pricing", "SHIPPING"),
			want:     true,
		},
		{
			name:     "substring match inside a longer word",
			rec:      page,
			keywords: model.NewKeywordSet("refund"),
			want:     true,
		},
		{
			name:     "no keyword matches",
			rec:      page,
			keywords: model.NewKeywordSet("careers", "press"),
			want:     false,
		},
		{
			name:     "empty record with keywords is not relevant",
			rec:      &model.ContentRecord{SourceURL: "https://example.com/blank"},
			keywords: model.NewKeywordSet("faq"),
			want:     false,
		},
		{
			name:     "links are not content",
			rec:      &model.ContentRecord{SourceURL: "https://example.com/", Links: []string{"https://example.com/faq"}},
			keywords: model.NewKeywordSet("faq"),
			want:     false,
		},
		{
			name:     "nil record with keywords",
			rec:      nil,
			keywords: model.NewKeywordSet("faq"),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := IsRelevant(tt.rec, tt.keywords)
			if got != tt.want {
				t.Errorf("IsRelevant() = %v, want %v", got, tt.want)
			}
			// Deterministic: same inputs, same answer.
			if again := IsRelevant(tt.rec, tt.keywords); again != got {
				t.Errorf("IsRelevant() is not deterministic: %v then %v", got, again)
			}
		})
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	rec := &model.ContentRecord{
		Headings:   []string{"Product Features"},
		Paragraphs: []string{"Our FAQ covers refunds and shipping"},
	}

	if got := Score(rec, model.NewKeywordSet("features", "faq", "careers")); got != 2 {
		t.Errorf("Score() = %d, want 2", got)
	}
	if got := Score(rec, model.NewKeywordSet()); got != 0 {
		t.Errorf("Score() with no keywords = %d, want 0", got)
	}
	if got := Score(nil, model.NewKeywordSet("faq")); got != 0 {
		t.Errorf("Score(nil) = %d, want 0", got)
	}
}

func TestMatchingPassages(t *testing.T) {
	t.Parallel()

	rec := &model.ContentRecord{
		Paragraphs: []string{
			"Welcome to our store.",
			"Shipping is free over $50.",
			"Read our FAQ for details.",
		},
	}

	t.Run("keeps matching paragraphs in order", func(t *testing.T) {
		t.Parallel()

		got := MatchingPassages(rec, model.NewKeywordSet("faq", "shipping"))
		want := []string{"Shipping is free over $50.", "Read our FAQ for details."}
		if !slices.Equal(got, want) {
			t.Errorf("MatchingPassages() = %q, want %q", got, want)
		}
	})

	t.Run("empty keyword set keeps everything", func(t *testing.T) {
		t.Parallel()

		got := MatchingPassages(rec, model.NewKeywordSet())
		if !slices.Equal(got, rec.Paragraphs) {
			t.Errorf("MatchingPassages() = %q, want all paragraphs", got)
		}
	})

	t.Run("no match yields empty slice", func(t *testing.T) {
		t.Parallel()

		got := MatchingPassages(rec, model.NewKeywordSet("careers"))
		if len(got) != 0 {
			t.Errorf("MatchingPassages() = %q, want none", got)
		}
	})
}
