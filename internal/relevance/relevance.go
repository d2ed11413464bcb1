// Package relevance decides which extracted pages are worth keeping.
//
// All functions are pure: no I/O, no shared state, the same inputs always
// give the same result. The policy is a strict any-match over the
// case-folded text, favoring recall; it is a pre-filter for a downstream
// ranking stage, not the final relevance decision.
package relevance

import (
	"strings"

	"github.com/nao1215/sitescribe/internal/model"
)

// IsRelevant reports whether rec matches at least one keyword.
// An empty keyword set means no filtering was requested and accepts every
// record, including one without any content.
func IsRelevant(rec *model.ContentRecord, keywords model.KeywordSet) bool {
	if keywords.IsEmpty() {
		return true
	}
	if rec == nil {
		return false
	}
	text := model.FoldCase(rec.Text())
	for _, kw := range keywords.Words() {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Score returns how many distinct keywords occur in rec.
// It is 0 for an empty keyword set.
func Score(rec *model.ContentRecord, keywords model.KeywordSet) int {
	if rec == nil || keywords.IsEmpty() {
		return 0
	}
	text := model.FoldCase(rec.Text())
	n := 0
	for _, kw := range keywords.Words() {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// MatchingPassages returns the paragraphs of rec that contain at least one
// keyword, in document order. With an empty keyword set every paragraph matches.
func MatchingPassages(rec *model.ContentRecord, keywords model.KeywordSet) []string {
	if rec == nil {
		return nil
	}
	if keywords.IsEmpty() {
		return append([]string(nil), rec.Paragraphs...)
	}
	words := keywords.Words()
	passages := make([]string, 0, len(rec.Paragraphs))
	for _, p := range rec.Paragraphs {
		folded := model.FoldCase(p)
		for _, kw := range words {
			if strings.Contains(folded, kw) {
				passages = append(passages, p)
				break
			}
		}
	}
	return passages
}
