package model

import (
	"encoding/json"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// KeywordSet is a read-only set of case-folded keywords.
// The zero value is an empty set, which relevance filtering treats as
// "accept everything".
//
// A KeywordSet never changes after construction, so it can be shared
// between goroutines without locking.
type KeywordSet struct {
	words []string
}

// NewKeywordSet builds a KeywordSet from raw words.
// Each word is trimmed and case-folded; empty words and duplicates are dropped.
func NewKeywordSet(words ...string) KeywordSet {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		folded := FoldCase(strings.Join(strings.Fields(w), " "))
		if folded == "" {
			continue
		}
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, folded)
	}
	slices.Sort(out)
	return KeywordSet{words: out}
}

// FoldCase returns s in case-folded form.
// A new Caser is created per call because cases.Caser keeps internal state.
func FoldCase(s string) string {
	return cases.Fold().String(s)
}

// Len returns the number of keywords.
func (k KeywordSet) Len() int {
	return len(k.words)
}

// IsEmpty reports whether the set has no keywords.
func (k KeywordSet) IsEmpty() bool {
	return len(k.words) == 0
}

// Words returns the keywords in sorted order.
// The returned slice is a copy.
func (k KeywordSet) Words() []string {
	return slices.Clone(k.words)
}

// String returns the keywords as a comma-separated list.
func (k KeywordSet) String() string {
	return strings.Join(k.words, ", ")
}

// MarshalJSON encodes the set as a JSON array of strings.
func (k KeywordSet) MarshalJSON() ([]byte, error) {
	if k.words == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(k.words)
}

// UnmarshalJSON decodes a JSON array of strings into the set.
func (k *KeywordSet) UnmarshalJSON(data []byte) error {
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return err
	}
	*k = NewKeywordSet(words...)
	return nil
}
