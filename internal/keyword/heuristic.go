package keyword

import (
	"context"
	"strings"
	"unicode"

	"github.com/nao1215/sitescribe/internal/model"
)

// minWordLength is the shortest word the heuristic keeps.
const minWordLength = 3

// stopwords are instruction words that carry no topic.
var stopwords = map[string]struct{}{
	"about": {}, "all": {}, "also": {}, "and": {}, "any": {}, "are": {}, "can": {},
	"collect": {}, "content": {}, "data": {}, "details": {}, "does": {}, "each": {},
	"everything": {}, "extract": {}, "find": {}, "for": {}, "from": {}, "get": {},
	"give": {}, "has": {}, "have": {}, "how": {}, "information": {}, "into": {},
	"its": {}, "list": {}, "look": {}, "more": {}, "not": {}, "other": {}, "our": {},
	"page": {}, "pages": {}, "please": {}, "related": {}, "relevant": {}, "scrape": {},
	"search": {}, "show": {}, "site": {}, "some": {}, "tell": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "there": {}, "these": {}, "this": {}, "those": {},
	"was": {}, "website": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "why": {}, "will": {}, "with": {}, "would": {}, "you": {}, "your": {},
}

// Heuristic derives keywords from the instruction itself, without a network
// call. It keeps the words that are not stopwords and at least three
// characters long, and also keeps the singular of plain plurals so that
// "FAQs" matches a page that says "FAQ".
type Heuristic struct{}

// Keywords implements Source. It never fails.
func (Heuristic) Keywords(_ context.Context, instruction string) (model.KeywordSet, error) {
	return model.NewKeywordSet(heuristicWords(instruction)...), nil
}

func heuristicWords(instruction string) []string {
	tokens := strings.FieldsFunc(model.FoldCase(instruction), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.Trim(tok, "-")
		if len([]rune(tok)) < minWordLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		words = append(words, tok)
		if singular, ok := singularize(tok); ok {
			words = append(words, singular)
		}
	}
	return words
}

// singularize strips a plain plural "s". Words ending in "ss" or "us" and
// words that would become too short are left alone.
func singularize(word string) (string, bool) {
	if !strings.HasSuffix(word, "s") || strings.HasSuffix(word, "ss") || strings.HasSuffix(word, "us") {
		return "", false
	}
	singular := strings.TrimSuffix(word, "s")
	if len([]rune(singular)) < minWordLength {
		return "", false
	}
	return singular, true
}
