package keyword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nao1215/sitescribe/internal/model"
)

var (
	// ErrUnavailable is returned by Resolve under PolicyRequired when the
	// keyword source cannot produce keywords.
	ErrUnavailable = errors.New("keyword source unavailable")

	// ErrMissingAPIKey is returned when the LLM source has no API key.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidPolicy is returned by ParsePolicy for unknown names.
	ErrInvalidPolicy = errors.New("invalid keyword policy")
)

// Source derives keywords from an instruction.
type Source interface {
	Keywords(ctx context.Context, instruction string) (model.KeywordSet, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, instruction string) (model.KeywordSet, error)

// Keywords calls f(ctx, instruction).
func (f SourceFunc) Keywords(ctx context.Context, instruction string) (model.KeywordSet, error) {
	return f(ctx, instruction)
}

// Policy decides what happens when the source is unavailable.
type Policy int

const (
	// PolicyFallback continues with an empty keyword set.
	PolicyFallback Policy = iota
	// PolicyRequired fails the session.
	PolicyRequired
)

// String returns the policy name used in configuration.
func (p Policy) String() string {
	if p == PolicyRequired {
		return "required"
	}
	return "fallback"
}

// ParsePolicy parses "fallback" or "required" (case-insensitive).
// An empty name is PolicyFallback.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fallback":
		return PolicyFallback, nil
	case "required":
		return PolicyRequired, nil
	default:
		return PolicyFallback, fmt.Errorf("%w: %q", ErrInvalidPolicy, name)
	}
}

// Resolve obtains the keyword set for one session.
//
// An empty or blank instruction returns an empty set without calling src.
// A nil src, a source error, or an empty answer to a non-empty instruction
// counts as unavailable and is handled according to policy.
func Resolve(ctx context.Context, src Source, instruction string, policy Policy, logger *slog.Logger) (model.KeywordSet, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if strings.TrimSpace(instruction) == "" {
		return model.KeywordSet{}, nil
	}

	var (
		set model.KeywordSet
		err error
	)
	if src == nil {
		err = errors.New("no keyword source configured")
	} else {
		set, err = src.Keywords(ctx, instruction)
		if err == nil && set.IsEmpty() {
			err = errors.New("keyword source returned no keywords")
		}
	}
	if err == nil {
		logger.Info("keywords resolved", "keywords", set.String())
		return set, nil
	}

	if policy == PolicyRequired {
		return model.KeywordSet{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	logger.Warn("keyword source unavailable, crawling without relevance filter", "error", err)
	return model.KeywordSet{}, nil
}

// listMarker matches bullets and numbering at the start of an entry ("- ", "2. ", "3) ").
var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// ParseList splits a model answer into keywords.
// It accepts comma- or newline-separated lists and strips list markers,
// quotes and trailing periods around each entry.
func ParseList(answer string) model.KeywordSet {
	fields := strings.FieldsFunc(answer, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = listMarker.ReplaceAllString(strings.TrimSpace(f), "")
		f = strings.Trim(f, "\"'`. ")
		if f != "" {
			words = append(words, f)
		}
	}
	return model.NewKeywordSet(words...)
}
