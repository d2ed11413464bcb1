package keyword

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/sitescribe/internal/model"
)

// Source kinds accepted by NewSource.
const (
	KindAuto      = "auto"
	KindLLM       = "llm"
	KindHeuristic = "heuristic"
)

// ErrUnknownKind is returned by NewSource for an unknown source kind.
var ErrUnknownKind = errors.New("unknown keyword source")

// NewSource builds the Source for kind.
//
//   - "heuristic" always uses Heuristic
//   - "llm" uses OpenAI; without an API key the returned Source fails
//     every call, so Resolve's policy decides what happens
//   - "auto" uses OpenAI when an API key is available and Heuristic otherwise
func NewSource(kind string, opts OpenAIOptions) (Source, error) {
	switch kind {
	case KindHeuristic:
		return Heuristic{}, nil
	case KindLLM:
		c, err := NewOpenAI(opts)
		if err != nil {
			return failingSource{err: err}, nil
		}
		return c, nil
	case KindAuto, "":
		c, err := NewOpenAI(opts)
		if err != nil {
			return Heuristic{}, nil
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// failingSource reports a configuration error on every call.
type failingSource struct {
	err error
}

func (s failingSource) Keywords(context.Context, string) (model.KeywordSet, error) {
	return model.KeywordSet{}, s.err
}
