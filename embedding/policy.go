package embedding

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vinayprograms/talentkit/errors"
)

// DefaultMaxRunes is the truncation limit when none is configured.
const DefaultMaxRunes = 8000

// Policy normalizes input before it reaches the model and validates what
// comes back. Text is whitespace-trimmed and cut to MaxRunes at a rune
// boundary; empty text yields a zero vector without calling the model.
type Policy struct {
	inner    Embedder
	maxRunes int
}

// NewPolicy wraps inner. maxRunes <= 0 means DefaultMaxRunes.
func NewPolicy(inner Embedder, maxRunes int) *Policy {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	return &Policy{inner: inner, maxRunes: maxRunes}
}

// MaxRunes returns the truncation limit.
func (p *Policy) MaxRunes() int { return p.maxRunes }

// Dimension implements Embedder.
func (p *Policy) Dimension() int { return p.inner.Dimension() }

// Model implements Embedder.
func (p *Policy) Model() string { return p.inner.Model() }

// Close releases the wrapped model's client, if it holds one.
func (p *Policy) Close() error {
	if c, ok := p.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Normalize returns the text the model actually sees.
func (p *Policy) Normalize(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= p.maxRunes {
		return text // byte length bounds rune count
	}
	n := 0
	for i := range text {
		if n == p.maxRunes {
			return strings.TrimSpace(text[:i])
		}
		n++
	}
	return text
}

// Embed implements Embedder.
func (p *Policy) Embed(ctx context.Context, text string) ([]float32, error) {
	text = p.Normalize(text)
	if text == "" {
		return make([]float32, p.inner.Dimension()), nil
	}

	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil && errors.As(err) == nil {
			return nil, errors.Wrap(fmt.Errorf("%w: %v", cerr, err), "embedding interrupted",
				errors.WithMetadata("model", p.inner.Model()))
		}
		return nil, errors.WrapWithCode(err, errors.ErrCodeEmbedding, "embedding failed",
			errors.WithMetadata("model", p.inner.Model()))
	}
	if len(vec) != p.inner.Dimension() {
		return nil, errors.Embedding(
			fmt.Sprintf("model returned %d dimensions, expected %d", len(vec), p.inner.Dimension()),
			errors.WithMetadata("model", p.inner.Model()))
	}
	return vec, nil
}
