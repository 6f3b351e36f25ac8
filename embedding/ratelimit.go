package embedding

import (
	"context"
	"io"

	"github.com/vinayprograms/talentkit/ratelimit"
)

// RateLimited waits for a token from limiter before each call to inner.
type RateLimited struct {
	inner    Embedder
	limiter  *ratelimit.Limiter
	resource string
}

// NewRateLimited wraps inner.
func NewRateLimited(inner Embedder, limiter *ratelimit.Limiter, resource string) *RateLimited {
	return &RateLimited{inner: inner, limiter: limiter, resource: resource}
}

// Dimension implements Embedder.
func (r *RateLimited) Dimension() int { return r.inner.Dimension() }

// Model implements Embedder.
func (r *RateLimited) Model() string { return r.inner.Model() }

// Embed implements Embedder.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Acquire(ctx, r.resource); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, text)
}

// Close closes inner if it holds a client.
func (r *RateLimited) Close() error {
	if c, ok := r.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
