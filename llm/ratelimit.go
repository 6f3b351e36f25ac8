package llm

import (
	"context"
	"io"

	"github.com/vinayprograms/talentkit/ratelimit"
)

type rateLimitedGenerator struct {
	inner    Generator
	limiter  *ratelimit.Limiter
	resource string
}

// WithRateLimit makes g wait for a token from limiter before each call.
func WithRateLimit(g Generator, limiter *ratelimit.Limiter, resource string) Generator {
	return &rateLimitedGenerator{inner: g, limiter: limiter, resource: resource}
}

func (r *rateLimitedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Acquire(ctx, r.resource); err != nil {
		return "", err
	}
	return r.inner.Generate(ctx, prompt)
}

func (r *rateLimitedGenerator) Model() string {
	if m, ok := r.inner.(modeler); ok {
		return m.Model()
	}
	return ""
}

func (r *rateLimitedGenerator) Close() error {
	if c, ok := r.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
