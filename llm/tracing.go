package llm

import (
	"context"
	"io"

	"github.com/vinayprograms/talentkit/telemetry"
)

// modeler is implemented by generators that know their model name.
type modeler interface {
	Model() string
}

type tracingGenerator struct {
	inner    Generator
	provider string
}

// WithTracing wraps g so every call records an llm.generate span.
func WithTracing(g Generator, provider string) Generator {
	return &tracingGenerator{inner: g, provider: provider}
}

func (t *tracingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartGenerateSpan(ctx)

	out, err := t.inner.Generate(ctx, prompt)

	opts := telemetry.GenerateSpanOptions{Provider: t.provider, Prompt: prompt, Response: out}
	if m, ok := t.inner.(modeler); ok {
		opts.Model = m.Model()
	}
	tracer.EndGenerateSpan(span, opts, err)
	return out, err
}

// Close closes the wrapped generator if it holds a client.
func (t *tracingGenerator) Close() error {
	if c, ok := t.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
