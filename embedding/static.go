package embedding

import (
	"context"
	"fmt"
	"sync"
)

// StaticEmbedder returns preset vectors for known texts, for tests that need
// exact geometry. Unknown texts fail unless Fallback is set.
type StaticEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	dim      int
	err      error
	calls    []string
	Fallback Embedder
}

// NewStaticEmbedder creates a static embedder of the given dimension.
func NewStaticEmbedder(dim int) *StaticEmbedder {
	return &StaticEmbedder{vectors: make(map[string][]float32), dim: dim}
}

// Set registers the vector returned for text.
func (e *StaticEmbedder) Set(text string, vec ...float32) *StaticEmbedder {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vec
	return e
}

// SetError makes every later call fail with err. Nil clears it.
func (e *StaticEmbedder) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns every text received so far.
func (e *StaticEmbedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Dimension implements Embedder.
func (e *StaticEmbedder) Dimension() int { return e.dim }

// Model implements Embedder.
func (e *StaticEmbedder) Model() string { return fmt.Sprintf("static-%d", e.dim) }

// Embed implements Embedder.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	vec, ok := e.vectors[text]
	err := e.err
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if ok {
		return append([]float32(nil), vec...), nil
	}
	if e.Fallback != nil {
		return e.Fallback.Embed(ctx, text)
	}
	return nil, fmt.Errorf("no vector registered for %q", text)
}
