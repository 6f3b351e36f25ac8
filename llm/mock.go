package llm

import (
	"context"
	"sync"
)

// MockGenerator is a Generator for tests. Responses are returned in order;
// the last one repeats once the queue is exhausted.
type MockGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string

	// GenerateFunc overrides the queued responses when set.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
}

// NewMockGenerator creates a mock returning responses in order.
func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{responses: responses}
}

// SetError makes every later call fail with err.
func (m *MockGenerator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Prompts returns every prompt received so far.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Model implements the optional model name accessor.
func (m *MockGenerator) Model() string { return "mock" }

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fn := m.GenerateFunc
	err := m.err
	var out string
	if len(m.responses) > 0 {
		out = m.responses[0]
		if len(m.responses) > 1 {
			m.responses = m.responses[1:]
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	if err != nil {
		return "", err
	}
	return out, nil
}
