// Package embedding maps text to fixed-length vectors.
//
// Every caller goes through one Policy-wrapped Embedder created at startup,
// so ingestion and queries see identical truncation and validation. An
// Embedder is read-only after construction and safe for concurrent use.
package embedding

import (
	"context"
	"fmt"

	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/ratelimit"
)

// Embedder produces vectors of a fixed dimension.
type Embedder interface {
	// Embed returns the vector for text. The same text and model always
	// produce the same vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the vector length.
	Dimension() int

	// Model identifies the model, and is recorded with stored vectors.
	Model() string
}

// Config selects an embedding provider.
type Config struct {
	Provider  string // hash, openai, google, ollama
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int // 0 means the model's native size
	MaxRunes  int // truncation limit, default DefaultMaxRunes

	// Limiter paces calls to the model when set.
	Limiter *ratelimit.Limiter
}

// New creates the provider named by cfg, wrapped in the truncation policy.
func New(cfg Config) (*Policy, error) {
	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case "", "hash":
		inner, err = NewHashEmbedder(cfg.Dimension)
	case "openai":
		inner, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Dimension: cfg.Dimension,
		})
	case "google":
		inner, err = NewGoogleEmbedder(GoogleConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	case "ollama":
		inner, err = NewOllamaEmbedder(OllamaConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown embedding provider %q", cfg.Provider))
	}
	if err != nil {
		return nil, err
	}
	if cfg.Limiter != nil {
		inner = NewRateLimited(inner, cfg.Limiter, ratelimit.ResourceEmbedding)
	}
	return NewPolicy(inner, cfg.MaxRunes), nil
}
