package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vinayprograms/talentkit/errors"
)

// GoogleEmbedder uses the Gemini embedding models.
type GoogleEmbedder struct {
	client    *genai.Client
	model     *genai.EmbeddingModel
	name      string
	dimension int
}

// GoogleConfig configures the Google embedder.
type GoogleConfig struct {
	APIKey    string
	Model     string // default: text-embedding-004
	Dimension int    // default: 768
}

// NewGoogleEmbedder creates a Gemini embedder.
func NewGoogleEmbedder(cfg GoogleConfig) (*GoogleEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.InvalidInput("api_key is required for google embeddings")
	}
	name := cfg.Model
	if name == "" {
		name = "text-embedding-004"
	}
	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = 768
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeEmbedding, "failed to create google client")
	}

	return &GoogleEmbedder{
		client:    client,
		model:     client.EmbeddingModel(name),
		name:      name,
		dimension: dimension,
	}, nil
}

// Dimension implements Embedder.
func (e *GoogleEmbedder) Dimension() int { return e.dimension }

// Model implements Embedder.
func (e *GoogleEmbedder) Model() string { return e.name }

// Close closes the underlying client.
func (e *GoogleEmbedder) Close() error { return e.client.Close() }

// Embed implements Embedder.
func (e *GoogleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("google embedding request failed: %w", err)
	}
	if res == nil || res.Embedding == nil {
		return nil, fmt.Errorf("google returned no embedding")
	}
	return res.Embedding.Values, nil
}
