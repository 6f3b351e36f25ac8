package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vinayprograms/talentkit/errors"
)

// OpenAIEmbedder uses the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	override  bool // send dimensions with each request
}

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	APIKey    string
	Model     string // default: text-embedding-3-small
	BaseURL   string // default: https://api.openai.com/v1
	Dimension int    // optional; only text-embedding-3 models accept a reduced size
}

// NewOpenAIEmbedder creates an OpenAI embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.InvalidInput("api_key is required for openai embeddings")
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	dimension := cfg.Dimension
	override := dimension > 0
	if override && !strings.HasPrefix(model, "text-embedding-3") {
		return nil, errors.InvalidInput(fmt.Sprintf("model %s does not support a custom dimension", model))
	}
	if dimension == 0 {
		switch model {
		case "text-embedding-3-large":
			dimension = 3072
		default:
			dimension = 1536
		}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIEmbedder{
		client:    &client,
		model:     model,
		dimension: dimension,
		override:  override,
	}, nil
}

// Dimension implements Embedder.
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Model implements Embedder.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.override {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embedding")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
