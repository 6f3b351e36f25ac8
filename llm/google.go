package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vinayprograms/talentkit/errors"
)

// GoogleGenerator generates text with the Gemini API.
type GoogleGenerator struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGoogleGenerator creates a Gemini generator.
func NewGoogleGenerator(cfg Config) (*GoogleGenerator, error) {
	if err := validate("google", cfg); err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeGeneration, "failed to create google client")
	}

	model := client.GenerativeModel(cfg.Model)
	maxTokens := int32(cfg.MaxTokens)
	model.MaxOutputTokens = &maxTokens

	return &GoogleGenerator{
		client:    client,
		model:     model,
		modelName: cfg.Model,
	}, nil
}

// Model returns the model name.
func (g *GoogleGenerator) Model() string { return g.modelName }

// Close closes the underlying client.
func (g *GoogleGenerator) Close() error {
	return g.client.Close()
}

// Generate sends prompt as a single content part.
func (g *GoogleGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", generationError("google", err)
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
		break
	}
	if text.Len() == 0 {
		return "", emptyResponse("google")
	}
	return text.String(), nil
}
