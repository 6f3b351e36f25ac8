package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicGenerator generates text with the Anthropic Messages API.
type AnthropicGenerator struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicGenerator creates an Anthropic generator.
func NewAnthropicGenerator(cfg Config) (*AnthropicGenerator, error) {
	if err := validate("anthropic", cfg); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicGenerator{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Model returns the model name.
func (g *AnthropicGenerator) Model() string { return g.model }

// Generate sends prompt as a single user message.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", generationError("anthropic", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", emptyResponse("anthropic")
	}
	return text.String(), nil
}
