// Package llm provides the text generator used for question generation,
// answer evaluation and job description enrichment.
//
// A Generator takes one prompt and returns the model's text. Generators do
// not retry; every failure is returned as a GENERATION error and the caller
// decides whether to try again.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/talentkit/errors"
)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a generator.
type Config struct {
	Provider  string // anthropic, openai, google; inferred from Model when empty
	Model     string
	APIKey    string
	MaxTokens int
	BaseURL   string // custom endpoint (OpenAI-compatible gateways, test servers)
}

// NewGenerator creates the generator for cfg.
func NewGenerator(cfg Config) (Generator, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = InferProviderFromModel(cfg.Model)
	}
	if provider == "" {
		return nil, errors.InvalidInput(fmt.Sprintf("cannot infer provider for model %q; set llm.provider", cfg.Model))
	}

	switch provider {
	case "anthropic":
		return NewAnthropicGenerator(cfg)
	case "openai":
		return NewOpenAIGenerator(cfg)
	case "google":
		return NewGoogleGenerator(cfg)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown llm provider %q", provider))
	}
}

// InferProviderFromModel returns the provider for well-known model name
// prefixes, or "".
func InferProviderFromModel(model string) string {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "claude"):
		return "anthropic"
	case strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"),
		strings.HasPrefix(model, "chatgpt"):
		return "openai"
	case strings.HasPrefix(model, "gemini"), strings.HasPrefix(model, "gemma"):
		return "google"
	}
	return ""
}

func validate(provider string, cfg Config) error {
	if cfg.APIKey == "" {
		return errors.InvalidInput("api_key is required for " + provider)
	}
	if cfg.Model == "" {
		return errors.InvalidInput("model is required for " + provider)
	}
	if cfg.MaxTokens <= 0 {
		return errors.InvalidInput("max_tokens is required for " + provider)
	}
	return nil
}

// generationError wraps a provider failure. Context errors keep their
// TIMEOUT/CANCELED codes; billing failures are flagged so callers stop trying.
func generationError(provider string, err error) error {
	if ctxErr := errors.Wrap(err, provider+" request failed"); ctxErr.Code() == errors.ErrCodeTimeout || ctxErr.Code() == errors.ErrCodeCanceled {
		return ctxErr
	}
	opts := []errors.Option{errors.WithCause(err), errors.WithMetadata("provider", provider)}
	if isBillingError(err) {
		opts = append(opts, errors.WithCategory(errors.CategoryPermanent), errors.WithMetadata("reason", "billing"))
	}
	return errors.Generation(provider+" request failed", opts...)
}

func emptyResponse(provider string) error {
	return errors.Generation(provider+" returned no text", errors.WithMetadata("provider", provider))
}

// isBillingError matches payment and quota failures, which never succeed on retry.
func isBillingError(err error) bool {
	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{"billing", "payment", "credits", "quota exceeded", "insufficient", "402"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
