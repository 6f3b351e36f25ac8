package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vinayprograms/talentkit/errors"
)

func TestInferProviderFromModel(t *testing.T) {
	tests := map[string]string{
		"claude-sonnet-4-5": "anthropic",
		"gpt-4o":            "openai",
		"o3-mini":           "openai",
		"gemini-1.5-pro":    "google",
		"GEMMA-2":           "google",
		"llama3":            "",
	}
	for model, want := range tests {
		if got := InferProviderFromModel(model); got != want {
			t.Errorf("InferProviderFromModel(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"inferred anthropic", Config{Model: "claude-3-5-haiku", APIKey: "k", MaxTokens: 100}, "*llm.AnthropicGenerator", false},
		{"explicit openai", Config{Provider: "openai", Model: "my-deploy", APIKey: "k", MaxTokens: 100}, "*llm.OpenAIGenerator", false},
		{"google", Config{Provider: "google", Model: "gemini-2.0-flash", APIKey: "k", MaxTokens: 100}, "*llm.GoogleGenerator", false},
		{"cannot infer", Config{Model: "llama3", APIKey: "k", MaxTokens: 100}, "", true},
		{"unknown provider", Config{Provider: "cohere", Model: "m", APIKey: "k", MaxTokens: 100}, "", true},
		{"missing key", Config{Model: "gpt-4o", MaxTokens: 100}, "", true},
		{"missing max tokens", Config{Model: "gpt-4o", APIKey: "k"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGenerator(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewGenerator() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidInput) {
					t.Errorf("expected INVALID_INPUT, got %v", errors.Code(err))
				}
				return
			}
			if got := fmt.Sprintf("%T", g); got != tt.want {
				t.Errorf("type = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"1. Tell me about Go."}],
			"stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":7}}`)
	}))
	defer srv.Close()

	g, err := NewAnthropicGenerator(Config{APIKey: "k", Model: "claude-test", MaxTokens: 64, BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Generate(context.Background(), "generate questions")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "1. Tell me about Go." {
		t.Errorf("Generate() = %q", out)
	}
	if !strings.Contains(body, "generate questions") {
		t.Errorf("prompt not sent, body = %s", body)
	}
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Evaluation: ok Advice: more"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator(Config{APIKey: "k", Model: "gpt-4o", MaxTokens: 64, BaseURL: srv.URL + "/v1/"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Generate(context.Background(), "evaluate")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "Evaluation: ok Advice: more" {
		t.Errorf("Generate() = %q", out)
	}
}

func TestGenerate_ServerErrorIsGenerationError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	g, _ := NewOpenAIGenerator(Config{APIKey: "k", Model: "gpt-4o", MaxTokens: 64, BaseURL: srv.URL + "/v1/"})
	_, err := g.Generate(context.Background(), "x")
	if !errors.IsGeneration(err) {
		t.Fatalf("expected GENERATION error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times; generators must not retry", calls)
	}
}

func TestGenerate_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer srv.Close()

	g, _ := NewAnthropicGenerator(Config{APIKey: "k", Model: "claude-test", MaxTokens: 64, BaseURL: srv.URL})
	if _, err := g.Generate(context.Background(), "x"); !errors.IsGeneration(err) {
		t.Errorf("expected GENERATION error for empty response, got %v", err)
	}
}

func TestGenerationError(t *testing.T) {
	err := generationError("openai", fmt.Errorf("402 payment required"))
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.ErrCodeGeneration {
		t.Fatalf("expected GENERATION, got %v", err)
	}
	if typed.Retryable() {
		t.Error("billing errors should not be retryable")
	}
	if typed.Metadata()["reason"] != "billing" {
		t.Errorf("metadata = %v", typed.Metadata())
	}

	ctxErr := generationError("openai", fmt.Errorf("post: %w", context.DeadlineExceeded))
	if errors.Code(ctxErr) != errors.ErrCodeTimeout {
		t.Errorf("deadline should map to TIMEOUT, got %v", errors.Code(ctxErr))
	}
}

func TestMockGenerator(t *testing.T) {
	m := NewMockGenerator("first", "second")
	ctx := context.Background()

	for _, want := range []string{"first", "second", "second"} {
		got, err := m.Generate(ctx, "p")
		if err != nil || got != want {
			t.Errorf("Generate() = (%q, %v), want %q", got, err, want)
		}
	}
	if m.CallCount() != 3 {
		t.Errorf("CallCount() = %d", m.CallCount())
	}

	m.SetError(errors.Generation("down"))
	if _, err := m.Generate(ctx, "p"); !errors.IsGeneration(err) {
		t.Errorf("expected configured error, got %v", err)
	}
}

func TestWithTracing_PassesThrough(t *testing.T) {
	m := NewMockGenerator("traced")
	g := WithTracing(m, "mock")

	out, err := g.Generate(context.Background(), "prompt")
	if err != nil || out != "traced" {
		t.Errorf("Generate() = (%q, %v)", out, err)
	}
	if got := m.Prompts(); len(got) != 1 || got[0] != "prompt" {
		t.Errorf("Prompts() = %v", got)
	}
}
