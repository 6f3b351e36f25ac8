package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vinayprograms/talentkit/errors"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e, err := NewHashEmbedder(128)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	a, _ := e.Embed(ctx, "Senior Go developer, Kubernetes")
	b, _ := e.Embed(ctx, "Senior Go developer, Kubernetes")
	if len(a) != 128 {
		t.Fatalf("len = %d, want 128", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("vector should be unit length, |v|^2 = %f", norm)
	}
}

func TestHashEmbedder_SharedVocabularyIsCloser(t *testing.T) {
	e, _ := NewHashEmbedder(DefaultHashDimension)
	ctx := context.Background()

	golang, _ := e.Embed(ctx, "golang backend engineer kubernetes docker")
	query, _ := e.Embed(ctx, "Position: backend engineer, Skills: golang, kubernetes")
	chef, _ := e.Embed(ctx, "pastry chef bakery croissant")

	if cosine(golang, query) <= cosine(chef, query) {
		t.Errorf("overlapping resume should be closer: go=%f chef=%f",
			cosine(golang, query), cosine(chef, query))
	}
}

func TestHashEmbedder_Dimension(t *testing.T) {
	e, _ := NewHashEmbedder(0)
	if e.Dimension() != DefaultHashDimension {
		t.Errorf("Dimension() = %d", e.Dimension())
	}
	if _, err := NewHashEmbedder(-1); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("negative dimension should be INVALID_INPUT, got %v", err)
	}
}

func TestPolicy_Truncation(t *testing.T) {
	static := NewStaticEmbedder(2)
	static.Fallback = mustHash(t, 2)
	p := NewPolicy(static, 5)
	ctx := context.Background()

	if _, err := p.Embed(ctx, "  héllo wörld  "); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Embed(ctx, "abc"); err != nil {
		t.Fatal(err)
	}

	calls := static.Calls()
	if calls[0] != "héllo" {
		t.Errorf("truncated text = %q, want %q", calls[0], "héllo")
	}
	if calls[1] != "abc" {
		t.Errorf("short text = %q, want unchanged", calls[1])
	}
}

func TestPolicy_NormalizeRuneBoundary(t *testing.T) {
	p := NewPolicy(mustHash(t, 4), 3)
	got := p.Normalize("日本語テキスト")
	if got != "日本語" {
		t.Errorf("Normalize() = %q, want 日本語", got)
	}
	if NewPolicy(mustHash(t, 4), 0).MaxRunes() != DefaultMaxRunes {
		t.Error("zero maxRunes should use the default")
	}
}

func TestPolicy_EmptyTextSkipsModel(t *testing.T) {
	static := NewStaticEmbedder(3)
	p := NewPolicy(static, 0)

	vec, err := p.Embed(context.Background(), " \n\t ")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 || vec[0] != 0 || vec[1] != 0 || vec[2] != 0 {
		t.Errorf("expected zero vector, got %v", vec)
	}
	if len(static.Calls()) != 0 {
		t.Error("model should not be called for empty text")
	}
}

func TestPolicy_Errors(t *testing.T) {
	static := NewStaticEmbedder(3).Set("short", 1, 2)
	p := NewPolicy(static, 0)
	ctx := context.Background()

	_, err := p.Embed(ctx, "short")
	if !errors.IsEmbedding(err) {
		t.Errorf("dimension mismatch should be EMBEDDING, got %v", err)
	}

	static.SetError(fmt.Errorf("connection refused"))
	_, err = p.Embed(ctx, "anything")
	if !errors.IsEmbedding(err) {
		t.Errorf("provider failure should be EMBEDDING, got %v", err)
	}
	if typed := errors.As(err); typed.Metadata()["model"] != "static-3" {
		t.Errorf("metadata = %v", typed.Metadata())
	}
}

func TestPolicy_ContextEnded(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
		want errors.ErrorCode
	}{
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), -time.Second)
		}, errors.ErrCodeTimeout},
		{"canceled", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}, errors.ErrCodeCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			static := NewStaticEmbedder(3)
			static.SetError(fmt.Errorf("request aborted"))
			ctx, cancel := tt.ctx()
			defer cancel()

			_, err := NewPolicy(static, 0).Embed(ctx, "text")
			if got := errors.Code(err); got != tt.want {
				t.Errorf("code = %s, want %s (%v)", got, tt.want, err)
			}
		})
	}
}

func TestPolicy_Concurrent(t *testing.T) {
	p := NewPolicy(mustHash(t, 64), 0)
	want, _ := p.Embed(context.Background(), "same text")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Embed(context.Background(), "same text")
			if err != nil || got[0] != want[0] {
				t.Errorf("concurrent embed mismatch: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		model   string
		wantErr bool
	}{
		{"hash default", Config{}, "hash-v1-384", false},
		{"hash sized", Config{Provider: "hash", Dimension: 32}, "hash-v1-32", false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, "text-embedding-3-small", false},
		{"openai needs key", Config{Provider: "openai"}, "", true},
		{"openai ada fixed size", Config{Provider: "openai", APIKey: "k", Model: "text-embedding-ada-002", Dimension: 256}, "", true},
		{"ollama", Config{Provider: "ollama", Model: "all-minilm"}, "all-minilm", false},
		{"google needs key", Config{Provider: "google"}, "", true},
		{"unknown", Config{Provider: "word2vec"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && e.Model() != tt.model {
				t.Errorf("Model() = %q, want %q", e.Model(), tt.model)
			}
		})
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "all-minilm" || req.Input != "resume text" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0.1, 0.2, 0.3}}})
	}))
	defer srv.Close()

	e, _ := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, Model: "all-minilm", Dimension: 3})
	vec, err := e.Embed(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Errorf("Embed() = %v", vec)
	}
}

func TestOllamaEmbedder_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e, _ := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, Dimension: 3})
	_, err := NewPolicy(e, 0).Embed(context.Background(), "x")
	if !errors.IsEmbedding(err) {
		t.Fatalf("expected EMBEDDING error, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("error should carry status, got %v", err)
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	var gotDims bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		_, gotDims = body["dimensions"]
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[0.5,-0.5,0.25,0]}],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1/", Dimension: 4})
	if err != nil {
		t.Fatal(err)
	}
	vec, err := e.Embed(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 4 || vec[0] != 0.5 || vec[1] != -0.5 {
		t.Errorf("Embed() = %v", vec)
	}
	if !gotDims {
		t.Error("custom dimension should be sent with the request")
	}
}

func mustHash(t *testing.T, dim int) *HashEmbedder {
	t.Helper()
	e, err := NewHashEmbedder(dim)
	if err != nil {
		t.Fatal(err)
	}
	return e
}
