package kit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vinayprograms/talentkit/config"
	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/extract/pdftest"
	"github.com/vinayprograms/talentkit/llm"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.DataDir = filepath.Join(dir, "data")
	cfg.Store.ResumesDir = filepath.Join(dir, "uploads")
	return cfg
}

func openKit(t *testing.T, cfg *config.Config, opts ...Option) *Kit {
	t.Helper()
	k, err := Open(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { k.Close() })
	return k
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestKit_IngestAndRetrieve(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	k := openKit(t, cfg)
	src := t.TempDir()

	alice := writeFile(t, src, "alice.pdf", pdftest.Build(
		"Alice Smith\nSenior Go engineer",
		"Kubernetes, gRPC, backend services in Go",
	))
	bob := writeFile(t, src, "bob.pdf", pdftest.Build(
		"Bob Jones\nFrontend developer",
		"React, TypeScript, CSS animations",
	))

	for _, path := range []string{alice, bob} {
		if _, err := k.Ingest(ctx, path, ""); err != nil {
			t.Fatalf("Ingest(%s): %v", path, err)
		}
	}

	ids, err := k.RetrieveMatches(ctx, "Go Developer", "Build backend services in Go", []string{"Go", "Kubernetes"}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "alice.pdf" {
		t.Errorf("RetrieveMatches() = %v, want alice.pdf first", ids)
	}

	ids, err = k.RetrieveMatches(ctx, "Go Developer", "", []string{"Go"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("topK 1 returned %v", ids)
	}
}

func TestKit_ReingestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	k := openKit(t, testConfig(t))
	path := writeFile(t, t.TempDir(), "alice.pdf", pdftest.Build("Alice"))

	for i := 0; i < 3; i++ {
		if _, err := k.Ingest(ctx, path, ""); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := k.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestKit_EmptyIndex(t *testing.T) {
	k := openKit(t, testConfig(t))
	ids, err := k.RetrieveMatches(context.Background(), "Anything", "", nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v", ids)
	}
}

func TestKit_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	path := writeFile(t, t.TempDir(), "alice.pdf", pdftest.Build("Alice, site reliability engineer"))

	k, err := Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Ingest(ctx, path, ""); err != nil {
		t.Fatal(err)
	}
	if err := k.Close(); err != nil {
		t.Fatal(err)
	}
	if err := k.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	// The keyword index is derived and is rebuilt when missing.
	if err := os.RemoveAll(cfg.Store.KeywordPath()); err != nil {
		t.Fatal(err)
	}

	k = openKit(t, cfg)
	if n, _ := k.Count(ctx); n != 1 {
		t.Errorf("Count after reopen = %d", n)
	}
	hits, err := k.SearchKeywords(ctx, "reliability", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "alice.pdf" {
		t.Errorf("keyword hits after rebuild = %+v", hits)
	}
}

func TestKit_MissedKeywordUpdateRebuildsOnOpen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	path := writeFile(t, t.TempDir(), "alice.pdf", pdftest.Build("Alice, site reliability engineer"))

	k, err := Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Ingest(ctx, path, ""); err != nil {
		t.Fatal(err)
	}

	// Same document count, new text the keyword index never sees.
	k.keywords.Close()
	id, err := k.Ingest(ctx, path, " Kubernetes operator")
	if err != nil {
		t.Fatalf("Ingest with keyword index down: %v", err)
	}
	if id != "alice.pdf" {
		t.Errorf("id = %q", id)
	}
	if n, _ := k.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	if _, err := os.Stat(cfg.Store.KeywordStalePath()); err != nil {
		t.Fatalf("stale marker not written: %v", err)
	}
	k.Close()

	k = openKit(t, cfg)
	hits, err := k.SearchKeywords(ctx, "kubernetes", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "alice.pdf" {
		t.Errorf("keyword hits after reopen = %+v", hits)
	}
	if _, err := os.Stat(cfg.Store.KeywordStalePath()); !os.IsNotExist(err) {
		t.Errorf("stale marker left after rebuild: %v", err)
	}
}

func TestKit_UploadIngestFailureRemovesFile(t *testing.T) {
	cfg := testConfig(t)
	k := openKit(t, cfg)

	_, _, err := k.Upload(context.Background(), strings.NewReader("%PDF-1.4 nonsense"), "broken.pdf")
	if !errors.IsExtraction(err) {
		t.Fatalf("expected EXTRACTION, got %v", err)
	}
	entries, err := os.ReadDir(cfg.Store.ResumesDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed upload left files behind: %v", entries)
	}
}

func TestKit_InterviewFlow(t *testing.T) {
	ctx := context.Background()
	gen := llm.NewMockGenerator(
		"1. How do you profile Go services?\n2. Describe a Kubernetes outage you handled.",
		`{"evaluation": "Deep Go expertise and calm under pressure.", "advice": "Practice system design."}`,
	)
	k := openKit(t, testConfig(t), WithGenerator(gen))

	id, questions, err := k.Upload(ctx, bytes.NewReader(pdftest.Build("Alice Smith, Go engineer")), "Alice.PDF")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(id, ".pdf") {
		t.Errorf("id = %q", id)
	}
	if len(questions) != 2 || questions[0] != "How do you profile Go services?" {
		t.Errorf("questions = %q", questions)
	}

	ev, err := k.SubmitAnswers(ctx, id, []string{"pprof and traces", "rolled back a bad deploy"})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Advice != "Practice system design." {
		t.Errorf("Advice = %q", ev.Advice)
	}

	doc, err := k.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(doc.Text, "Deep Go expertise and calm under pressure.") {
		t.Errorf("evaluation not appended: %q", doc.Text)
	}
	if doc.Metadata["has_evaluation"] != "true" {
		t.Errorf("has_evaluation = %q", doc.Metadata["has_evaluation"])
	}
	if n, _ := k.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	if !strings.Contains(gen.Prompts()[1], "pprof and traces, rolled back a bad deploy") {
		t.Errorf("answers missing from prompt")
	}
}

func TestKit_SubmitAnswersUnknownID(t *testing.T) {
	gen := llm.NewMockGenerator(`{"evaluation": "x", "advice": "y"}`)
	k := openKit(t, testConfig(t), WithGenerator(gen))

	_, err := k.SubmitAnswers(context.Background(), "nobody.pdf", []string{"a"})
	if !errors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if gen.CallCount() != 0 {
		t.Errorf("generator called for unknown id")
	}
}

func TestKit_BadEvaluationLeavesResume(t *testing.T) {
	ctx := context.Background()
	gen := llm.NewMockGenerator("1. Q?", "Evaluation: solid but no advice section")
	k := openKit(t, testConfig(t), WithGenerator(gen))

	id, _, err := k.Upload(ctx, strings.NewReader("Carol, data engineer"), "carol.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.SubmitAnswers(ctx, id, []string{"a"}); !errors.IsGeneration(err) {
		t.Fatalf("expected GENERATION, got %v", err)
	}
	doc, _ := k.Get(ctx, id)
	if doc.Text != "Carol, data engineer" {
		t.Errorf("document changed: %q", doc.Text)
	}
}

func TestKit_WithoutGenerator(t *testing.T) {
	ctx := context.Background()
	k := openKit(t, testConfig(t))
	if k.HasGenerator() {
		t.Fatal("generator configured by default")
	}

	id, questions, err := k.Upload(ctx, strings.NewReader("Dan, QA"), "dan.txt")
	if err != nil {
		t.Fatal(err)
	}
	if questions != nil {
		t.Errorf("questions = %q", questions)
	}
	if _, err := k.SubmitAnswers(ctx, id, []string{"a"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestKit_EnrichFailureAbortsRetrieve(t *testing.T) {
	cfg := testConfig(t)
	cfg.Match.Enrich = true
	cfg.LLM.Model = "mock"
	gen := llm.NewMockGenerator()
	gen.SetError(fmt.Errorf("overloaded"))
	k := openKit(t, cfg, WithGenerator(gen))

	if _, err := k.RetrieveMatches(context.Background(), "SRE", "", nil, 5); !errors.IsGeneration(err) {
		t.Errorf("expected GENERATION, got %v", err)
	}
}

func TestKit_KeywordIndexDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.KeywordIndex = false
	k := openKit(t, cfg)
	if _, err := k.SearchKeywords(context.Background(), "go", 5); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if _, err := os.Stat(cfg.Store.KeywordPath()); !os.IsNotExist(err) {
		t.Errorf("keyword index created while disabled")
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = "word2vec"
	if _, err := Open(context.Background(), cfg); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
