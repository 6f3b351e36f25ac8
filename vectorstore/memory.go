package vectorstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vinayprograms/talentkit/embedding"
	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/telemetry"
)

// MemoryStore is a process-local Store. It follows the same rules as
// BoltStore and is lost on exit.
type MemoryStore struct {
	mu        sync.RWMutex
	docs      map[string]Document
	dimension int
	embedder  embedding.Embedder
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(embedder embedding.Embedder) *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]Document),
		embedder: embedder,
	}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, id, text string, metadata map[string]string) (err error) {
	ctx, span := telemetry.GetTracer().StartUpsertSpan(ctx, "memory", id, len(text))
	defer func() { telemetry.End(span, err) }()

	if id == "" {
		return errors.InvalidInput("document id is required")
	}
	vec, err := embed(ctx, s.embedder, text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	if s.dimension == 0 && len(s.docs) == 0 {
		s.dimension = len(vec)
	} else if s.dimension != len(vec) {
		return dimensionMismatch("memory", s.dimension, len(vec))
	}
	doc := Document{
		ID:        id,
		Text:      text,
		Metadata:  copyMetadata(metadata),
		Vector:    vec,
		Model:     s.embedder.Model(),
		UpdatedAt: time.Now().UTC(),
	}
	if prev, ok := s.docs[id]; ok && unchanged(&prev, doc) {
		return nil
	}
	s.docs[id] = doc
	return nil
}

// Query implements Store.
func (s *MemoryStore) Query(ctx context.Context, text string, topK int) (results []Result, err error) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartQuerySpan(ctx, "memory", topK)
	defer func() { tracer.EndQuerySpan(span, len(results), err) }()

	vec, err := embed(ctx, s.embedder, text)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}
	if len(s.docs) > 0 && s.dimension != len(vec) {
		return nil, dimensionMismatch("memory", s.dimension, len(vec))
	}
	cands := make([]candidate, 0, len(s.docs))
	for id, doc := range s.docs {
		cands = append(cands, candidate{id: id, vector: doc.Vector})
	}
	return rank(vec, cands, topK), nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	doc.Metadata = copyMetadata(doc.Metadata)
	doc.Vector = append([]float32(nil), doc.Vector...)
	return &doc, nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errClosed()
	}
	return len(s.docs), nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}
	out := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		doc.Metadata = copyMetadata(doc.Metadata)
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
