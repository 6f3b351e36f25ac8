// Package vectorstore persists embedded documents and answers
// nearest-neighbor queries over them.
//
// Documents are keyed by id; writing an existing id replaces the whole
// record, vector included. Queries embed their text with the same
// Embedder used for writes and return ids ordered by cosine distance
// (1 - cos, range [0, 2]), ties broken by ascending id.
package vectorstore

import (
	"context"
	"maps"
	"math"
	"slices"
	"sort"
	"time"
)

// DefaultTopK is used when a query asks for zero or fewer results.
const DefaultTopK = 5

// Document is one stored record. UpdatedAt is the time of the last write
// that changed the record; rewriting identical content keeps it.
type Document struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata"`
	Vector    []float32         `json:"vector"`
	Model     string            `json:"model"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Result is one query hit.
type Result struct {
	ID       string
	Distance float64
}

// Store is an id-keyed vector index.
type Store interface {
	// Upsert embeds text and stores it under id, replacing any previous record.
	// If embedding fails nothing is written.
	Upsert(ctx context.Context, id, text string, metadata map[string]string) error

	// Query returns up to topK ids nearest to text. An empty or missing
	// collection yields an empty result.
	Query(ctx context.Context, text string, topK int) ([]Result, error)

	// Get returns the stored record for id.
	Get(ctx context.Context, id string) (*Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// List returns every document in id order.
	List(ctx context.Context) ([]Document, error)

	Close() error
}

// Distance returns the cosine distance between a and b. A zero-norm vector is
// at distance 1 from everything.
func Distance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	return math.Max(0, math.Min(2, d))
}

// candidate is a scored document used while ranking.
type candidate struct {
	id     string
	vector []float32
}

// rank orders candidates by (distance, id) and keeps the best topK.
func rank(query []float32, cands []candidate, topK int) []Result {
	if topK <= 0 {
		topK = DefaultTopK
	}
	results := make([]Result, len(cands))
	for i, c := range cands {
		results[i] = Result{ID: c.id, Distance: Distance(query, c.vector)}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// unchanged reports whether next would store the same content as prev.
func unchanged(prev *Document, next Document) bool {
	return prev != nil &&
		prev.Text == next.Text &&
		prev.Model == next.Model &&
		maps.Equal(prev.Metadata, next.Metadata) &&
		slices.Equal(prev.Vector, next.Vector)
}
