package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/vinayprograms/talentkit/errors"
)

// HashEmbedder is a local feature-hashing model. Lower-cased word unigrams
// and bigrams are hashed into signed buckets and the result is L2-normalized,
// so texts sharing vocabulary land close together. It needs no network and
// is fully deterministic.
type HashEmbedder struct {
	dimension int
}

// DefaultHashDimension is the hash embedder size when none is configured.
const DefaultHashDimension = 384

// NewHashEmbedder creates a hash embedder. Zero means DefaultHashDimension.
func NewHashEmbedder(dimension int) (*HashEmbedder, error) {
	if dimension == 0 {
		dimension = DefaultHashDimension
	}
	if dimension < 0 {
		return nil, errors.InvalidInput("hash embedder needs a positive dimension")
	}
	return &HashEmbedder{dimension: dimension}, nil
}

// Dimension implements Embedder.
func (e *HashEmbedder) Dimension() int { return e.dimension }

// Model implements Embedder.
func (e *HashEmbedder) Model() string { return fmt.Sprintf("hash-v1-%d", e.dimension) }

// Embed implements Embedder.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, e.dimension)
	words := tokenize(text)
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dimension)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (e *HashEmbedder) add(vec []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(e.dimension)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}
