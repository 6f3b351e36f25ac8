// Package textindex is a BM25 keyword index over stored resume text. It is a
// companion to the vector index and can be rebuilt from it at any time.
package textindex

import (
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/vinayprograms/talentkit/errors"
)

// DefaultLimit caps Search when no limit is given.
const DefaultLimit = 10

// Entry is the indexed form of one document.
type Entry struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

// Hit is one keyword search result.
type Hit struct {
	ID       string
	Filename string
	Score    float64
}

// Index wraps a bleve index on disk.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// Open opens the index at path, creating it if absent.
func Open(path string) (*Index, error) {
	var (
		idx bleve.Index
		err error
	)
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		idx, err = bleve.New(path, buildMapping())
	} else {
		idx, err = bleve.Open(path)
	}
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "opening keyword index",
			errors.WithMetadata("path", path))
	}
	return &Index{index: idx, path: path}, nil
}

// NewMemory creates an index that lives only in memory.
func NewMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "creating keyword index")
	}
	return &Index{index: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false

	name := bleve.NewTextFieldMapping()
	name.Analyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("text", text)
	doc.AddFieldMappingsAt("filename", name)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

// Index indexes or replaces the entry for id.
func (x *Index) Index(id, text, filename string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return errClosed()
	}
	if err := x.index.Index(id, Entry{ID: id, Text: text, Filename: filename}); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeStorage, "indexing document", errors.WithDocumentID(id))
	}
	return nil
}

// Search runs a match query over resume text. Results are ordered by score,
// best first.
func (x *Index) Search(q string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, errClosed()
	}

	match := bleve.NewMatchQuery(q)
	match.SetField("text")
	req := bleve.NewSearchRequest(match)
	req.Size = limit
	req.Fields = []string{"filename"}

	res, err := x.index.Search(req)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "keyword search failed")
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		filename, _ := h.Fields["filename"].(string)
		hits = append(hits, Hit{ID: h.ID, Filename: filename, Score: h.Score})
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (x *Index) Count() (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return 0, errClosed()
	}
	n, err := x.index.DocCount()
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrCodeStorage, "counting keyword index")
	}
	return int(n), nil
}

// listPageSize is how many ids Rebuild reads per search page.
var listPageSize = 1000

// Rebuild replaces the index contents with entries in a single batch.
func (x *Index) Rebuild(entries []Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return errClosed()
	}

	batch := x.index.NewBatch()
	for from := 0; ; from += listPageSize {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), listPageSize, from, false)
		req.SortBy([]string{"_id"})
		res, err := x.index.Search(req)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrCodeStorage, "listing keyword index")
		}
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if len(res.Hits) < listPageSize {
			break
		}
	}
	for _, e := range entries {
		if err := batch.Index(e.ID, e); err != nil {
			return errors.WrapWithCode(err, errors.ErrCodeStorage, "indexing document", errors.WithDocumentID(e.ID))
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeStorage, "rebuilding keyword index")
	}
	return nil
}

// Close closes the underlying index. Later calls do nothing.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	if err := x.index.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeStorage, "closing keyword index")
	}
	return nil
}

func errClosed() error {
	return errors.Storage("keyword index is closed")
}
