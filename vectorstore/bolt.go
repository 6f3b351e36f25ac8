package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vinayprograms/talentkit/embedding"
	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/telemetry"
)

var (
	docsBucket = []byte("docs")
	metaBucket = []byte("meta")
	infoKey    = []byte("info")
)

// collectionInfo pins the vector geometry of a collection.
type collectionInfo struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
}

// BoltStore keeps one collection in a bbolt file. Each collection is a
// top-level bucket holding a docs bucket (id → JSON record) and a meta
// bucket with the collection info. Buckets are created on first write.
type BoltStore struct {
	db         *bolt.DB
	path       string
	collection []byte
	embedder   embedding.Embedder

	writeMu sync.Mutex
	closed  atomic.Bool
}

// OpenBolt opens or creates the index file at path.
func OpenBolt(path, collection string, embedder embedding.Embedder) (*BoltStore, error) {
	if collection == "" {
		return nil, errors.InvalidInput("collection name is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "creating index directory")
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "opening vector index",
			errors.WithMetadata("path", path))
	}
	return &BoltStore{
		db:         db,
		path:       path,
		collection: []byte(collection),
		embedder:   embedder,
	}, nil
}

// Path returns the index file path.
func (s *BoltStore) Path() string { return s.path }

// Upsert implements Store.
func (s *BoltStore) Upsert(ctx context.Context, id, text string, metadata map[string]string) (err error) {
	ctx, span := telemetry.GetTracer().StartUpsertSpan(ctx, string(s.collection), id, len(text))
	defer func() { telemetry.End(span, err) }()

	if id == "" {
		return errors.InvalidInput("document id is required")
	}
	if s.closed.Load() {
		return errClosed()
	}

	vec, err := embed(ctx, s.embedder, text)
	if err != nil {
		return err
	}

	doc := Document{
		ID:        id,
		Text:      text,
		Metadata:  copyMetadata(metadata),
		Vector:    vec,
		Model:     s.embedder.Model(),
		UpdatedAt: time.Now().UTC(),
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err = s.db.Update(func(tx *bolt.Tx) error {
		coll, err := tx.CreateBucketIfNotExists(s.collection)
		if err != nil {
			return err
		}
		meta, err := coll.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		docs, err := coll.CreateBucketIfNotExists(docsBucket)
		if err != nil {
			return err
		}

		info, err := readInfo(meta)
		if err != nil {
			return err
		}
		if info == nil {
			raw, err := json.Marshal(collectionInfo{Model: doc.Model, Dimension: len(vec), CreatedAt: doc.UpdatedAt})
			if err != nil {
				return err
			}
			if err := meta.Put(infoKey, raw); err != nil {
				return err
			}
		} else if info.Dimension != len(vec) {
			return dimensionMismatch(string(s.collection), info.Dimension, len(vec))
		}

		if raw := docs.Get([]byte(id)); raw != nil {
			var prev Document
			if json.Unmarshal(raw, &prev) == nil && unchanged(&prev, doc) {
				return nil
			}
		}
		record, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return docs.Put([]byte(id), record)
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeStorage, "writing record", errors.WithDocumentID(id))
	}
	return nil
}

// Query implements Store.
func (s *BoltStore) Query(ctx context.Context, text string, topK int) (results []Result, err error) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartQuerySpan(ctx, string(s.collection), topK)
	defer func() { tracer.EndQuerySpan(span, len(results), err) }()

	if s.closed.Load() {
		return nil, errClosed()
	}

	vec, err := embed(ctx, s.embedder, text)
	if err != nil {
		return nil, err
	}

	var cands []candidate
	err = s.db.View(func(tx *bolt.Tx) error {
		coll := tx.Bucket(s.collection)
		if coll == nil {
			return nil
		}
		if meta := coll.Bucket(metaBucket); meta != nil {
			info, err := readInfo(meta)
			if err != nil {
				return err
			}
			if info != nil && info.Dimension != len(vec) {
				return dimensionMismatch(string(s.collection), info.Dimension, len(vec))
			}
		}
		docs := coll.Bucket(docsBucket)
		if docs == nil {
			return nil
		}
		return docs.ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return errors.WrapWithCode(err, errors.ErrCodeStorage, "decoding record",
					errors.WithDocumentID(string(k)))
			}
			if len(doc.Vector) != len(vec) {
				return dimensionMismatch(string(s.collection), len(doc.Vector), len(vec))
			}
			cands = append(cands, candidate{id: doc.ID, vector: doc.Vector})
			return nil
		})
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "reading vector index")
	}
	return rank(vec, cands, topK), nil
}

// Get implements Store.
func (s *BoltStore) Get(ctx context.Context, id string) (*Document, error) {
	if s.closed.Load() {
		return nil, errClosed()
	}
	var doc *Document
	err := s.db.View(func(tx *bolt.Tx) error {
		docs := s.docs(tx)
		if docs == nil {
			return nil
		}
		raw := docs.Get([]byte(id))
		if raw == nil {
			return nil
		}
		doc = &Document{}
		return json.Unmarshal(raw, doc)
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "reading record", errors.WithDocumentID(id))
	}
	if doc == nil {
		return nil, errors.NotFound(id)
	}
	return doc, nil
}

// Count implements Store.
func (s *BoltStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, errClosed()
	}
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		if docs := s.docs(tx); docs != nil {
			n = docs.Stats().KeyN
		}
		return nil
	})
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrCodeStorage, "counting records")
	}
	return n, nil
}

// List implements Store. bbolt iterates keys in byte order, which is id order.
func (s *BoltStore) List(ctx context.Context) ([]Document, error) {
	if s.closed.Load() {
		return nil, errClosed()
	}
	var out []Document
	err := s.db.View(func(tx *bolt.Tx) error {
		docs := s.docs(tx)
		if docs == nil {
			return nil
		}
		return docs.ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return errors.WrapWithCode(err, errors.ErrCodeStorage, "decoding record",
					errors.WithDocumentID(string(k)))
			}
			out = append(out, doc)
			return nil
		})
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "listing records")
	}
	return out, nil
}

// Close releases the file lock. Further calls return a STORAGE error;
// closing twice is a no-op.
func (s *BoltStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.db.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeStorage, "closing vector index")
	}
	return nil
}

func (s *BoltStore) docs(tx *bolt.Tx) *bolt.Bucket {
	coll := tx.Bucket(s.collection)
	if coll == nil {
		return nil
	}
	return coll.Bucket(docsBucket)
}

func readInfo(meta *bolt.Bucket) (*collectionInfo, error) {
	raw := meta.Get(infoKey)
	if raw == nil {
		return nil, nil
	}
	var info collectionInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, errors.Corruption("collection info is unreadable", errors.WithCause(err))
	}
	return &info, nil
}

func embed(ctx context.Context, e embedding.Embedder, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "embedding canceled")
	}
	vec, err := e.Embed(ctx, text)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeEmbedding, "embedding failed")
	}
	return vec, nil
}

func dimensionMismatch(collection string, stored, got int) error {
	return errors.Corruption(
		fmt.Sprintf("collection %s holds %d-dimension vectors, embedder produced %d", collection, stored, got),
		errors.WithMetadata("collection", collection))
}

func errClosed() error {
	return errors.Storage("vector index is closed")
}
