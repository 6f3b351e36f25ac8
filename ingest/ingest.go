// Package ingest turns resume files into stored documents.
//
// A resume is extracted to text, the optional evaluation text is appended
// verbatim, and the result is written to the vector store under the file's
// basename. Writing the same id again replaces the document.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/extract"
	"github.com/vinayprograms/talentkit/logging"
	"github.com/vinayprograms/talentkit/telemetry"
	"github.com/vinayprograms/talentkit/vectorstore"
)

// Metadata keys written with every document.
const (
	MetaFilename      = "filename"
	MetaSHA256        = "sha256"
	MetaHasEvaluation = "has_evaluation"
)

// KeywordIndex receives the stored text of every ingested document.
type KeywordIndex interface {
	Index(id, text, filename string) error
}

// Config wires a Pipeline.
type Config struct {
	Store vectorstore.Store

	// Keywords is updated after each vector write when set. It is a derived
	// view: a failed update is logged and reported to OnKeywordsStale, and
	// the ingest still succeeds.
	Keywords KeywordIndex

	// OnKeywordsStale is called when a keyword update fails after the
	// document was stored.
	OnKeywordsStale func(id string, err error)

	// ResumesDir is where AppendEvaluation finds source files by id.
	ResumesDir string

	Logger *logging.Logger
}

// Pipeline ingests resumes. It holds no per-call state and is safe for
// concurrent use.
type Pipeline struct {
	store      vectorstore.Store
	keywords   KeywordIndex
	onStale    func(id string, err error)
	resumesDir string
	log        *logging.Logger
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Pipeline{
		store:      cfg.Store,
		keywords:   cfg.Keywords,
		onStale:    cfg.OnKeywordsStale,
		resumesDir: cfg.ResumesDir,
		log:        log.WithComponent("ingest"),
	}
}

// Ingest extracts the resume at path, appends evaluation and upserts the
// result. It returns the document id, which is the file's basename. Once the
// vector write succeeds the id is returned even if the keyword index could
// not be updated.
func (p *Pipeline) Ingest(ctx context.Context, path, evaluation string) (id string, err error) {
	id = filepath.Base(path)
	ctx, span := telemetry.GetTracer().StartIngestSpan(ctx, id)
	defer func() { telemetry.End(span, err) }()

	start := time.Now()
	p.log.IngestStart(path)
	defer func() {
		if err != nil {
			p.log.IngestFailed(path, err)
		}
	}()

	ex, err := extract.ForFile(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeExtraction, "reading resume",
			errors.WithMetadata("file", id))
	}
	text, err := ex.Extract(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	text += evaluation

	sum := sha256.Sum256(data)
	meta := map[string]string{
		MetaFilename:      id,
		MetaSHA256:        hex.EncodeToString(sum[:]),
		MetaHasEvaluation: strconv.FormatBool(evaluation != ""),
	}
	if err := p.store.Upsert(ctx, id, text, meta); err != nil {
		return "", err
	}
	if p.keywords != nil {
		if kerr := p.keywords.Index(id, text, id); kerr != nil {
			p.log.KeywordIndexStale(id, kerr)
			if p.onStale != nil {
				p.onStale(id, kerr)
			}
		}
	}

	p.log.IngestComplete(id, len(text), time.Since(start))
	return id, nil
}

// AppendEvaluation re-ingests the stored resume id with evaluation attached,
// replacing the previous document.
func (p *Pipeline) AppendEvaluation(ctx context.Context, id, evaluation string) error {
	path, err := p.SourcePath(id)
	if err != nil {
		return err
	}
	if _, err := p.Ingest(ctx, path, evaluation); err != nil {
		return err
	}
	p.log.EvaluationAppended(id)
	return nil
}

// SourcePath resolves the source file of id inside the resumes directory.
func (p *Pipeline) SourcePath(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	if p.resumesDir == "" {
		return "", errors.InvalidInput("no resumes directory configured")
	}
	path := filepath.Join(p.resumesDir, id)
	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.IsDir()) {
		return "", errors.NotFound(id)
	}
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeStorage, "locating resume", errors.WithDocumentID(id))
	}
	return path, nil
}

// ValidateID rejects ids that are empty or could escape a directory.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return errors.InvalidInput("invalid document id", errors.WithMetadata("id", id))
	}
	return nil
}
