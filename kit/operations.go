package kit

import (
	"context"
	"io"
	"os"

	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/ingest"
	"github.com/vinayprograms/talentkit/interview"
	"github.com/vinayprograms/talentkit/match"
	"github.com/vinayprograms/talentkit/textindex"
	"github.com/vinayprograms/talentkit/vectorstore"
)

// Ingest extracts and stores the resume at path with evaluation appended.
// It returns the document id (the file's basename).
func (k *Kit) Ingest(ctx context.Context, path, evaluation string) (string, error) {
	return k.ingest.Ingest(ctx, path, evaluation)
}

// RetrieveMatches returns the ids of the resumes nearest to the job, best
// first. topK <= 0 uses the configured default.
func (k *Kit) RetrieveMatches(ctx context.Context, title, description string, skills []string, topK int) ([]string, error) {
	return k.matcher.RetrieveMatches(ctx, match.Job{Title: title, Description: description, Skills: skills}, topK)
}

// Matches is RetrieveMatches with distances.
func (k *Kit) Matches(ctx context.Context, job match.Job, topK int) ([]vectorstore.Result, error) {
	return k.matcher.Matches(ctx, job, topK)
}

// Upload stores a resume under a new id, ingests it, and generates interview
// questions when a generator is configured. A file that fails ingestion is
// removed again. If question generation fails the resume stays stored and its
// id is returned with the error.
func (k *Kit) Upload(ctx context.Context, r io.Reader, name string) (id string, questions []string, err error) {
	id, err = k.uploads.Save(r, name)
	if err != nil {
		return "", nil, err
	}
	path, err := k.uploads.Path(id)
	if err != nil {
		return "", nil, err
	}
	if _, err := k.ingest.Ingest(ctx, path, ""); err != nil {
		if rerr := k.uploads.Remove(id); rerr != nil {
			k.log.Warn("removing failed upload", map[string]interface{}{"id": id, "error": rerr.Error()})
		}
		return "", nil, err
	}
	if k.interviewer == nil {
		return id, nil, nil
	}
	questions, err = k.Questions(ctx, id)
	return id, questions, err
}

// Questions generates interview questions for a stored resume.
func (k *Kit) Questions(ctx context.Context, id string) ([]string, error) {
	if k.interviewer == nil {
		return nil, errNoGenerator()
	}
	doc, err := k.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return k.interviewer.Questions(ctx, doc.Text)
}

// SubmitAnswers evaluates a candidate's answers and appends the evaluation to
// their stored resume.
func (k *Kit) SubmitAnswers(ctx context.Context, id string, answers []string) (*interview.Evaluation, error) {
	if k.interviewer == nil {
		return nil, errNoGenerator()
	}
	if _, err := k.ingest.SourcePath(id); err != nil {
		return nil, err
	}
	ev, err := k.interviewer.Evaluate(ctx, answers)
	if err != nil {
		return nil, err
	}
	if err := k.ingest.AppendEvaluation(ctx, id, ev.Evaluation); err != nil {
		return nil, err
	}
	return ev, nil
}

// SearchKeywords runs a keyword query over stored resume text.
func (k *Kit) SearchKeywords(ctx context.Context, query string, limit int) ([]textindex.Hit, error) {
	if k.keywords == nil {
		return nil, errors.InvalidInput("keyword index is disabled (store.keyword_index = false)")
	}
	return k.keywords.Search(query, limit)
}

// RebuildKeywords regenerates the keyword index from the vector index.
func (k *Kit) RebuildKeywords(ctx context.Context) error {
	if k.keywords == nil {
		return errors.InvalidInput("keyword index is disabled (store.keyword_index = false)")
	}
	docs, err := k.store.List(ctx)
	if err != nil {
		return err
	}
	entries := make([]textindex.Entry, len(docs))
	for i, d := range docs {
		entries[i] = textindex.Entry{ID: d.ID, Text: d.Text, Filename: d.Metadata[ingest.MetaFilename]}
	}
	if err := k.keywords.Rebuild(entries); err != nil {
		return err
	}
	if err := os.Remove(k.cfg.Store.KeywordStalePath()); err != nil && !os.IsNotExist(err) {
		return errors.WrapWithCode(err, errors.ErrCodeStorage, "clearing keyword stale marker")
	}
	return nil
}

// Get returns a stored document.
func (k *Kit) Get(ctx context.Context, id string) (*vectorstore.Document, error) {
	return k.store.Get(ctx, id)
}

// Count returns the number of stored documents.
func (k *Kit) Count(ctx context.Context) (int, error) {
	return k.store.Count(ctx)
}

// Documents lists stored documents in id order.
func (k *Kit) Documents(ctx context.Context) ([]vectorstore.Document, error) {
	return k.store.List(ctx)
}

func errNoGenerator() error {
	return errors.InvalidInput("no text generator configured (set llm.model)")
}
