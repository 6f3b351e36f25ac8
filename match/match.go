// Package match turns job postings into similarity queries over stored
// resumes.
package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/llm"
	"github.com/vinayprograms/talentkit/logging"
	"github.com/vinayprograms/talentkit/telemetry"
	"github.com/vinayprograms/talentkit/vectorstore"
)

// Job is the part of a posting that drives matching.
type Job struct {
	Title       string
	Description string
	Skills      []string
}

// BuildQuery renders the composite query text. It is deterministic.
func BuildQuery(title string, skills []string, description string) string {
	return fmt.Sprintf("Position: %s,\nSkills: %s,\nDescription: %s,\n",
		title, strings.Join(skills, ", "), description)
}

// Enricher rewrites a job description before it is embedded.
type Enricher interface {
	Enrich(ctx context.Context, job Job) (string, error)
}

// GeneratorEnricher asks a text generator for a more specific description.
type GeneratorEnricher struct {
	Generator llm.Generator
}

// Enrich implements Enricher.
func (e GeneratorEnricher) Enrich(ctx context.Context, job Job) (string, error) {
	out, err := e.Generator.Generate(ctx, EnrichPrompt(job))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeGeneration, "enriching job description")
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.Generation("enriched description is empty")
	}
	return out, nil
}

// EnrichPrompt is the prompt sent by GeneratorEnricher.
func EnrichPrompt(job Job) string {
	return fmt.Sprintf(`"position": %s
"description": %s
"skills": %s

Rewrite the description above to be more detailed and specific. Include soft skills or other skills the role is likely to need. Use precise wording: the result is embedded and searched against candidate resumes, so the seniority and requirements it states must be clear (a posting for a graduate should not read like one for a senior engineer).
Respond with the rewritten description only.`,
		job.Title, job.Description, strings.Join(job.Skills, ", "))
}

// Config wires a Matcher.
type Config struct {
	Store vectorstore.Store

	// Enricher is optional; without it the description is used as given.
	Enricher Enricher

	// DefaultTopK applies when a call passes topK <= 0.
	DefaultTopK int

	Logger *logging.Logger
}

// Matcher answers job queries.
type Matcher struct {
	store       vectorstore.Store
	enricher    Enricher
	defaultTopK int
	log         *logging.Logger
}

// New creates a matcher.
func New(cfg Config) *Matcher {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	return &Matcher{
		store:       cfg.Store,
		enricher:    cfg.Enricher,
		defaultTopK: topK,
		log:         log.WithComponent("match"),
	}
}

// Query returns the text that would be embedded for job.
func (m *Matcher) Query(ctx context.Context, job Job) (string, error) {
	desc := job.Description
	if m.enricher != nil {
		enriched, err := m.enricher.Enrich(ctx, job)
		if err != nil {
			m.log.GenerationFailed("enrich", err)
			return "", err
		}
		desc = enriched
	}
	return BuildQuery(job.Title, job.Skills, desc), nil
}

// Matches returns the nearest resumes with their distances.
func (m *Matcher) Matches(ctx context.Context, job Job, topK int) (results []vectorstore.Result, err error) {
	ctx, span := telemetry.GetTracer().StartRetrieveSpan(ctx, job.Title, len(job.Skills))
	defer func() { telemetry.End(span, err) }()

	if topK <= 0 {
		topK = m.defaultTopK
	}
	start := time.Now()
	q, err := m.Query(ctx, job)
	if err != nil {
		return nil, err
	}
	results, err = m.store.Query(ctx, q, topK)
	if err != nil {
		return nil, err
	}
	m.log.QueryComplete(topK, len(results), time.Since(start))
	return results, nil
}

// RetrieveMatches returns matching resume ids, nearest first.
func (m *Matcher) RetrieveMatches(ctx context.Context, job Job, topK int) ([]string, error) {
	results, err := m.Matches(ctx, job, topK)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids, nil
}
