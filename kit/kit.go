// Package kit owns the process-wide talentkit resources and exposes the
// resume ingestion, matching and interview operations over them.
//
// Open builds everything once: the embedding model, the vector index, the
// optional keyword index and text generator, and the pipelines that share
// them. All operations are safe for concurrent use. Close releases the
// resources in reverse order.
package kit

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vinayprograms/talentkit/config"
	"github.com/vinayprograms/talentkit/credentials"
	"github.com/vinayprograms/talentkit/embedding"
	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/ingest"
	"github.com/vinayprograms/talentkit/interview"
	"github.com/vinayprograms/talentkit/llm"
	"github.com/vinayprograms/talentkit/logging"
	"github.com/vinayprograms/talentkit/match"
	"github.com/vinayprograms/talentkit/ratelimit"
	"github.com/vinayprograms/talentkit/textindex"
	"github.com/vinayprograms/talentkit/uploads"
	"github.com/vinayprograms/talentkit/vectorstore"
)

// Option customizes Open.
type Option func(*options)

type options struct {
	creds     *credentials.Credentials
	log       *logging.Logger
	embedder  embedding.Embedder
	generator llm.Generator
}

// WithCredentials supplies API keys for providers.
func WithCredentials(c *credentials.Credentials) Option {
	return func(o *options) { o.creds = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithEmbedder uses e instead of the configured embedding provider. It is
// still wrapped in the truncation policy.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithGenerator uses g instead of the configured generation model.
func WithGenerator(g llm.Generator) Option {
	return func(o *options) { o.generator = g }
}

// Kit is an open talentkit instance.
type Kit struct {
	cfg *config.Config
	log *logging.Logger

	limiter     *ratelimit.Limiter
	embedder    *embedding.Policy
	store       *vectorstore.BoltStore
	keywords    *textindex.Index
	generator   llm.Generator
	uploads     *uploads.Store
	ingest      *ingest.Pipeline
	matcher     *match.Matcher
	interviewer *interview.Interviewer

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// Open initializes a Kit from cfg. On failure everything opened so far is
// closed again.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (k *Kit, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "invalid configuration")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	log := o.log
	if log == nil {
		log = logging.Nop()
	}

	k = &Kit{cfg: cfg, log: log.WithComponent("kit")}
	defer func() {
		if err != nil {
			k.Close()
			k = nil
		}
	}()

	k.limiter = ratelimit.New()
	k.limiter.SetCapacity(ratelimit.ResourceEmbedding, cfg.Embedding.RequestsPerMinute, time.Minute)
	k.limiter.SetCapacity(ratelimit.ResourceLLM, cfg.LLM.RequestsPerMinute, time.Minute)
	k.closers = append(k.closers, k.limiter.Close)

	if k.embedder, err = newEmbedder(cfg, o, k.limiter); err != nil {
		return k, err
	}
	k.closers = append(k.closers, k.embedder.Close)

	if k.store, err = vectorstore.OpenBolt(cfg.Store.IndexPath(), cfg.Store.Collection, k.embedder); err != nil {
		return k, err
	}
	k.closers = append(k.closers, k.store.Close)
	count, err := k.store.Count(ctx)
	if err != nil {
		return k, err
	}
	k.log.StoreOpened(k.store.Path(), cfg.Store.Collection, count)

	var keywords ingest.KeywordIndex
	if cfg.Store.KeywordIndex {
		if k.keywords, err = textindex.Open(cfg.Store.KeywordPath()); err != nil {
			return k, err
		}
		k.closers = append(k.closers, k.keywords.Close)
		if err = k.syncKeywords(ctx, count); err != nil {
			return k, err
		}
		keywords = k.keywords
	}

	if k.generator, err = newGenerator(cfg, o, k.limiter); err != nil {
		return k, err
	}
	if c, ok := k.generator.(io.Closer); ok {
		k.closers = append(k.closers, c.Close)
	}

	if k.uploads, err = uploads.New(cfg.Store.ResumesDir); err != nil {
		return k, err
	}

	icfg := ingest.Config{
		Store:      k.store,
		Keywords:   keywords,
		ResumesDir: cfg.Store.ResumesDir,
		Logger:     log,
	}
	if keywords != nil {
		icfg.OnKeywordsStale = k.markKeywordsStale
	}
	k.ingest = ingest.New(icfg)

	mcfg := match.Config{Store: k.store, DefaultTopK: cfg.Match.TopK, Logger: log}
	if cfg.Match.Enrich && k.generator != nil {
		mcfg.Enricher = match.GeneratorEnricher{Generator: k.generator}
	}
	k.matcher = match.New(mcfg)

	if k.generator != nil {
		k.interviewer = interview.New(k.generator, log)
	}
	return k, nil
}

func newEmbedder(cfg *config.Config, o *options, limiter *ratelimit.Limiter) (*embedding.Policy, error) {
	if o.embedder != nil {
		if p, ok := o.embedder.(*embedding.Policy); ok {
			return p, nil
		}
		return embedding.NewPolicy(o.embedder, cfg.Embedding.MaxRunes), nil
	}
	if cfg.Embedding.RequestsPerMinute == 0 {
		limiter = nil
	}
	return embedding.New(embedding.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		APIKey:    o.creds.GetAPIKey(cfg.Embedding.Provider),
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		MaxRunes:  cfg.Embedding.MaxRunes,
		Limiter:   limiter,
	})
}

// newGenerator returns nil when no model is configured.
func newGenerator(cfg *config.Config, o *options, limiter *ratelimit.Limiter) (llm.Generator, error) {
	if o.generator != nil {
		return withRateLimit(o.generator, cfg, limiter), nil
	}
	if cfg.LLM.Model == "" {
		return nil, nil
	}
	provider := cfg.LLM.Provider
	if provider == "" {
		provider = llm.InferProviderFromModel(cfg.LLM.Model)
	}
	g, err := llm.NewGenerator(llm.Config{
		Provider:  provider,
		Model:     cfg.LLM.Model,
		APIKey:    o.creds.GetAPIKey(provider),
		MaxTokens: cfg.LLM.MaxTokens,
		BaseURL:   cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return withRateLimit(llm.WithTracing(g, provider), cfg, limiter), nil
}

func withRateLimit(g llm.Generator, cfg *config.Config, limiter *ratelimit.Limiter) llm.Generator {
	if cfg.LLM.RequestsPerMinute == 0 {
		return g
	}
	return llm.WithRateLimit(g, limiter, ratelimit.ResourceLLM)
}

// syncKeywords rebuilds the keyword index when it disagrees with the vector
// index about the number of documents or a missed update left it marked stale.
func (k *Kit) syncKeywords(ctx context.Context, stored int) error {
	indexed, err := k.keywords.Count()
	if err != nil {
		return err
	}
	_, serr := os.Stat(k.cfg.Store.KeywordStalePath())
	stale := serr == nil
	if indexed == stored && !stale {
		return nil
	}
	k.log.Info("rebuilding keyword index", map[string]interface{}{
		"indexed": indexed,
		"stored":  stored,
		"stale":   stale,
	})
	return k.RebuildKeywords(ctx)
}

// markKeywordsStale records that the keyword index missed a write so the
// next Open rebuilds it.
func (k *Kit) markKeywordsStale(id string, _ error) {
	if err := os.WriteFile(k.cfg.Store.KeywordStalePath(), []byte(id+"\n"), 0600); err != nil {
		k.log.Warn("marking keyword index stale", map[string]interface{}{"error": err.Error()})
	}
}

// Close releases every resource. It is safe to call more than once.
func (k *Kit) Close() error {
	k.closeOnce.Do(func() {
		var errs []error
		for i := len(k.closers) - 1; i >= 0; i-- {
			if err := k.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		k.closeErr = stderrors.Join(errs...)
	})
	return k.closeErr
}

// Config returns the configuration the kit was opened with.
func (k *Kit) Config() *config.Config { return k.cfg }

// HasGenerator reports whether a text generator is configured.
func (k *Kit) HasGenerator() bool { return k.generator != nil }
