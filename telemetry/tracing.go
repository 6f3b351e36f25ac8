// Package telemetry provides OpenTelemetry tracing for the talentkit pipelines.
//
// Spans:
//
//	ingest.resume       one resume ingestion (extract, embed, store)
//	vectorstore.upsert  one embedded write
//	vectorstore.query   one similarity search
//	match.retrieve      one job-to-resume match
//	llm.generate        one call to the text generator
//
// Without InitProvider every span is a no-op.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span names.
const (
	SpanIngest   = "ingest.resume"
	SpanUpsert   = "vectorstore.upsert"
	SpanQuery    = "vectorstore.query"
	SpanRetrieve = "match.retrieve"
	SpanGenerate = "llm.generate"
)

// Tracer wraps an OpenTelemetry tracer with pipeline helpers.
type Tracer struct {
	tracer trace.Tracer
	debug  bool // include prompt and response text in spans
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a tracer from the global otel provider.
func NewTracer(name string, debug bool) *Tracer {
	return &Tracer{tracer: otel.Tracer(name), debug: debug}
}

// NewTracerFromProvider creates a tracer from an explicit provider.
func NewTracerFromProvider(tp trace.TracerProvider, name string, debug bool) *Tracer {
	return &Tracer{tracer: tp.Tracer(name), debug: debug}
}

// Debug reports whether content is recorded in spans.
func (t *Tracer) Debug() bool {
	return t.debug
}

// StartSpan starts a span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, sets its status and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartIngestSpan starts a span for one resume ingestion.
func (t *Tracer) StartIngestSpan(ctx context.Context, id string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, SpanIngest, attribute.String("document.id", id))
}

// StartUpsertSpan starts a span for one vector write.
func (t *Tracer) StartUpsertSpan(ctx context.Context, collection, id string, chars int) (context.Context, trace.Span) {
	return t.StartSpan(ctx, SpanUpsert,
		attribute.String("vectorstore.collection", collection),
		attribute.String("document.id", id),
		attribute.Int("document.chars", chars),
	)
}

// StartQuerySpan starts a span for one similarity search.
func (t *Tracer) StartQuerySpan(ctx context.Context, collection string, topK int) (context.Context, trace.Span) {
	return t.StartSpan(ctx, SpanQuery,
		attribute.String("vectorstore.collection", collection),
		attribute.Int("vectorstore.top_k", topK),
	)
}

// EndQuerySpan records the result count and ends a query span.
func (t *Tracer) EndQuerySpan(span trace.Span, results int, err error) {
	span.SetAttributes(attribute.Int("vectorstore.results", results))
	End(span, err)
}

// StartRetrieveSpan starts a span for one job match.
func (t *Tracer) StartRetrieveSpan(ctx context.Context, title string, skills int) (context.Context, trace.Span) {
	return t.StartSpan(ctx, SpanRetrieve,
		attribute.String("job.title", title),
		attribute.Int("job.skills", skills),
	)
}

// GenerateSpanOptions contains attributes for a generation span.
type GenerateSpanOptions struct {
	Model    string
	Provider string
	Prompt   string // recorded only in debug mode
	Response string // recorded only in debug mode
}

// StartGenerateSpan starts a client span for a generator call.
func (t *Tracer) StartGenerateSpan(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanGenerate, trace.WithSpanKind(trace.SpanKindClient))
}

// EndGenerateSpan sets generation attributes and ends the span.
func (t *Tracer) EndGenerateSpan(span trace.Span, opts GenerateSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.model", opts.Model),
		attribute.String("llm.provider", opts.Provider),
	}
	if t.debug {
		if opts.Prompt != "" {
			attrs = append(attrs, attribute.String("llm.prompt", truncate(opts.Prompt, 4000)))
		}
		if opts.Response != "" {
			attrs = append(attrs, attribute.String("llm.response", truncate(opts.Response, 4000)))
		}
	}
	span.SetAttributes(attrs...)
	End(span, err)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
