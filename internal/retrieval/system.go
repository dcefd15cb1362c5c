package retrieval

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gurukul-labs/gurukul/internal/log"
	"github.com/gurukul-labs/gurukul/internal/textsplit"
)

// tracerName identifies this instrumentation scope in exported traces.
const tracerName = "github.com/gurukul-labs/gurukul/internal/retrieval"

// System composes the retrieval core into the three operations the outer
// layers consume: Ingest, Search, Answer. One System is constructed per
// process; the IndexManager inside it carries the per-process index
// readiness state.
type System struct {
	ingestor  *Ingestor
	retriever *Retriever
	answerer  *Answerer
	index     *IndexManager
	tracer    trace.Tracer
}

// NewSystem wires the retrieval components around one store, one embedding
// provider, and one generation provider.
func NewSystem(store Store, embedder Embedder, generator Generator, chunker textsplit.Chunker, logger log.Logger) *System {
	if logger == nil {
		logger = log.NewNop()
	}

	index := NewIndexManager(store, logger.With("component", "index"))
	retriever := NewRetriever(store, embedder, index, logger.With("component", "retriever"))

	return &System{
		ingestor:  NewIngestor(store, embedder, index, chunker, logger.With("component", "ingestor")),
		retriever: retriever,
		answerer:  NewAnswerer(retriever, generator, logger.With("component", "answerer")),
		index:     index,
		tracer:    otel.Tracer(tracerName),
	}
}

// Ingest embeds and upserts a single chunk, returning its id.
func (s *System) Ingest(ctx context.Context, input ChunkInput) (string, error) {
	ctx, span := s.tracer.Start(ctx, "retrieval.Ingest", trace.WithAttributes(
		attribute.String("subject", input.Subject),
		attribute.Int("class_no", input.ClassNo),
		attribute.String("chapter", input.Chapter),
	))
	defer span.End()

	id, err := s.ingestor.IngestChunk(ctx, input)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return id, nil
}

// IngestDocument runs the chunking pipeline over a paginated document.
func (s *System) IngestDocument(ctx context.Context, doc DocumentInput) (Report, error) {
	ctx, span := s.tracer.Start(ctx, "retrieval.IngestDocument", trace.WithAttributes(
		attribute.String("subject", doc.Subject),
		attribute.Int("class_no", doc.ClassNo),
		attribute.String("chapter", doc.Chapter),
		attribute.Int("pages", len(doc.Pages)),
	))
	defer span.End()

	report, err := s.ingestor.IngestDocument(ctx, doc)
	span.SetAttributes(
		attribute.Int("chunks", report.Chunks),
		attribute.Int("failed", report.Failed),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return report, err
}

// Search returns the top-k chunks for a query within subject and class.
func (s *System) Search(ctx context.Context, query string, classNo int, subject string, k int) ([]SearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "retrieval.Search", trace.WithAttributes(
		attribute.String("subject", subject),
		attribute.Int("class_no", classNo),
		attribute.Int("k", k),
	))
	defer span.End()

	results, err := s.retriever.Search(ctx, query, classNo, subject, k)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

// Answer produces a grounded answer for the query.
func (s *System) Answer(ctx context.Context, query string, classNo int, subject string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "retrieval.Answer", trace.WithAttributes(
		attribute.String("subject", subject),
		attribute.Int("class_no", classNo),
	))
	defer span.End()

	answer, err := s.answerer.Answer(ctx, query, classNo, subject)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return answer, nil
}

// Degraded reports whether index creation failed this process; surfaced
// through the readiness probe.
func (s *System) Degraded() bool {
	return s.index.Degraded()
}
