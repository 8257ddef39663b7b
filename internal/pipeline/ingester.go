package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/finance-insights/internal/documents"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/rs/zerolog"
)

// Source identifies a statement to ingest: either a URI to fetch or a
// document whose bytes are already in memory.
type Source struct {
	URI      string
	Document documents.Document
}

// Name describes the source for logs and job records.
func (s Source) Name() string {
	if s.Document.Name != "" {
		return s.Document.Name
	}
	return s.URI
}

// Ingester runs the statement ingestion pipeline.
type Ingester struct {
	pipeline *Pipeline
	log      zerolog.Logger
}

// NewIngester creates an Ingester from its collaborators.
func NewIngester(fetcher DocumentFetcher, parser AIParser, log zerolog.Logger) *Ingester {
	return &Ingester{
		pipeline: NewStatementIngestionPipeline(fetcher, parser),
		log:      log.With().Str("component", "ingester").Logger(),
	}
}

// Ingest parses one statement into transactions. Nothing is stored here; the
// caller merges the result once the whole pipeline has succeeded.
func (i *Ingester) Ingest(ctx context.Context, src Source) ([]domain.Transaction, error) {
	start := time.Now()
	state := &PipelineState{
		URI:      src.URI,
		Document: src.Document,
	}

	i.log.Info().Str("source", src.Name()).Msg("ingestion started")

	if err := i.pipeline.Execute(ctx, state); err != nil {
		i.log.Error().Err(err).Str("source", src.Name()).Dur("duration", time.Since(start)).Msg("ingestion failed")
		return nil, err
	}

	i.log.Info().
		Str("source", src.Name()).
		Str("mime_type", state.Document.MIMEType).
		Int("transactions", len(state.Transactions)).
		Dur("duration", time.Since(start)).
		Msg("ingestion finished")

	return state.Transactions, nil
}
