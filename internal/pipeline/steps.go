package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-insights/internal/documents"
	"github.com/dvloznov/finance-insights/internal/domain"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	URI            string
	Document       documents.Document
	RawModelOutput map[string]interface{}
	Transactions   []domain.Transaction
}

// Step 1: FetchDocumentStep loads the document bytes unless they were supplied directly.
type FetchDocumentStep struct {
	Fetcher DocumentFetcher
}

func (s *FetchDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Document.Data) > 0 {
		return nil
	}
	if state.URI == "" {
		return fmt.Errorf("FetchDocumentStep: no document data and no URI")
	}
	if s.Fetcher == nil {
		return fmt.Errorf("FetchDocumentStep: no fetcher configured for %s", state.URI)
	}

	doc, err := s.Fetcher.Fetch(ctx, state.URI)
	if err != nil {
		return err
	}
	state.Document = doc
	return nil
}

// Step 2: ParseStatementStep calls the statement parser with the document.
type ParseStatementStep struct {
	Parser AIParser
}

func (s *ParseStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	rawModelOutput, err := s.Parser.ParseStatement(ctx, state.Document.Data, state.Document.MIMEType)
	if err != nil {
		return err
	}
	state.RawModelOutput = rawModelOutput
	return nil
}

// Step 3: TransformTransactionsStep transforms raw model output into normalized transactions.
type TransformTransactionsStep struct{}

func (s *TransformTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	txs, err := transformModelOutputToTransactions(state.RawModelOutput)
	if err != nil {
		return err
	}
	state.Transactions = txs
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially, stopping at the first
// failure or when ctx is cancelled.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d cancelled: %w", i+1, err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewStatementIngestionPipeline creates the standard 3-step pipeline for ingesting statements.
func NewStatementIngestionPipeline(fetcher DocumentFetcher, parser AIParser) *Pipeline {
	return NewPipeline(
		&FetchDocumentStep{Fetcher: fetcher},
		&ParseStatementStep{Parser: parser},
		&TransformTransactionsStep{},
	)
}
