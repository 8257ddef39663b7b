package pipeline_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dvloznov/finance-insights/internal/documents"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/rs/zerolog"
)

// MockFetcher is a mock implementation of DocumentFetcher for testing.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, uri string) (documents.Document, error)
	calls     int
}

func (m *MockFetcher) Fetch(ctx context.Context, uri string) (documents.Document, error) {
	m.calls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, uri)
	}
	return documents.NewDocument("mock-file.pdf", []byte("mock pdf data")), nil
}

// MockAIParser is a mock implementation of AIParser for testing.
type MockAIParser struct {
	ParseStatementFunc func(ctx context.Context, data []byte, mimeType string) (map[string]interface{}, error)
	gotMIMEType        string
}

func (m *MockAIParser) ParseStatement(ctx context.Context, data []byte, mimeType string) (map[string]interface{}, error) {
	m.gotMIMEType = mimeType
	if m.ParseStatementFunc != nil {
		return m.ParseStatementFunc(ctx, data, mimeType)
	}
	return map[string]interface{}{
		"transactions": []interface{}{},
	}, nil
}

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func rentOutput() map[string]interface{} {
	return map[string]interface{}{
		"transactions": []interface{}{
			map[string]interface{}{
				"date":        "2024-01-05",
				"description": "Rent",
				"amount":      -50.0,
				"type":        "EXPENSE",
				"category":    "Utilities",
			},
		},
	}
}

func TestIngester_FromURI(t *testing.T) {
	fetcher := &MockFetcher{}
	parser := &MockAIParser{
		ParseStatementFunc: func(ctx context.Context, data []byte, mimeType string) (map[string]interface{}, error) {
			return rentOutput(), nil
		},
	}

	ing := pipeline.NewIngester(fetcher, parser, discardLogger())
	txs, err := ing.Ingest(context.Background(), pipeline.Source{URI: "gs://bucket/jan.pdf"})

	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
	if parser.gotMIMEType != "application/pdf" {
		t.Errorf("parser got MIME type %q, want application/pdf", parser.gotMIMEType)
	}
	if txs[0].Amount != 50 {
		t.Errorf("Amount = %v, want 50", txs[0].Amount)
	}
	if txs[0].Type != domain.TypeExpense || txs[0].Category != domain.CategoryUtilities {
		t.Errorf("type/category = %s/%s, want EXPENSE/Utilities", txs[0].Type, txs[0].Category)
	}
}

func TestIngester_InlineDocumentSkipsFetch(t *testing.T) {
	fetcher := &MockFetcher{}
	parser := &MockAIParser{}

	ing := pipeline.NewIngester(fetcher, parser, discardLogger())
	doc := documents.NewDocument("scan.png", []byte("png bytes"))
	txs, err := ing.Ingest(context.Background(), pipeline.Source{Document: doc})

	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("got %d transactions, want 0", len(txs))
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times for an inline document", fetcher.calls)
	}
	if parser.gotMIMEType != "image/png" {
		t.Errorf("parser got MIME type %q, want image/png", parser.gotMIMEType)
	}
}

func TestIngester_Failures(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *MockFetcher
		parser  *MockAIParser
		src     pipeline.Source
	}{
		{
			name: "fetch error",
			fetcher: &MockFetcher{FetchFunc: func(ctx context.Context, uri string) (documents.Document, error) {
				return documents.Document{}, errors.New("no such object")
			}},
			parser: &MockAIParser{},
			src:    pipeline.Source{URI: "gs://bucket/missing.pdf"},
		},
		{
			name:    "parser error",
			fetcher: &MockFetcher{},
			parser: &MockAIParser{ParseStatementFunc: func(ctx context.Context, data []byte, mimeType string) (map[string]interface{}, error) {
				return nil, errors.New("model unavailable")
			}},
			src: pipeline.Source{URI: "gs://bucket/jan.pdf"},
		},
		{
			name:    "unparseable output",
			fetcher: &MockFetcher{},
			parser: &MockAIParser{ParseStatementFunc: func(ctx context.Context, data []byte, mimeType string) (map[string]interface{}, error) {
				return map[string]interface{}{"transactions": "none"}, nil
			}},
			src: pipeline.Source{URI: "gs://bucket/jan.pdf"},
		},
		{
			name:    "no source",
			fetcher: &MockFetcher{},
			parser:  &MockAIParser{},
			src:     pipeline.Source{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := pipeline.NewIngester(tt.fetcher, tt.parser, discardLogger())
			txs, err := ing.Ingest(context.Background(), tt.src)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if txs != nil {
				t.Errorf("got %d transactions on failure, want nil", len(txs))
			}
		})
	}
}

func TestPipeline_StopsOnCancelledContext(t *testing.T) {
	parser := &MockAIParser{}
	p := pipeline.NewStatementIngestionPipeline(&MockFetcher{}, parser)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Execute(ctx, &pipeline.PipelineState{URI: "gs://bucket/jan.pdf"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute error = %v, want context.Canceled", err)
	}
	if parser.gotMIMEType != "" {
		t.Error("parser ran after cancellation")
	}
}

func TestSource_Name(t *testing.T) {
	if got := (pipeline.Source{URI: "gs://b/o.pdf"}).Name(); got != "gs://b/o.pdf" {
		t.Errorf("Name() = %q, want gs://b/o.pdf", got)
	}
	if got := (pipeline.Source{Document: documents.Document{Name: "upload.pdf"}}).Name(); got != "upload.pdf" {
		t.Errorf("Name() = %q, want upload.pdf", got)
	}
}
