package pipeline

import (
	"context"

	"github.com/dvloznov/finance-insights/internal/documents"
)

// DocumentFetcher loads a statement from a gs:// URI or a local path.
type DocumentFetcher interface {
	Fetch(ctx context.Context, uri string) (documents.Document, error)
}

// AIParser provides an interface for AI-powered document parsing operations.
// This interface enables mocking and testing of AI parsing functionality.
type AIParser interface {
	// ParseStatement sends document bytes to an AI model and returns the
	// decoded JSON object, with the records under "transactions".
	ParseStatement(ctx context.Context, data []byte, mimeType string) (map[string]interface{}, error)
}
