package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/gemini"
	"google.golang.org/genai"
)

// GeminiParser is the concrete implementation of AIParser that uses Gemini.
type GeminiParser struct {
	gen gemini.Generator
}

// NewGeminiParser creates a new instance of GeminiParser.
func NewGeminiParser(gen gemini.Generator) *GeminiParser {
	return &GeminiParser{gen: gen}
}

// ParseStatement sends the document to Gemini and returns the parsed JSON output.
func (p *GeminiParser) ParseStatement(ctx context.Context, data []byte, mimeType string) (map[string]interface{}, error) {
	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     data,
			},
		},
		{Text: buildStatementPrompt()},
	}

	rawText, err := p.gen.GenerateJSON(ctx, parts, statementSchema())
	if err != nil {
		return nil, fmt.Errorf("ParseStatement: %w", err)
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(gemini.CleanJSON(rawText)), &parsed); err != nil {
		return nil, fmt.Errorf("ParseStatement: unmarshal JSON: %w", err)
	}

	switch v := parsed.(type) {
	case map[string]interface{}:
		return v, nil
	case []interface{}:
		// Some replies ignore the wrapper object; accept a bare array.
		return map[string]interface{}{"transactions": v}, nil
	default:
		return nil, fmt.Errorf("ParseStatement: top-level JSON is %T, want object", parsed)
	}
}

func statementSchema() *genai.Schema {
	categories := domain.CategoryNames()

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"transactions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date":        {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"amount":      {Type: genai.TypeNumber},
						"category":    {Type: genai.TypeString, Enum: categories},
						"type":        {Type: genai.TypeString, Enum: []string{string(domain.TypeIncome), string(domain.TypeExpense)}},
					},
					Required: []string{"date", "description", "amount", "category", "type"},
				},
			},
		},
		Required: []string{"transactions"},
	}
}
