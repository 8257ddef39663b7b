// Package gemini wraps the Gemini content generation API for JSON responses.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Generator produces a JSON document from prompt parts constrained by a schema.
type Generator interface {
	GenerateJSON(ctx context.Context, parts []*genai.Part, schema *genai.Schema) (string, error)
}

// Client is the Gemini-backed Generator.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini API client. An empty apiKey defers to the
// GEMINI_API_KEY / GOOGLE_API_KEY environment variables read by genai.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = DefaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewClient: create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// GenerateJSON sends parts as a single user turn and returns the cleaned JSON text.
func (c *Client) GenerateJSON(ctx context.Context, parts []*genai.Part, schema *genai.Schema) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: parts,
		},
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GenerateJSON: generate content: %w", err)
	}

	rawText := resp.Text()
	if strings.TrimSpace(rawText) == "" {
		return "", fmt.Errorf("GenerateJSON: %w", ErrEmptyResponse)
	}

	return CleanJSON(rawText), nil
}

// CleanJSON strips Markdown code fences the model sometimes adds despite the
// JSON response type.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// ```json ... ``` or ``` ... ```
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost object or array if there is still chatter around it.
	if start := strings.IndexAny(s, "{["); start > 0 {
		closer := "}"
		if s[start] == '[' {
			closer = "]"
		}
		if end := strings.LastIndex(s, closer); end > start {
			s = s[start : end+1]
		}
	}

	return s
}
