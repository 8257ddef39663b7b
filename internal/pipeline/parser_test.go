package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type stubGenerator struct {
	reply string
	err   error
	parts []*genai.Part
}

func (s *stubGenerator) GenerateJSON(ctx context.Context, parts []*genai.Part, schema *genai.Schema) (string, error) {
	s.parts = parts
	return s.reply, s.err
}

func TestGeminiParser_ParseStatement(t *testing.T) {
	gen := &stubGenerator{reply: `{"transactions":[{"date":"2024-01-05","description":"Rent","amount":50,"type":"EXPENSE","category":"Utilities"}]}`}
	p := NewGeminiParser(gen)

	out, err := p.ParseStatement(context.Background(), []byte("%PDF"), "application/pdf")
	if err != nil {
		t.Fatalf("ParseStatement failed: %v", err)
	}

	txs, ok := out["transactions"].([]interface{})
	if !ok {
		t.Fatalf("transactions is %T, want []interface{}", out["transactions"])
	}
	if len(txs) != 1 {
		t.Errorf("got %d transactions, want 1", len(txs))
	}

	if len(gen.parts) != 2 {
		t.Fatalf("got %d prompt parts, want 2", len(gen.parts))
	}
	blob := gen.parts[0].InlineData
	if blob == nil {
		t.Fatal("expected inline document data in first part")
	}
	if blob.MIMEType != "application/pdf" {
		t.Errorf("MIMEType = %q, want application/pdf", blob.MIMEType)
	}
	if !bytes.Equal(blob.Data, []byte("%PDF")) {
		t.Errorf("Data = %q, want %%PDF", blob.Data)
	}
	if !strings.Contains(gen.parts[1].Text, "EXTRACT all transactions") {
		t.Error("expected statement prompt in second part")
	}
}

func TestGeminiParser_BareArrayIsWrapped(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"single element", `[{"date":"2024-01-05","amount":1}]`, 1},
		{"fenced", "```json\n[{\"date\":\"2024-01-05\",\"amount\":1},{\"date\":\"2024-01-06\",\"amount\":2}]\n```", 2},
		{"empty", `[]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewGeminiParser(&stubGenerator{reply: tt.reply}).ParseStatement(context.Background(), nil, "image/png")
			if err != nil {
				t.Fatalf("ParseStatement failed: %v", err)
			}

			txs, err := transformModelOutputToTransactions(out)
			if err != nil {
				t.Fatalf("transform failed: %v", err)
			}
			if len(txs) != tt.want {
				t.Errorf("got %d transactions, want %d", len(txs), tt.want)
			}
		})
	}
}

func TestGeminiParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"generator error", &stubGenerator{err: errors.New("deadline exceeded")}},
		{"invalid json", &stubGenerator{reply: `{"transactions":`}},
		{"scalar json", &stubGenerator{reply: `42`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGeminiParser(tt.gen).ParseStatement(context.Background(), nil, "application/pdf"); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
