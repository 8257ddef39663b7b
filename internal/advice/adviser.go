package advice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/gemini"
	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model answered without any advice text.
var ErrEmptyResponse = errors.New("adviser returned no advice")

// Adviser turns an advice context into savings advice.
type Adviser interface {
	Advise(ctx context.Context, req domain.AdviceContext) (domain.Advice, error)
}

// GeminiAdviser asks a Gemini model for advice.
type GeminiAdviser struct {
	gen gemini.Generator
}

// NewGeminiAdviser creates an Adviser backed by gen.
func NewGeminiAdviser(gen gemini.Generator) *GeminiAdviser {
	return &GeminiAdviser{gen: gen}
}

// Advise sends the advice prompt and decodes the structured reply.
func (a *GeminiAdviser) Advise(ctx context.Context, req domain.AdviceContext) (domain.Advice, error) {
	raw, err := a.gen.GenerateJSON(ctx, []*genai.Part{{Text: buildPrompt(req)}}, responseSchema())
	if err != nil {
		return domain.Advice{}, fmt.Errorf("Advise: %w", err)
	}

	var out domain.Advice
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return domain.Advice{}, fmt.Errorf("Advise: unmarshal JSON: %w", err)
	}
	if strings.TrimSpace(out.Advice) == "" {
		return domain.Advice{}, ErrEmptyResponse
	}
	if out.SuggestedCuts == nil {
		out.SuggestedCuts = []domain.SuggestedCut{}
	}

	return out, nil
}

func buildPrompt(req domain.AdviceContext) string {
	var b strings.Builder
	b.WriteString("You are a financial advisor with a minimalist, calm, and encouraging tone.\n")
	b.WriteString("User Data:\n")
	fmt.Fprintf(&b, "- Monthly Income: %.2f\n", req.TotalIncome)
	fmt.Fprintf(&b, "- Monthly Expense: %.2f\n", req.TotalExpense)
	fmt.Fprintf(&b, "- Current Savings (Net): %.2f\n", req.CurrentSavings)
	fmt.Fprintf(&b, "- TARGET SAVINGS GOAL (Monthly Equivalent): %.2f\n\n", req.TargetSavingsMonthly)
	b.WriteString("Top Expenses:\n")
	for _, e := range req.TopExpenses {
		fmt.Fprintf(&b, "- %s: %.2f\n", e.Category, e.Amount)
	}
	b.WriteString("\nProvide actionable advice on how to reach the goal. Suggest specific cuts if necessary.\n")
	b.WriteString("Return JSON.\n")
	return b.String()
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"advice": {Type: genai.TypeString},
			"suggestedCuts": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"category":           {Type: genai.TypeString},
						"suggestedReduction": {Type: genai.TypeNumber},
						"reason":             {Type: genai.TypeString},
					},
				},
			},
		},
		Required: []string{"advice"},
	}
}
