package domain

import (
	"fmt"
	"strings"
)

// Frequency is how often a savings target recurs.
type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
)

// ParseFrequency resolves a frequency name case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToUpper(strings.TrimSpace(s))); f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return f, nil
	default:
		return "", fmt.Errorf("unknown savings frequency %q", s)
	}
}

// SavingsTarget is a user-declared savings goal.
type SavingsTarget struct {
	Amount    float64   `json:"amount"`
	Frequency Frequency `json:"frequency"`
}

// MonthlyEquivalent normalizes the target to a per-month amount:
// weekly x 4, quarterly / 3, monthly unchanged.
func (s SavingsTarget) MonthlyEquivalent() float64 {
	switch s.Frequency {
	case FrequencyWeekly:
		return s.Amount * 4
	case FrequencyQuarterly:
		return s.Amount / 3
	default:
		return s.Amount
	}
}

// AdviceContext is the request sent to the advice collaborator.
type AdviceContext struct {
	CurrentSavings       float64         `json:"currentSavings"`
	TargetSavingsMonthly float64         `json:"targetSavingsMonthly"`
	TotalIncome          float64         `json:"totalIncome"`
	TotalExpense         float64         `json:"totalExpense"`
	TopExpenses          []CategoryTotal `json:"topExpenses"`
}

// SuggestedCut is one proposed spending reduction.
type SuggestedCut struct {
	Category           string  `json:"category"`
	SuggestedReduction float64 `json:"suggestedReduction"`
	Reason             string  `json:"reason"`
}

// Advice is the response of the advice collaborator.
type Advice struct {
	Advice        string         `json:"advice"`
	SuggestedCuts []SuggestedCut `json:"suggestedCuts"`
}
