// Package advice prepares savings-advice requests and obtains advice from a
// language model.
package advice

import (
	"errors"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/domain"
)

// DefaultTopN is how many expense categories are sent to the adviser.
const DefaultTopN = 5

// ErrNoSavingsTarget is returned when advice is requested without a positive target.
var ErrNoSavingsTarget = errors.New("no savings target set")

// BuildContext assembles the adviser request from the current stats and
// target. A non-positive topN falls back to DefaultTopN.
func BuildContext(stats domain.Stats, target domain.SavingsTarget, topN int) (domain.AdviceContext, error) {
	if target.Amount <= 0 {
		return domain.AdviceContext{}, ErrNoSavingsTarget
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	return domain.AdviceContext{
		CurrentSavings:       stats.Savings,
		TargetSavingsMonthly: target.MonthlyEquivalent(),
		TotalIncome:          stats.TotalIncome,
		TotalExpense:         stats.TotalExpense,
		TopExpenses:          analysis.TopN(stats.TopCategories, topN),
	}, nil
}
