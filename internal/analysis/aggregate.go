package analysis

import (
	"cmp"
	"slices"

	"github.com/dvloznov/finance-insights/internal/domain"
)

type monthTotals struct {
	income  float64
	expense float64
}

// Aggregate summarizes a filtered set of transactions.
//
// Income counts toward the month and the running income total; every other
// transaction counts as expense for the month, the running expense total and
// its category. Sums are plain float64 accumulation with no rounding.
func Aggregate(txs []domain.Transaction) domain.Stats {
	months := make(map[string]*monthTotals)
	categories := make(map[domain.Category]float64)
	var categoryOrder []domain.Category

	var stats domain.Stats
	for _, tx := range txs {
		key := tx.MonthKey()
		m, ok := months[key]
		if !ok {
			m = &monthTotals{}
			months[key] = m
		}

		if tx.IsIncome() {
			m.income += tx.Amount
			stats.TotalIncome += tx.Amount
			continue
		}

		m.expense += tx.Amount
		stats.TotalExpense += tx.Amount
		if _, seen := categories[tx.Category]; !seen {
			categoryOrder = append(categoryOrder, tx.Category)
		}
		categories[tx.Category] += tx.Amount
	}

	stats.MonthlySummary = make([]domain.MonthlySummary, 0, len(months))
	for month, m := range months {
		stats.MonthlySummary = append(stats.MonthlySummary, domain.MonthlySummary{
			Month:        month,
			TotalIncome:  m.income,
			TotalExpense: m.expense,
			Savings:      m.income - m.expense,
		})
	}
	// YYYY-MM sorts chronologically as a plain string.
	slices.SortFunc(stats.MonthlySummary, func(a, b domain.MonthlySummary) int {
		return cmp.Compare(a.Month, b.Month)
	})

	stats.TopCategories = make([]domain.CategoryTotal, 0, len(categoryOrder))
	for _, c := range categoryOrder {
		stats.TopCategories = append(stats.TopCategories, domain.CategoryTotal{Category: c, Amount: categories[c]})
	}
	slices.SortStableFunc(stats.TopCategories, func(a, b domain.CategoryTotal) int {
		return cmp.Compare(b.Amount, a.Amount)
	})

	stats.Savings = stats.TotalIncome - stats.TotalExpense
	return stats
}

// TopN returns at most n category totals from an already ranked slice.
func TopN(totals []domain.CategoryTotal, n int) []domain.CategoryTotal {
	if n < 0 || n >= len(totals) {
		return slices.Clone(totals)
	}
	return slices.Clone(totals[:n])
}

// DistinctCategories lists the categories present in txs in first-seen order.
func DistinctCategories(txs []domain.Transaction) []domain.Category {
	seen := make(map[domain.Category]struct{})
	var out []domain.Category
	for _, tx := range txs {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		out = append(out, tx.Category)
	}
	return out
}
