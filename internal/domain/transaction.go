package domain

import (
	"strings"
)

// TransactionType carries the direction of a transaction. Amounts are always
// stored as magnitudes; the type decides whether they count as income or expense.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// ParseType maps free-form input to a TransactionType.
// Anything other than "income" (case-insensitive) is treated as an expense.
func ParseType(s string) TransactionType {
	if strings.EqualFold(strings.TrimSpace(s), string(TypeIncome)) {
		return TypeIncome
	}
	return TypeExpense
}

// DefaultManualDescription is used for manual entries submitted without a label.
const DefaultManualDescription = "Cash Entry"

// Transaction represents one financial movement in the working set.
// Date is kept exactly as received (YYYY-MM-DD); it is only parsed when compared,
// so malformed values survive ingestion and simply never match a date range.
type Transaction struct {
	ID                  string          `json:"id"`
	Date                string          `json:"date"`
	Description         string          `json:"description"`
	Amount              float64         `json:"amount"`
	Type                TransactionType `json:"type"`
	Category            Category        `json:"category"`
	IsManualEntry       bool            `json:"isManualEntry"`
	IsFlaggedSuspicious bool            `json:"isFlaggedSuspicious"`
}

// MonthKey returns the YYYY-MM bucket of the transaction date.
func (t Transaction) MonthKey() string {
	if len(t.Date) < 7 {
		return t.Date
	}
	return t.Date[:7]
}

// NormalizedDescription is the grouping key used for duplicate detection.
func (t Transaction) NormalizedDescription() string {
	return strings.ToLower(strings.TrimSpace(t.Description))
}

// IsIncome reports whether the transaction adds to income.
func (t Transaction) IsIncome() bool {
	return t.Type == TypeIncome
}
