package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// transformModelOutputToTransactions converts raw model output into normalized transactions.
// Amounts become magnitudes, unknown categories fall back to Other and any type
// other than INCOME counts as EXPENSE. Dates are kept verbatim.
func transformModelOutputToTransactions(
	rawOutput map[string]interface{},
) ([]domain.Transaction, error) {
	// Expect top-level: { "transactions": [...] }. A missing or null list is
	// an empty statement.
	txAny := rawOutput["transactions"]
	if txAny == nil {
		return []domain.Transaction{}, nil
	}

	txSlice, ok := txAny.([]interface{})
	if !ok {
		return nil, fmt.Errorf("transformModelOutputToTransactions: 'transactions' is %T, want []interface{}", txAny)
	}

	result := make([]domain.Transaction, 0, len(txSlice))

	for i, item := range txSlice {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("transformModelOutputToTransactions: element %d is %T, want map[string]interface{}", i, item)
		}

		// Required fields
		date, err := getStringField(obj, "date", true)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		amount, err := getFloat64Field(obj, "amount", true)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		// Optional fields
		desc, err := getStringField(obj, "description", false)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		category, err := getOptionalStringField(obj, "category")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txType, err := getOptionalStringField(obj, "type")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		t := domain.Transaction{
			Date:        strings.TrimSpace(date),
			Description: desc,
			Amount:      math.Abs(amount),
			Type:        domain.TypeExpense,
			Category:    domain.CategoryOther,
		}
		if category != nil {
			t.Category = domain.ParseCategory(*category)
		}
		if txType != nil {
			t.Type = domain.ParseType(*txType)
		}

		result = append(result, t)
	}

	return result, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int: // unlikely from encoding/json, but harmless to support
		return float64(val), nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
