package domain

import "strings"

// Category is one of the fixed spending/income categories.
type Category string

const (
	CategoryFood          Category = "Food & Dining"
	CategoryTransport     Category = "Transportation"
	CategoryUtilities     Category = "Utilities"
	CategoryEntertainment Category = "Entertainment"
	CategoryShopping      Category = "Shopping"
	CategoryHealth        Category = "Health"
	CategorySalary        Category = "Salary"
	CategoryTransfer      Category = "Transfer"
	CategoryOther         Category = "Other"
)

// Categories lists the closed category set in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealth,
	CategorySalary,
	CategoryTransfer,
	CategoryOther,
}

// ParseCategory resolves a category name, ignoring case and surrounding
// whitespace. Unknown names fall back to CategoryOther.
func ParseCategory(name string) Category {
	trimmed := strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(trimmed, string(c)) {
			return c
		}
	}
	return CategoryOther
}

// CategoryNames returns the category set as plain strings, e.g. for prompts.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}
