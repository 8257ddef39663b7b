package domain

// MonthlySummary is the aggregated income/expense/savings for one calendar month.
type MonthlySummary struct {
	Month        string  `json:"month"`
	TotalIncome  float64 `json:"totalIncome"`
	TotalExpense float64 `json:"totalExpense"`
	Savings      float64 `json:"savings"`
}

// CategoryTotal is the summed expense amount for one category.
type CategoryTotal struct {
	Category Category `json:"category"`
	Amount   float64  `json:"amount"`
}

// Stats is the full aggregate over a filtered set of transactions.
type Stats struct {
	MonthlySummary []MonthlySummary `json:"monthlySummary"`
	TopCategories  []CategoryTotal  `json:"topCategories"`
	TotalIncome    float64          `json:"totalIncome"`
	TotalExpense   float64          `json:"totalExpense"`
	Savings        float64          `json:"savings"`
}
