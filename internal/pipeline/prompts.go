package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// buildCategoriesPrompt lists the allowed categories for the model, quoted and
// in their canonical order.
func buildCategoriesPrompt(categories []domain.Category) string {
	quoted := make([]string, 0, len(categories))
	for _, c := range categories {
		quoted = append(quoted, fmt.Sprintf("'%s'", c))
	}
	return "Choose from: " + strings.Join(quoted, ", ")
}

// buildStatementPrompt constructs the extraction instructions sent alongside
// the statement document.
func buildStatementPrompt() string {
	var b strings.Builder

	b.WriteString("Analyze this bank statement image or document.\n")
	b.WriteString("EXTRACT all transactions.\n\n")

	b.WriteString("CRITICAL INSTRUCTION FOR CLASSIFICATION (INCOME vs EXPENSE):\n")
	b.WriteString("1. Look for mathematical signs:\n")
	b.WriteString("   - A '+' sign usually indicates INCOME.\n")
	b.WriteString("   - A '-' sign usually indicates EXPENSE.\n")
	b.WriteString("2. Look for columns:\n")
	b.WriteString("   - Amounts in 'Credit' or 'Deposit' columns are INCOME.\n")
	b.WriteString("   - Amounts in 'Debit' or 'Withdrawal' columns are EXPENSE.\n")
	b.WriteString("3. Context clues:\n")
	b.WriteString("   - 'Salary', 'Dividend', 'Refund', 'Transfer In' are INCOME.\n")
	b.WriteString("   - 'Purchase', 'Payment', 'Fee', 'Transfer Out' are EXPENSE.\n\n")

	b.WriteString("RETURN JSON with an array of transactions.\n")
	b.WriteString("Each transaction object must have:\n")
	b.WriteString("- date (YYYY-MM-DD format)\n")
	b.WriteString("- description (string)\n")
	b.WriteString("- amount (number. IMPORTANT: Return the ABSOLUTE POSITIVE VALUE. Do not include the negative sign in the value.)\n")
	b.WriteString("- type (string. Strictly \"INCOME\" or \"EXPENSE\" based on the signs/columns found.)\n")
	fmt.Fprintf(&b, "- category (%s)\n", buildCategoriesPrompt(domain.Categories))

	return b.String()
}
