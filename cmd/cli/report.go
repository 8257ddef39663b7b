package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/workspace"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// Report is everything printed at the end of an analyze run.
type Report struct {
	View   workspace.View
	Alerts []domain.Transaction
	Target *domain.SavingsTarget
	Advice *domain.Advice
}

// printer remembers the first write error so sections can print freely.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// table writes tab-separated rows through a tabwriter.
func (p *printer) table(header []string, rows [][]string) {
	if p.err != nil {
		return
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	styled := make([]string, len(header))
	rules := make([]string, len(header))
	for i, h := range header {
		styled[i] = headerStyle.Render(h)
		rules[i] = strings.Repeat("─", len(h))
	}

	lines := append([][]string{styled, rules}, rows...)
	for _, cols := range lines {
		if _, err := fmt.Fprintln(tw, strings.Join(cols, "\t")); err != nil {
			p.err = err
			return
		}
	}
	p.err = tw.Flush()
}

// Render writes the report sections to w.
func (r Report) Render(w io.Writer) error {
	p := &printer{w: w}
	stats := r.View.Stats

	p.printf("%s\n", titleStyle.Render("Summary"))
	p.printf("  Transactions: %d\n", len(r.View.Transactions))
	p.printf("  Income:       %s\n", money(stats.TotalIncome))
	p.printf("  Expenses:     %s\n", money(stats.TotalExpense))
	p.printf("  Savings:      %s\n\n", money(stats.Savings))

	if len(stats.MonthlySummary) > 0 {
		p.printf("%s\n", titleStyle.Render("By month"))
		rows := make([][]string, 0, len(stats.MonthlySummary))
		for _, m := range stats.MonthlySummary {
			rows = append(rows, []string{m.Month, money(m.TotalIncome), money(m.TotalExpense), money(m.Savings)})
		}
		p.table([]string{"Month", "Income", "Expenses", "Savings"}, rows)
		p.printf("\n")
	}

	if len(stats.TopCategories) > 0 {
		p.printf("%s\n", titleStyle.Render("Spending by category"))
		rows := make([][]string, 0, len(stats.TopCategories))
		for i, c := range stats.TopCategories {
			rows = append(rows, []string{
				fmt.Sprintf("%d", i+1),
				string(c.Category),
				money(c.Amount),
				share(c.Amount, stats.TotalExpense),
			})
		}
		p.table([]string{"#", "Category", "Amount", "Share"}, rows)
		p.printf("\n")
	}

	if len(r.Alerts) > 0 {
		p.printf("%s\n", warnStyle.Render(fmt.Sprintf("Suspicious transactions (%d)", len(r.Alerts))))
		rows := make([][]string, 0, len(r.Alerts))
		for _, tx := range r.Alerts {
			rows = append(rows, []string{tx.Date, tx.Description, money(tx.Amount), string(tx.Type)})
		}
		p.table([]string{"Date", "Description", "Amount", "Type"}, rows)
		p.printf("\n")
	}

	if r.Target != nil {
		monthly := r.Target.MonthlyEquivalent()
		p.printf("%s\n", titleStyle.Render("Savings target"))
		p.printf("  Target:  %s %s (%s per month)\n", money(r.Target.Amount), strings.ToLower(string(r.Target.Frequency)), money(monthly))
		p.printf("  Current: %s saved in the selected period\n\n", money(stats.Savings))
	}

	if r.Advice != nil {
		p.printf("%s\n", titleStyle.Render("Advice"))
		p.printf("  %s\n\n", r.Advice.Advice)
		if len(r.Advice.SuggestedCuts) > 0 {
			rows := make([][]string, 0, len(r.Advice.SuggestedCuts))
			for _, c := range r.Advice.SuggestedCuts {
				rows = append(rows, []string{c.Category, money(c.SuggestedReduction), c.Reason})
			}
			p.table([]string{"Category", "Cut", "Reason"}, rows)
		}
	}

	return p.err
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func share(part, total float64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", part/total*100)
}
