// Package analysis filters the transaction working set and aggregates it into
// monthly and per-category summaries.
package analysis

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-insights/internal/domain"
)

// RangeKind selects which dates pass the filter.
type RangeKind string

const (
	RangeAll       RangeKind = "ALL"
	RangeThisMonth RangeKind = "THIS_MONTH"
	RangeLastMonth RangeKind = "LAST_MONTH"
	RangeCustom    RangeKind = "CUSTOM"
)

// DateSelector is a date-range choice. Start and End are only read for
// RangeCustom, and are YYYY-MM-DD strings exactly as the user typed them.
type DateSelector struct {
	Kind  RangeKind `json:"range"`
	Start string    `json:"start,omitempty"`
	End   string    `json:"end,omitempty"`
}

// AllDates is the selector that applies no date restriction.
var AllDates = DateSelector{Kind: RangeAll}

// ParseRangeKind resolves a range name; blank means RangeAll.
func ParseRangeKind(s string) (RangeKind, error) {
	k := RangeKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case "":
		return RangeAll, nil
	case RangeAll, RangeThisMonth, RangeLastMonth, RangeCustom:
		return k, nil
	default:
		return "", fmt.Errorf("unknown date range %q", s)
	}
}

// Filter returns the transactions matching the date selector and the category
// selection, preserving input order. An empty category selection means no
// category restriction. now anchors THIS_MONTH and LAST_MONTH.
func Filter(txs []domain.Transaction, sel DateSelector, categories []domain.Category, now time.Time) []domain.Transaction {
	match := dateMatcher(sel, now)

	allowed := make(map[domain.Category]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}

	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !match(tx.Date) {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[tx.Category]; !ok {
				continue
			}
		}
		out = append(out, tx)
	}

	return out
}

// dateMatcher builds the date predicate for a selector. Unparseable dates,
// on either side of a comparison, never match.
func dateMatcher(sel DateSelector, now time.Time) func(string) bool {
	switch sel.Kind {
	case RangeThisMonth:
		return inMonth(civil.DateOf(now))
	case RangeLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return inMonth(civil.DateOf(first.AddDate(0, -1, 0)))
	case RangeCustom:
		if strings.TrimSpace(sel.Start) == "" || strings.TrimSpace(sel.End) == "" {
			return matchAll
		}
		start, startErr := civil.ParseDate(strings.TrimSpace(sel.Start))
		end, endErr := civil.ParseDate(strings.TrimSpace(sel.End))
		if startErr != nil || endErr != nil {
			return matchNone
		}
		return func(s string) bool {
			d, err := civil.ParseDate(s)
			if err != nil {
				return false
			}
			return !d.Before(start) && !d.After(end)
		}
	default:
		return matchAll
	}
}

func inMonth(ref civil.Date) func(string) bool {
	return func(s string) bool {
		d, err := civil.ParseDate(s)
		if err != nil {
			return false
		}
		return d.Year == ref.Year && d.Month == ref.Month
	}
}

func matchAll(string) bool  { return true }
func matchNone(string) bool { return false }
