// Package anomaly flags transactions that look like accidental duplicate
// large charges.
package anomaly

import (
	"github.com/dvloznov/finance-insights/internal/domain"
)

const (
	// DefaultThreshold is the amount a transaction must exceed to be a candidate.
	DefaultThreshold = 2000.0

	// DefaultMinGroupSize is the smallest description group treated as duplicated.
	DefaultMinGroupSize = 2
)

// Detector groups transactions by normalized description and reports large
// members of duplicated groups.
type Detector struct {
	Threshold    float64
	MinGroupSize int
}

// NewDetector returns a detector with the default threshold and group size.
func NewDetector() Detector {
	return Detector{
		Threshold:    DefaultThreshold,
		MinGroupSize: DefaultMinGroupSize,
	}
}

// Candidates returns every transaction that belongs to a duplicated
// description group and exceeds the threshold, flagged or not. Results are
// ordered by the first appearance of their group, then by store order.
func (d Detector) Candidates(txs []domain.Transaction) []domain.Transaction {
	minSize := d.MinGroupSize
	if minSize < 2 {
		minSize = DefaultMinGroupSize
	}

	groups := make(map[string][]domain.Transaction)
	var order []string
	for _, tx := range txs {
		key := tx.NormalizedDescription()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], tx)
	}

	var out []domain.Transaction
	for _, key := range order {
		group := groups[key]
		if len(group) < minSize {
			continue
		}
		for _, tx := range group {
			if tx.Amount > d.Threshold {
				out = append(out, tx)
			}
		}
	}

	return out
}

// Scan returns the candidates not yet flagged as suspicious. Once the caller
// marks them, a second scan over the same transactions returns nothing.
func (d Detector) Scan(txs []domain.Transaction) []domain.Transaction {
	var fresh []domain.Transaction
	for _, tx := range d.Candidates(txs) {
		if !tx.IsFlaggedSuspicious {
			fresh = append(fresh, tx)
		}
	}
	return fresh
}

// IDs extracts the identifiers of a batch.
func IDs(txs []domain.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}
