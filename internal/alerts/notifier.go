// Package alerts delivers batches of newly flagged suspicious transactions.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Batch is one detection event: every transaction newly flagged by a scan.
type Batch struct {
	ID           string               `json:"id"`
	DetectedAt   time.Time            `json:"detectedAt"`
	Transactions []domain.Transaction `json:"transactions"`
}

// NewBatch stamps txs with a fresh ID and the detection time.
func NewBatch(txs []domain.Transaction, now time.Time) Batch {
	return Batch{
		ID:           uuid.NewString(),
		DetectedAt:   now,
		Transactions: txs,
	}
}

// ToJSON converts the batch to JSON bytes.
func (b Batch) ToJSON() ([]byte, error) {
	return json.Marshal(b)
}

// BatchFromJSON decodes a batch published by AMQPNotifier.
func BatchFromJSON(data []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// Notifier delivers alert batches.
type Notifier interface {
	Notify(ctx context.Context, batch Batch) error
}

// LogNotifier writes each batch as a warning.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a Notifier that logs batches.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "alerts").Logger()}
}

// Notify logs the batch and each flagged transaction.
func (n *LogNotifier) Notify(ctx context.Context, batch Batch) error {
	n.log.Warn().
		Str("batch_id", batch.ID).
		Int("count", len(batch.Transactions)).
		Msg("suspicious duplicate transactions detected")

	for _, tx := range batch.Transactions {
		n.log.Warn().
			Str("batch_id", batch.ID).
			Str("transaction_id", tx.ID).
			Str("date", tx.Date).
			Str("description", tx.Description).
			Float64("amount", tx.Amount).
			Msg("flagged transaction")
	}
	return nil
}

// Multi fans a batch out to several notifiers. Every notifier is attempted;
// the errors are joined.
type Multi []Notifier

// Notify delivers batch to every notifier.
func (m Multi) Notify(ctx context.Context, batch Batch) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
