// Package store holds the in-memory working set of transactions.
package store

import (
	"math"
	"strings"
	"sync"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/google/uuid"
)

// Store is the authoritative in-memory collection of transactions.
// Insertion order is preserved. It is safe for concurrent use and hands out
// copies so callers can never mutate stored records directly.
type Store struct {
	mu    sync.RWMutex
	txs   []domain.Transaction
	index map[string]int
	newID func() string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		index: make(map[string]int),
		newID: uuid.NewString,
	}
}

// Merge appends all given transactions, assigning an ID to any that lack one
// or whose ID is already taken. No content deduplication happens here:
// near-duplicates are kept so the anomaly detector can see them. Amounts are
// stored as magnitudes. It returns the stored copies in the order they were
// appended.
func (s *Store) Merge(txs []domain.Transaction) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if _, taken := s.index[tx.ID]; tx.ID == "" || taken {
			tx.ID = s.newID()
		}
		tx.Amount = math.Abs(tx.Amount)
		tx.Type = domain.ParseType(string(tx.Type))
		tx.Category = domain.ParseCategory(string(tx.Category))
		s.index[tx.ID] = len(s.txs)
		s.txs = append(s.txs, tx)
		added = append(added, tx)
	}

	return added
}

// AddManual records one user-entered cash transaction.
func (s *Store) AddManual(date string, amount float64, description string, typ domain.TransactionType) domain.Transaction {
	if strings.TrimSpace(description) == "" {
		description = domain.DefaultManualDescription
	}

	tx := domain.Transaction{
		Date:          date,
		Amount:        math.Abs(amount),
		Description:   description,
		Type:          typ,
		Category:      domain.CategoryOther,
		IsManualEntry: true,
	}

	return s.Merge([]domain.Transaction{tx})[0]
}

// Reset removes every transaction, and with them every suspicious flag.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = nil
	s.index = make(map[string]int)
}

// MarkSuspicious flags the given transactions. Unknown IDs are ignored and
// flagging an already flagged transaction is a no-op. It returns how many
// transactions changed state.
func (s *Store) MarkSuspicious(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, id := range ids {
		i, ok := s.index[id]
		if !ok || s.txs[i].IsFlaggedSuspicious {
			continue
		}
		s.txs[i].IsFlaggedSuspicious = true
		changed++
	}

	return changed
}

// All returns a copy of every stored transaction in insertion order.
func (s *Store) All() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// Get retrieves a transaction by ID.
func (s *Store) Get(id string) (domain.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Transaction{}, false
	}
	return s.txs[i], true
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.txs)
}
