// Package workspace owns the working set of transactions together with the
// user's filters, savings target, latest advice and pending alerts. Every
// mutation re-runs the anomaly scan and recomputes the filtered view before
// returning.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dvloznov/finance-insights/internal/advice"
	"github.com/dvloznov/finance-insights/internal/alerts"
	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/anomaly"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/progress"
	"github.com/dvloznov/finance-insights/internal/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrBusy is returned when an ingestion or advice request is already pending.
	ErrBusy = errors.New("operation already in progress")

	// ErrIngestionFailed wraps any parsing or fetch failure. The store is unchanged.
	ErrIngestionFailed = errors.New("statement ingestion failed")

	// ErrAdviceFailed wraps adviser failures. The previous advice is kept.
	ErrAdviceFailed = errors.New("advice request failed")

	// ErrInvalidTarget is returned for a negative amount or unknown frequency.
	ErrInvalidTarget = errors.New("invalid savings target")
)

// Ingester turns a statement source into transactions.
type Ingester interface {
	Ingest(ctx context.Context, src pipeline.Source) ([]domain.Transaction, error)
}

// Options tunes a Workspace. Zero values select the defaults.
type Options struct {
	Detector         anomaly.Detector
	AdviceTopN       int
	ProgressInterval time.Duration
	// OnProgress observes the simulated ingestion percentage.
	OnProgress func(float64)
	Now        func() time.Time
}

// View is the filtered working set with its aggregates.
type View struct {
	Transactions []domain.Transaction `json:"transactions"`
	Stats        domain.Stats         `json:"stats"`
	Categories   []domain.Category    `json:"categories"`
}

// Filters is the current filter selection.
type Filters struct {
	Dates      analysis.DateSelector `json:"dates"`
	Categories []domain.Category     `json:"categories"`
}

// Status reports pending operations and the size of the working set.
type Status struct {
	Ingesting        bool    `json:"ingesting"`
	Advising         bool    `json:"advising"`
	Progress         float64 `json:"progress"`
	TransactionCount int     `json:"transactionCount"`
	PendingAlerts    int     `json:"pendingAlerts"`
}

// ManualEntry is a user-entered transaction, typically cash.
type ManualEntry struct {
	Date        string
	Amount      float64
	Description string
	Type        domain.TransactionType
}

// Workspace is safe for concurrent use.
type Workspace struct {
	store    *store.Store
	detector anomaly.Detector
	ingester Ingester
	adviser  advice.Adviser
	notifier alerts.Notifier
	progress *progress.Simulator
	log      zerolog.Logger
	now      func() time.Time
	topN     int

	ingestGate *semaphore.Weighted
	adviceGate *semaphore.Weighted
	ingesting  atomic.Bool
	advising   atomic.Bool

	mu         sync.Mutex
	generation uint64
	dates      analysis.DateSelector
	categories []domain.Category
	target     domain.SavingsTarget
	advice     *domain.Advice
	pending    []domain.Transaction
	view       View
}

// New creates an empty workspace. notifier may be nil.
func New(ingester Ingester, adviser advice.Adviser, notifier alerts.Notifier, log zerolog.Logger, opts Options) *Workspace {
	if opts.Detector.Threshold == 0 && opts.Detector.MinGroupSize == 0 {
		opts.Detector = anomaly.NewDetector()
	}
	if opts.AdviceTopN <= 0 {
		opts.AdviceTopN = advice.DefaultTopN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	w := &Workspace{
		store:      store.New(),
		detector:   opts.Detector,
		ingester:   ingester,
		adviser:    adviser,
		notifier:   notifier,
		progress:   progress.NewSimulator(opts.ProgressInterval, opts.OnProgress),
		log:        log.With().Str("component", "workspace").Logger(),
		now:        opts.Now,
		topN:       opts.AdviceTopN,
		ingestGate: semaphore.NewWeighted(1),
		adviceGate: semaphore.NewWeighted(1),
		dates:      analysis.AllDates,
	}
	w.refreshLocked()
	return w
}

// Merge appends transactions and returns the stored copies.
func (w *Workspace) Merge(ctx context.Context, txs []domain.Transaction) []domain.Transaction {
	w.mu.Lock()
	added := w.store.Merge(txs)
	batch := w.scanLocked()
	w.refreshLocked()
	w.mu.Unlock()

	w.emit(ctx, batch)
	return added
}

// AddManual records a manual entry.
func (w *Workspace) AddManual(ctx context.Context, e ManualEntry) domain.Transaction {
	w.mu.Lock()
	tx := w.store.AddManual(e.Date, e.Amount, e.Description, e.Type)
	batch := w.scanLocked()
	w.refreshLocked()
	w.mu.Unlock()

	w.log.Info().Str("transaction_id", tx.ID).Float64("amount", tx.Amount).Msg("manual entry added")
	w.emit(ctx, batch)
	return tx
}

// Reset returns the workspace to its empty initial state. A statement still
// being parsed is discarded when it completes.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.store.Reset()
	w.generation++
	w.dates = analysis.AllDates
	w.categories = nil
	w.target = domain.SavingsTarget{}
	w.advice = nil
	w.pending = nil
	w.refreshLocked()

	w.log.Info().Msg("workspace reset")
}

// SetDateSelector replaces the date filter.
func (w *Workspace) SetDateSelector(sel analysis.DateSelector) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if sel.Kind == "" {
		sel.Kind = analysis.RangeAll
	}
	w.dates = sel
	w.refreshLocked()
}

// SetCategories replaces the category filter. An empty selection shows every category.
func (w *Workspace) SetCategories(categories []domain.Category) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.categories = dedupe(categories)
	w.refreshLocked()
}

// Filters returns the current filter selection.
func (w *Workspace) Filters() Filters {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Filters{Dates: w.dates, Categories: slices.Clone(w.categories)}
}

// View returns the filtered transactions and their aggregates.
func (w *Workspace) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneView(w.view)
}

// Transactions returns the whole unfiltered working set.
func (w *Workspace) Transactions() []domain.Transaction {
	return w.store.All()
}

// IngestStatement parses one statement and merges its transactions. Only one
// ingestion may be pending; a second call returns ErrBusy.
func (w *Workspace) IngestStatement(ctx context.Context, src pipeline.Source) ([]domain.Transaction, error) {
	if !w.ingestGate.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer w.ingestGate.Release(1)
	w.ingesting.Store(true)
	defer w.ingesting.Store(false)

	w.mu.Lock()
	gen := w.generation
	w.mu.Unlock()

	w.progress.Start()
	txs, err := w.ingester.Ingest(ctx, src)
	if err != nil {
		w.progress.Finish(false)
		w.log.Error().Err(err).Str("source", src.Name()).Msg("statement ingestion failed")
		return nil, fmt.Errorf("%w: %w", ErrIngestionFailed, err)
	}

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		w.progress.Finish(false)
		w.log.Warn().Str("source", src.Name()).Msg("workspace reset during ingestion, result discarded")
		return nil, fmt.Errorf("%w: workspace was reset", ErrIngestionFailed)
	}
	added := w.store.Merge(txs)
	if len(w.categories) > 0 {
		w.categories = dedupe(append(w.categories, analysis.DistinctCategories(added)...))
	}
	batch := w.scanLocked()
	w.refreshLocked()
	w.mu.Unlock()

	w.progress.Finish(true)
	w.log.Info().Str("source", src.Name()).Int("transactions", len(added)).Msg("statement merged")
	w.emit(ctx, batch)

	return added, nil
}

// SetSavingsTarget stores the target. A zero amount clears it.
func (w *Workspace) SetSavingsTarget(target domain.SavingsTarget) error {
	if target.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidTarget)
	}
	freq, err := domain.ParseFrequency(string(target.Frequency))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	target.Frequency = freq

	w.mu.Lock()
	defer w.mu.Unlock()
	w.target = target
	return nil
}

// SavingsTarget returns the current target.
func (w *Workspace) SavingsTarget() domain.SavingsTarget {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// RequestAdvice asks the adviser for a plan toward the savings target, based
// on the currently filtered stats. On failure the previous advice is kept.
func (w *Workspace) RequestAdvice(ctx context.Context) (domain.Advice, error) {
	w.mu.Lock()
	req, err := advice.BuildContext(w.view.Stats, w.target, w.topN)
	w.mu.Unlock()
	if err != nil {
		return domain.Advice{}, err
	}

	if !w.adviceGate.TryAcquire(1) {
		return domain.Advice{}, ErrBusy
	}
	defer w.adviceGate.Release(1)
	w.advising.Store(true)
	defer w.advising.Store(false)

	w.log.Info().
		Float64("target_monthly", req.TargetSavingsMonthly).
		Float64("current_savings", req.CurrentSavings).
		Msg("requesting advice")

	out, err := w.adviser.Advise(ctx, req)
	if err != nil {
		w.log.Error().Err(err).Msg("advice request failed")
		return domain.Advice{}, fmt.Errorf("%w: %w", ErrAdviceFailed, err)
	}

	w.mu.Lock()
	w.advice = &out
	w.mu.Unlock()

	return out, nil
}

// Advice returns the latest successful advice, if any.
func (w *Workspace) Advice() (domain.Advice, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.advice == nil {
		return domain.Advice{}, false
	}
	return *w.advice, true
}

// PendingAlerts returns the flagged transactions awaiting acknowledgement.
func (w *Workspace) PendingAlerts() []domain.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.pending)
}

// AcknowledgeAlerts dismisses the pending alerts and returns how many there were.
// The transactions stay flagged.
func (w *Workspace) AcknowledgeAlerts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.pending)
	w.pending = nil
	return n
}

// Status reports pending operations.
func (w *Workspace) Status() Status {
	w.mu.Lock()
	pending := len(w.pending)
	w.mu.Unlock()

	return Status{
		Ingesting:        w.ingesting.Load(),
		Advising:         w.advising.Load(),
		Progress:         w.progress.Value(),
		TransactionCount: w.store.Len(),
		PendingAlerts:    pending,
	}
}

// scanLocked flags newly suspicious transactions and queues them as pending
// alerts. Marking happens under the lock so no transaction is reported twice.
func (w *Workspace) scanLocked() *alerts.Batch {
	fresh := w.detector.Scan(w.store.All())
	if len(fresh) == 0 {
		return nil
	}

	w.store.MarkSuspicious(anomaly.IDs(fresh))
	for i := range fresh {
		fresh[i].IsFlaggedSuspicious = true
	}
	w.pending = append(w.pending, fresh...)

	batch := alerts.NewBatch(fresh, w.now())
	return &batch
}

func (w *Workspace) refreshLocked() {
	all := w.store.All()
	filtered := analysis.Filter(all, w.dates, w.categories, w.now())
	w.view = View{
		Transactions: filtered,
		Stats:        analysis.Aggregate(filtered),
		Categories:   analysis.DistinctCategories(all),
	}
	if w.view.Categories == nil {
		w.view.Categories = []domain.Category{}
	}
}

// emit delivers a batch outside the lock. Delivery failures are logged; the
// transactions stay flagged.
func (w *Workspace) emit(ctx context.Context, batch *alerts.Batch) {
	if batch == nil {
		return
	}

	w.log.Warn().Str("batch_id", batch.ID).Int("count", len(batch.Transactions)).Msg("suspicious transactions flagged")

	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, *batch); err != nil {
		w.log.Error().Err(err).Str("batch_id", batch.ID).Msg("alert delivery failed")
	}
}

func cloneView(v View) View {
	return View{
		Transactions: slices.Clone(v.Transactions),
		Stats: domain.Stats{
			MonthlySummary: slices.Clone(v.Stats.MonthlySummary),
			TopCategories:  slices.Clone(v.Stats.TopCategories),
			TotalIncome:    v.Stats.TotalIncome,
			TotalExpense:   v.Stats.TotalExpense,
			Savings:        v.Stats.Savings,
		},
		Categories: slices.Clone(v.Categories),
	}
}

func dedupe(categories []domain.Category) []domain.Category {
	out := make([]domain.Category, 0, len(categories))
	for _, c := range categories {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
