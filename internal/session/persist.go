package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"budgetplanner/internal/core"
	"budgetplanner/internal/rates"
	"budgetplanner/internal/storage"

	"github.com/shopspring/decimal"
)

// StorageKey is the key the session blob is stored under.
const StorageKey = "budget-planner-data"

// snapshot is the persisted shape of a session at CurrentVersion.
type snapshot struct {
	Version         int                        `json:"version"`
	UserName        *string                    `json:"userName"`
	Incomes         []core.Transaction         `json:"incomes"`
	Expenses        []core.Transaction         `json:"expenses"`
	SavingsGoal     decimal.Decimal            `json:"savingsGoal"`
	Currency        string                     `json:"currency"`
	SelectedMonth   string                     `json:"selectedMonth"`
	ExchangeRates   map[string]decimal.Decimal `json:"exchangeRates"`
	LastRatesUpdate *time.Time                 `json:"lastRatesUpdate"`
}

func (s *Session) snapshotLocked() snapshot {
	tbl := s.rates.Snapshot()
	snap := snapshot{
		Version:         CurrentVersion,
		UserName:        s.userName,
		Incomes:         make([]core.Transaction, len(s.incomes)),
		Expenses:        make([]core.Transaction, len(s.expenses)),
		SavingsGoal:     s.settings.SavingsGoal,
		Currency:        s.settings.Currency,
		SelectedMonth:   s.settings.SelectedMonth,
		ExchangeRates:   tbl.Rates,
		LastRatesUpdate: tbl.UpdatedAt,
	}
	// kind is implied by the list
	for i, t := range s.incomes {
		t.Kind = ""
		snap.Incomes[i] = t
	}
	for i, t := range s.expenses {
		t.Kind = ""
		snap.Expenses[i] = t
	}
	return snap
}

// Save writes the session to its store. Without a store it does nothing.
func (s *Session) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Put(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// persistLocked saves after a mutation. A failed save is logged and the
// in-memory change stands.
func (s *Session) persistLocked(ctx context.Context) {
	if err := s.saveLocked(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist budget", "error", err)
	}
}

// Load replaces the session state with the stored blob, upgrading it from
// older versions. A missing blob leaves the initial state. A blob that cannot
// be decoded is logged and the session starts from the initial state; only a
// failing store is returned as an error.
func (s *Session) Load(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	data, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.InfoContext(ctx, "No saved budget, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	snap, err := Upgrade(data, s.clock)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to parse saved budget data, starting fresh", "error", err)
		s.mu.Lock()
		s.reset()
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.apply(snap)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Budget loaded",
		"incomes", len(snap.Incomes),
		"expenses", len(snap.Expenses),
		"month", snap.SelectedMonth)
	return nil
}

func (s *Session) apply(snap *snapshot) {
	s.userName = snap.UserName
	s.incomes = withKind(snap.Incomes, core.KindIncome)
	s.expenses = withKind(snap.Expenses, core.KindExpense)
	s.settings = core.Settings{
		SavingsGoal:   snap.SavingsGoal,
		Currency:      snap.Currency,
		SelectedMonth: snap.SelectedMonth,
	}
	s.rates.Replace(&rates.Table{Rates: snap.ExchangeRates, UpdatedAt: snap.LastRatesUpdate})
}

func withKind(in []core.Transaction, kind core.Kind) []core.Transaction {
	out := make([]core.Transaction, 0, len(in))
	for _, t := range in {
		t.Kind = kind
		out = append(out, t)
	}
	return out
}
