package session

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"budgetplanner/internal/core"
	"budgetplanner/internal/currency"
	"budgetplanner/internal/log"

	"github.com/shopspring/decimal"
)

// NewTransaction is the input for adding an income or expense. Date defaults
// to today and Currency to the display currency.
type NewTransaction struct {
	Name     string
	Amount   decimal.Decimal
	Category core.Category
	Date     string
	Currency string
}

// TransactionPatch holds the fields to change; nil fields are kept. The
// month key follows Date and cannot be set on its own.
type TransactionPatch struct {
	Name     *string
	Amount   *decimal.Decimal
	Category *core.Category
	Date     *string
	Currency *string
}

func (s *Session) AddIncome(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	return s.add(ctx, core.KindIncome, in)
}

func (s *Session) AddExpense(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	return s.add(ctx, core.KindExpense, in)
}

func (s *Session) UpdateIncome(ctx context.Context, id string, p TransactionPatch) (core.Transaction, error) {
	return s.update(ctx, core.KindIncome, id, p)
}

func (s *Session) UpdateExpense(ctx context.Context, id string, p TransactionPatch) (core.Transaction, error) {
	return s.update(ctx, core.KindExpense, id, p)
}

func (s *Session) RemoveIncome(ctx context.Context, id string) error {
	return s.remove(ctx, core.KindIncome, id)
}

func (s *Session) RemoveExpense(ctx context.Context, id string) error {
	return s.remove(ctx, core.KindExpense, id)
}

// Incomes returns the incomes of month, or all incomes when month is empty.
func (s *Session) Incomes(month string) []core.Transaction {
	return s.filter(core.KindIncome, month)
}

// Expenses returns the expenses of month, or all expenses when month is empty.
func (s *Session) Expenses(month string) []core.Transaction {
	return s.filter(core.KindExpense, month)
}

// Transaction looks up a single income or expense by id.
func (s *Session) Transaction(kind core.Kind, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range *s.list(kind) {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("%s %q: %w", kind, id, core.ErrNotFound)
}

func (s *Session) filter(kind core.Kind, month string) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0, len(*s.list(kind)))
	for _, t := range *s.list(kind) {
		if month == "" || t.Month == month {
			out = append(out, t)
		}
	}
	return out
}

func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currency.IsSupported(code) {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownCurrency, code)
	}
	return code, nil
}

func (s *Session) add(ctx context.Context, kind core.Kind, in NewTransaction) (core.Transaction, error) {
	s.mu.Lock()

	t := core.Transaction{
		ID:       s.newID(),
		Kind:     kind,
		Name:     strings.TrimSpace(in.Name),
		Amount:   in.Amount,
		Category: in.Category,
		Currency: s.settings.Currency,
	}
	if in.Currency != "" {
		code, err := normalizeCurrency(in.Currency)
		if err != nil {
			s.mu.Unlock()
			return core.Transaction{}, err
		}
		t.Currency = code
	}
	date := in.Date
	if date == "" {
		date = core.Today(s.clock)
	}
	if err := t.SetDate(date); err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	if err := t.Validate(); err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}

	list := s.list(kind)
	*list = append(*list, t)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.events.LogTransaction(ctx, log.OpCreate, t.ID, string(kind), string(t.Category), t.Amount.String(), t.Currency, t.Date)
	s.publishChange(ctx, string(kind)+".added", t.ID, t.Month)
	return t, nil
}

func (s *Session) update(ctx context.Context, kind core.Kind, id string, p TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()

	list := s.list(kind)
	idx := -1
	for i := range *list {
		if (*list)[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("%s %q: %w", kind, id, core.ErrNotFound)
	}

	t := (*list)[idx]
	if p.Name != nil {
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Currency != nil {
		code, err := normalizeCurrency(*p.Currency)
		if err != nil {
			s.mu.Unlock()
			return core.Transaction{}, err
		}
		t.Currency = code
	}
	if p.Date != nil {
		if err := t.SetDate(*p.Date); err != nil {
			s.mu.Unlock()
			return core.Transaction{}, err
		}
	}
	if err := t.Validate(); err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}

	(*list)[idx] = t
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.events.LogTransaction(ctx, log.OpUpdate, t.ID, string(kind), string(t.Category), t.Amount.String(), t.Currency, t.Date)
	s.publishChange(ctx, string(kind)+".updated", t.ID, t.Month)
	return t, nil
}

func (s *Session) remove(ctx context.Context, kind core.Kind, id string) error {
	s.mu.Lock()

	list := s.list(kind)
	for i, t := range *list {
		if t.ID != id {
			continue
		}
		*list = slices.Delete(*list, i, i+1)
		s.persistLocked(ctx)
		s.mu.Unlock()

		s.events.LogTransaction(ctx, log.OpDelete, t.ID, string(kind), string(t.Category), t.Amount.String(), t.Currency, t.Date)
		s.publishChange(ctx, string(kind)+".removed", t.ID, t.Month)
		return nil
	}
	s.mu.Unlock()
	return fmt.Errorf("%s %q: %w", kind, id, core.ErrNotFound)
}
