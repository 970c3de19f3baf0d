package session

import (
	"context"
	"fmt"
	"strings"

	"budgetplanner/internal/core"

	"github.com/shopspring/decimal"
)

// SetSavingsGoal sets the savings goal percentage. Any positive value is
// accepted here; narrower ranges are a concern of the caller.
func (s *Session) SetSavingsGoal(ctx context.Context, goal decimal.Decimal) error {
	if !goal.IsPositive() {
		return fmt.Errorf("%w: %s", core.ErrInvalidGoal, goal)
	}
	s.mu.Lock()
	s.settings.SavingsGoal = goal
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publishChange(ctx, "settings.goal", "", "")
	return nil
}

// SetCurrency changes the display currency. Stored amounts keep their entry
// currency.
func (s *Session) SetCurrency(ctx context.Context, code string) error {
	code, err := normalizeCurrency(code)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.settings.Currency = code
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publishChange(ctx, "settings.currency", "", "")
	return nil
}

func (s *Session) SetSelectedMonth(ctx context.Context, month string) error {
	if _, err := core.ParseMonth(month); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings.SelectedMonth = month
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publishChange(ctx, "settings.month", "", month)
	return nil
}

// SetUserName sets the display name; a blank name clears it.
func (s *Session) SetUserName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	if name == "" {
		s.userName = nil
	} else {
		s.userName = &name
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publishChange(ctx, "settings.user", "", "")
	return nil
}

// ClearAll drops every transaction and setting and resets the exchange rates
// to the fallback table. The selected month becomes the current month.
func (s *Session) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.reset()
	s.rates.Replace(nil)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Budget cleared")
	s.publishChange(ctx, "budget.cleared", "", "")
	return nil
}
