package session

import (
	"context"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/budget"

	"github.com/shopspring/decimal"
)

// Overview bundles everything the dashboard shows for the selected month.
type Overview struct {
	UserName         string            `json:"userName,omitempty"`
	Summary          budget.Summary    `json:"summary"`
	GoalStatus       budget.GoalStatus `json:"goalStatus"`
	GoalProgress     budget.Progress   `json:"goalProgress"`
	RemainingBalance decimal.Decimal   `json:"remainingBalance"`
}

// Summary computes the summary of the selected month in the display currency.
func (s *Session) Summary() budget.Summary {
	st := s.copyState()
	return budget.ComputeSummary(st.incomes, st.expenses, st.settings, s.rates.Snapshot())
}

// RemainingBalance is income minus expenses of the selected month.
func (s *Session) RemainingBalance() decimal.Decimal {
	return s.Summary().TotalSavings
}

func (s *Session) GoalStatus() budget.GoalStatus {
	st := s.copyState()
	sum := budget.ComputeSummary(st.incomes, st.expenses, st.settings, s.rates.Snapshot())
	return budget.EvaluateGoal(sum.SavingsRate, st.settings.SavingsGoal)
}

func (s *Session) GoalProgress() budget.Progress {
	st := s.copyState()
	sum := budget.ComputeSummary(st.incomes, st.expenses, st.settings, s.rates.Snapshot())
	return budget.GoalProgress(sum, st.settings.SavingsGoal)
}

// Overview computes the summary once and derives the goal views from it.
func (s *Session) Overview() Overview {
	st := s.copyState()
	sum := budget.ComputeSummary(st.incomes, st.expenses, st.settings, s.rates.Snapshot())
	return Overview{
		UserName:         s.UserName(),
		Summary:          sum,
		GoalStatus:       budget.EvaluateGoal(sum.SavingsRate, st.settings.SavingsGoal),
		GoalProgress:     budget.GoalProgress(sum, st.settings.SavingsGoal),
		RemainingBalance: sum.TotalSavings,
	}
}

// DailySummary computes the totals of a single date in the display currency.
func (s *Session) DailySummary(date string) budget.DailySummary {
	st := s.copyState()
	return budget.ComputeDailySummary(st.incomes, st.expenses, date, st.settings, s.rates.Snapshot())
}

// DailySummariesForMonth computes per-date totals for every date of month
// that has transactions.
func (s *Session) DailySummariesForMonth(month string) map[string]budget.DailySummary {
	st := s.copyState()
	return budget.ComputeDailySummariesForMonth(st.incomes, st.expenses, month, st.settings, s.rates.Snapshot())
}

// RefreshRates fetches new exchange rates. On success the session is saved
// and a refresh event published; on failure the current rates stay.
func (s *Session) RefreshRates(ctx context.Context) bool {
	if !s.rates.Refresh(ctx) {
		return false
	}

	s.mu.Lock()
	s.persistLocked(ctx)
	s.mu.Unlock()

	if s.pub != nil {
		tbl := s.rates.Snapshot()
		out := make(map[string]string, len(tbl.Rates))
		for code, r := range tbl.Rates {
			out[code] = r.String()
		}
		at := s.clock.Now()
		if tbl.UpdatedAt != nil {
			at = *tbl.UpdatedAt
		}
		if err := s.pub.PublishRatesRefreshed(ctx, amqp.NewRatesRefreshedMessage(out, at)); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish rates refresh", "error", err)
		}
	}
	return true
}

// RefreshRatesIfStale refreshes only when the rates are older than the
// store's threshold. It reports whether a refresh succeeded.
func (s *Session) RefreshRatesIfStale(ctx context.Context) bool {
	if !s.rates.IsStale(s.clock.Now()) {
		return false
	}
	return s.RefreshRates(ctx)
}

func (s *Session) publishChange(ctx context.Context, kind, id, month string) {
	if s.pub == nil {
		return
	}
	msg := amqp.NewBudgetChangedMessage(kind, id, month, s.clock.Now())
	if err := s.pub.PublishBudgetChanged(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish budget change", "kind", kind, "error", err)
	}
}
