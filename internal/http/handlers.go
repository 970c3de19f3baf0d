package http

import (
	"net/http"
	"time"

	"budgetplanner/internal/budget"
	"budgetplanner/internal/core"
	"budgetplanner/internal/currency"
	"budgetplanner/internal/session"
)

type formattedTotals struct {
	TotalIncome      string `json:"totalIncome"`
	TotalExpenses    string `json:"totalExpenses"`
	TotalSavings     string `json:"totalSavings"`
	RemainingBalance string `json:"remainingBalance"`
}

type summaryResponse struct {
	session.Overview
	Formatted formattedTotals `json:"formatted"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ov := s.session.Overview()
	code := ov.Summary.Currency
	NewJSONResponse().Data(summaryResponse{
		Overview: ov,
		Formatted: formattedTotals{
			TotalIncome:      currency.Format(ov.Summary.TotalIncome, code),
			TotalExpenses:    currency.Format(ov.Summary.TotalExpenses, code),
			TotalSavings:     currency.Format(ov.Summary.TotalSavings, code),
			RemainingBalance: currency.Format(ov.RemainingBalance, code),
		},
	}).Write(w)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, core.Today(s.clock))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(s.session.DailySummary(date)).Write(w)
}

type calendarResponse struct {
	Month        string                         `json:"month"`
	Label        string                         `json:"label"`
	Previous     string                         `json:"previous"`
	Next         string                         `json:"next"`
	DaysInMonth  int                            `json:"daysInMonth"`
	FirstWeekday time.Weekday                   `json:"firstWeekday"`
	Days         map[string]budget.DailySummary `json:"days"`
}

// handleCalendar returns the per-day totals of a month with what a month
// grid needs to lay them out.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r, s.session.Settings().SelectedMonth)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := calendarResponse{Month: month, Days: s.session.DailySummariesForMonth(month)}
	// month is valid, so none of these can fail
	resp.Label, _ = core.MonthLabel(month)
	resp.Previous, _ = core.PreviousMonth(month)
	resp.Next, _ = core.NextMonth(month)
	resp.DaysInMonth, _ = core.DaysInMonth(month)
	resp.FirstWeekday, _ = core.FirstWeekday(month)

	NewJSONResponse().Data(resp).Write(w)
}

type ratesResponse struct {
	Base      string            `json:"base"`
	Rates     map[string]string `json:"rates"`
	UpdatedAt *time.Time        `json:"updatedAt"`
	Stale     bool              `json:"stale"`
	Refreshed *bool             `json:"refreshed,omitempty"`
}

func (s *Server) ratesResponse() ratesResponse {
	store := s.session.Rates()
	tbl := store.Snapshot()
	out := make(map[string]string, len(tbl.Rates))
	for code, rate := range tbl.Rates {
		out[code] = rate.String()
	}
	return ratesResponse{
		Base:      currency.Base,
		Rates:     out,
		UpdatedAt: tbl.UpdatedAt,
		Stale:     store.IsStale(s.clock.Now()),
	}
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.ratesResponse()).Write(w)
}

// handleRefreshRates forces a refresh. A failed refresh keeps the current
// rates and is reported with refreshed=false.
func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	ok := s.session.RefreshRates(r.Context())
	resp := s.ratesResponse()
	resp.Refreshed = &ok
	NewJSONResponse().Data(resp).Write(w)
}

func handleCurrencies(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(currency.All()).Write(w)
}

type categoryResponse struct {
	Value core.Category `json:"value"`
	Label string        `json:"label"`
}

func categoryList(kind core.Kind) []categoryResponse {
	cats := kind.Categories()
	out := make([]categoryResponse, len(cats))
	for i, c := range cats {
		out[i] = categoryResponse{Value: c, Label: c.Label()}
	}
	return out
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string][]categoryResponse{
		"income":  categoryList(core.KindIncome),
		"expense": categoryList(core.KindExpense),
	}).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ClearAll(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
