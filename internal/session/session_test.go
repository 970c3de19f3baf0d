package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/budget"
	"budgetplanner/internal/core"
	"budgetplanner/internal/rates"
	"budgetplanner/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingPublisher struct {
	mu      sync.Mutex
	changes []*amqp.BudgetChangedMessage
	rates   []*amqp.RatesRefreshedMessage
	err     error
}

func (p *recordingPublisher) PublishBudgetChanged(_ context.Context, msg *amqp.BudgetChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, msg)
	return p.err
}

func (p *recordingPublisher) PublishRatesRefreshed(_ context.Context, msg *amqp.RatesRefreshedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates = append(p.rates, msg)
	return p.err
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.changes))
	for i, m := range p.changes {
		out[i] = m.Kind
	}
	return out
}

type providerFunc func(ctx context.Context) (map[string]decimal.Decimal, error)

func (f providerFunc) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) { return f(ctx) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// assertSameTransactions compares amounts by value; a JSON round trip may
// change their scale.
func assertSameTransactions(t *testing.T, want, got []core.Transaction) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Amount.Equal(got[i].Amount), "amount of %s", want[i].ID)
		w, g := want[i], got[i]
		w.Amount, g.Amount = decimal.Zero, decimal.Zero
		assert.Equal(t, w, g)
	}
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *storage.MemoryKV) {
	t.Helper()
	kv := storage.NewMemoryKV()
	clock := core.FixedClock{T: testNow}
	base := []Option{
		WithClock(clock),
		WithStore(kv),
		WithIDGenerator(sequentialIDs()),
	}
	return New(rates.NewStore(nil, rates.WithClock(clock)), append(base, opts...)...), kv
}

func TestNewSessionDefaults(t *testing.T) {
	s, _ := newTestSession(t)

	cfg := s.Settings()
	assert.Equal(t, "2025-01", cfg.SelectedMonth)
	assert.Equal(t, "USD", cfg.Currency)
	assert.True(t, cfg.SavingsGoal.Equal(d("20")))
	assert.Empty(t, s.UserName())
	assert.Empty(t, s.Incomes(""))
	assert.Empty(t, s.Expenses(""))
}

func TestAddIncomeDefaults(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.SetCurrency(ctx, "eur"))

	got, err := s.AddIncome(ctx, NewTransaction{Name: " Salary ", Amount: d("5000"), Category: core.CategorySalary})
	require.NoError(t, err)

	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, core.KindIncome, got.Kind)
	assert.Equal(t, "Salary", got.Name)
	assert.Equal(t, "2025-01-15", got.Date)
	assert.Equal(t, "2025-01", got.Month)
	assert.Equal(t, "EUR", got.Currency)
	assert.Len(t, s.Incomes("2025-01"), 1)
}

func TestAddExpenseExplicitDateAndCurrency(t *testing.T) {
	s, _ := newTestSession(t)

	got, err := s.AddExpense(context.Background(), NewTransaction{
		Name: "Rent", Amount: d("1500"), Category: core.CategoryHousing,
		Date: "2024-12-31", Currency: "gbp",
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-12", got.Month)
	assert.Equal(t, "GBP", got.Currency)
	assert.Len(t, s.Expenses("2024-12"), 1)
	assert.Empty(t, s.Expenses("2025-01"))
}

func TestAddRejectsInvalidInput(t *testing.T) {
	valid := NewTransaction{Name: "Rent", Amount: d("10"), Category: core.CategoryHousing}
	tests := []struct {
		name   string
		mutate func(*NewTransaction)
		want   error
	}{
		{"zero amount", func(n *NewTransaction) { n.Amount = decimal.Zero }, core.ErrInvalidAmount},
		{"negative amount", func(n *NewTransaction) { n.Amount = d("-1") }, core.ErrInvalidAmount},
		{"blank name", func(n *NewTransaction) { n.Name = "  " }, core.ErrEmptyName},
		{"income category on expense", func(n *NewTransaction) { n.Category = core.CategorySalary }, core.ErrInvalidCategory},
		{"bad date", func(n *NewTransaction) { n.Date = "2025-02-30" }, core.ErrInvalidDate},
		{"unknown currency", func(n *NewTransaction) { n.Currency = "XYZ" }, core.ErrUnknownCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, kv := newTestSession(t)
			in := valid
			tt.mutate(&in)

			_, err := s.AddExpense(context.Background(), in)

			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, s.Expenses(""))
			_, err = kv.Get(context.Background(), StorageKey)
			assert.True(t, errors.Is(err, storage.ErrNotFound), "nothing should be persisted")
		})
	}
}

func TestUpdateRederivesMonth(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	added, err := s.AddIncome(ctx, NewTransaction{Name: "Gig", Amount: d("300"), Category: core.CategoryFreelance})
	require.NoError(t, err)

	date := "2025-03-02"
	amount := d("350")
	got, err := s.UpdateIncome(ctx, added.ID, TransactionPatch{Date: &date, Amount: &amount})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-02", got.Date)
	assert.Equal(t, "2025-03", got.Month)
	assert.True(t, got.Amount.Equal(amount))
	assert.Equal(t, "Gig", got.Name)

	stored, err := s.Transaction(core.KindIncome, added.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestUpdateInvalidPatchLeavesTransaction(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	added, err := s.AddExpense(ctx, NewTransaction{Name: "Bus", Amount: d("2.5"), Category: core.CategoryTransportation})
	require.NoError(t, err)

	bad := "not-a-date"
	_, err = s.UpdateExpense(ctx, added.ID, TransactionPatch{Date: &bad})
	assert.True(t, errors.Is(err, core.ErrInvalidDate))

	cat := core.CategoryInvestment
	_, err = s.UpdateExpense(ctx, added.ID, TransactionPatch{Category: &cat})
	assert.True(t, errors.Is(err, core.ErrInvalidCategory))

	stored, err := s.Transaction(core.KindExpense, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added, stored)
}

func TestUpdateAndRemoveUnknownID(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	name := "x"
	_, err := s.UpdateIncome(ctx, "missing", TransactionPatch{Name: &name})
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.True(t, errors.Is(s.RemoveExpense(ctx, "missing"), core.ErrNotFound))
}

func TestRemove(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	a, _ := s.AddExpense(ctx, NewTransaction{Name: "a", Amount: d("1"), Category: core.CategoryFood})
	b, _ := s.AddExpense(ctx, NewTransaction{Name: "b", Amount: d("2"), Category: core.CategoryFood})

	require.NoError(t, s.RemoveExpense(ctx, a.ID))

	left := s.Expenses("")
	require.Len(t, left, 1)
	assert.Equal(t, b.ID, left[0].ID)

	// incomes and expenses have separate id spaces
	assert.True(t, errors.Is(s.RemoveIncome(ctx, b.ID), core.ErrNotFound))
}

func TestSummaryForSelectedMonth(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	_, err := s.AddIncome(ctx, NewTransaction{Name: "Salary", Amount: d("5000"), Category: core.CategorySalary, Date: "2025-01-15"})
	require.NoError(t, err)
	_, err = s.AddExpense(ctx, NewTransaction{Name: "Rent", Amount: d("1500"), Category: core.CategoryHousing, Date: "2025-01-15"})
	require.NoError(t, err)
	_, err = s.AddExpense(ctx, NewTransaction{Name: "Trip", Amount: d("900"), Category: core.CategoryEntertainment, Date: "2025-02-10"})
	require.NoError(t, err)

	sum := s.Summary()
	assert.True(t, sum.TotalIncome.Equal(d("5000")))
	assert.True(t, sum.TotalExpenses.Equal(d("1500")))
	assert.True(t, sum.SavingsRate.Equal(d("70")))
	assert.True(t, s.RemainingBalance().Equal(d("3500")))

	status := s.GoalStatus()
	assert.Equal(t, budget.SeveritySuccess, status.Severity)
	assert.Contains(t, status.Message, "exceeding your goal by 50.0%")

	ov := s.Overview()
	assert.True(t, ov.GoalProgress.Percent.Equal(d("100")))
	assert.True(t, ov.GoalProgress.TargetSavings.Equal(d("1000")))
	assert.True(t, ov.RemainingBalance.Equal(d("3500")))
	assert.True(t, s.GoalProgress().OnTrack)

	require.NoError(t, s.SetSelectedMonth(ctx, "2025-02"))
	sum = s.Summary()
	assert.True(t, sum.TotalIncome.IsZero())
	assert.True(t, sum.TotalExpenses.Equal(d("900")))
	assert.True(t, sum.SavingsRate.IsZero())
	assert.Equal(t, budget.SeverityDanger, s.GoalStatus().Severity)
}

func TestSummaryInDisplayCurrency(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	_, err := s.AddIncome(ctx, NewTransaction{Name: "Bonus", Amount: d("100"), Category: core.CategoryOther, Currency: "EUR"})
	require.NoError(t, err)

	assert.Equal(t, "108.70", s.Summary().TotalIncome.StringFixed(2))

	require.NoError(t, s.SetCurrency(ctx, "EUR"))
	assert.True(t, s.Summary().TotalIncome.Equal(d("100")))
	assert.Equal(t, "EUR", s.Summary().Currency)
}

func TestDailySummaries(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	_, _ = s.AddIncome(ctx, NewTransaction{Name: "a", Amount: d("100"), Category: core.CategorySalary, Date: "2025-01-02"})
	_, _ = s.AddExpense(ctx, NewTransaction{Name: "b", Amount: d("40"), Category: core.CategoryFood, Date: "2025-01-02"})
	_, _ = s.AddExpense(ctx, NewTransaction{Name: "c", Amount: d("10"), Category: core.CategoryFood, Date: "2025-01-20"})

	day := s.DailySummary("2025-01-02")
	assert.True(t, day.Savings.Equal(d("60")))

	month := s.DailySummariesForMonth("2025-01")
	assert.Len(t, month, 2)
	assert.True(t, month["2025-01-20"].Expenses.Equal(d("10")))
}

func TestSettingsValidation(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	assert.True(t, errors.Is(s.SetSavingsGoal(ctx, decimal.Zero), core.ErrInvalidGoal))
	assert.True(t, errors.Is(s.SetSavingsGoal(ctx, d("-5")), core.ErrInvalidGoal))
	require.NoError(t, s.SetSavingsGoal(ctx, d("75")))
	assert.True(t, s.Settings().SavingsGoal.Equal(d("75")))

	assert.True(t, errors.Is(s.SetCurrency(ctx, "XYZ"), core.ErrUnknownCurrency))
	assert.Equal(t, "USD", s.Settings().Currency)

	assert.True(t, errors.Is(s.SetSelectedMonth(ctx, "2025-13"), core.ErrInvalidMonth))
	assert.Equal(t, "2025-01", s.Settings().SelectedMonth)

	require.NoError(t, s.SetUserName(ctx, "  Ada "))
	assert.Equal(t, "Ada", s.UserName())
	require.NoError(t, s.SetUserName(ctx, ""))
	assert.Empty(t, s.UserName())
}

func TestClearAll(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	_, _ = s.AddIncome(ctx, NewTransaction{Name: "a", Amount: d("1"), Category: core.CategorySalary})
	_ = s.SetSelectedMonth(ctx, "2020-05")
	_ = s.SetCurrency(ctx, "JPY")
	_ = s.SetUserName(ctx, "Ada")
	at := testNow
	s.Rates().Replace(&rates.Table{Rates: map[string]decimal.Decimal{"EUR": d("0.5")}, UpdatedAt: &at})

	require.NoError(t, s.ClearAll(ctx))

	assert.Empty(t, s.Incomes(""))
	assert.Equal(t, "2025-01", s.Settings().SelectedMonth)
	assert.Equal(t, "USD", s.Settings().Currency)
	assert.Empty(t, s.UserName())
	assert.Nil(t, s.Rates().Snapshot().UpdatedAt)
	assert.True(t, s.Rates().Snapshot().Rates["EUR"].Equal(d("0.92")))
}

func TestPersistenceRoundTrip(t *testing.T) {
	s, kv := newTestSession(t)
	ctx := context.Background()
	_, _ = s.AddIncome(ctx, NewTransaction{Name: "Salary", Amount: d("5000.50"), Category: core.CategorySalary, Date: "2025-01-03"})
	_, _ = s.AddExpense(ctx, NewTransaction{Name: "Food", Amount: d("12.34"), Category: core.CategoryFood, Currency: "EUR"})
	_ = s.SetSavingsGoal(ctx, d("25"))
	_ = s.SetUserName(ctx, "Ada")
	at := testNow.Add(-time.Minute)
	s.Rates().Replace(&rates.Table{Rates: map[string]decimal.Decimal{"EUR": d("0.9")}, UpdatedAt: &at})
	require.NoError(t, s.Save(ctx))

	clock := core.FixedClock{T: testNow}
	restored := New(rates.NewStore(nil, rates.WithClock(clock)), WithClock(clock), WithStore(kv))
	require.NoError(t, restored.Load(ctx))

	assertSameTransactions(t, s.Incomes(""), restored.Incomes(""))
	assertSameTransactions(t, s.Expenses(""), restored.Expenses(""))
	assert.True(t, restored.Settings().SavingsGoal.Equal(d("25")))
	assert.Equal(t, "Ada", restored.UserName())
	tbl := restored.Rates().Snapshot()
	assert.True(t, tbl.Rates["EUR"].Equal(d("0.9")))
	require.NotNil(t, tbl.UpdatedAt)
	assert.True(t, tbl.UpdatedAt.Equal(at))
	assert.False(t, restored.Rates().IsStale(testNow))
}

func TestSavedBlobShape(t *testing.T) {
	s, kv := newTestSession(t)
	ctx := context.Background()
	_, _ = s.AddIncome(ctx, NewTransaction{Name: "Salary", Amount: d("10"), Category: core.CategorySalary})

	raw, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	var b map[string]any
	require.NoError(t, json.Unmarshal(raw, &b))

	for _, key := range []string{"version", "userName", "incomes", "expenses", "savingsGoal", "currency", "selectedMonth", "exchangeRates", "lastRatesUpdate"} {
		assert.Contains(t, b, key)
	}
	assert.EqualValues(t, CurrentVersion, b["version"])
	income := b["incomes"].([]any)[0].(map[string]any)
	assert.NotContains(t, income, "kind")
	assert.Equal(t, "2025-01", income["month"])
}

func TestLoadMissingAndMalformed(t *testing.T) {
	ctx := context.Background()

	s, _ := newTestSession(t)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, "2025-01", s.Settings().SelectedMonth)

	s, kv := newTestSession(t)
	require.NoError(t, kv.Put(ctx, StorageKey, []byte(`{"incomes": [`)))
	require.NoError(t, s.Load(ctx))
	assert.Empty(t, s.Incomes(""))
	assert.Equal(t, "USD", s.Settings().Currency)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk on fire") }
func (failingKV) Put(context.Context, string, []byte) error   { return errors.New("disk on fire") }
func (failingKV) Delete(context.Context, string) error        { return errors.New("disk on fire") }
func (failingKV) Close() error                                { return nil }

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, WithStore(failingKV{}))

	assert.Error(t, s.Load(ctx))
	assert.Error(t, s.Save(ctx))

	// the mutation stands even when it cannot be saved
	_, err := s.AddIncome(ctx, NewTransaction{Name: "a", Amount: d("1"), Category: core.CategorySalary})
	require.NoError(t, err)
	assert.Len(t, s.Incomes(""), 1)
}

func TestPublishesChanges(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestSession(t, WithPublisher(pub))
	ctx := context.Background()

	inc, _ := s.AddIncome(ctx, NewTransaction{Name: "a", Amount: d("1"), Category: core.CategorySalary})
	name := "b"
	_, _ = s.UpdateIncome(ctx, inc.ID, TransactionPatch{Name: &name})
	_ = s.RemoveIncome(ctx, inc.ID)
	_ = s.SetSavingsGoal(ctx, d("30"))
	_ = s.ClearAll(ctx)

	assert.Equal(t, []string{"income.added", "income.updated", "income.removed", "settings.goal", "budget.cleared"}, pub.kinds())
	assert.Equal(t, inc.ID, pub.changes[0].ID)
	assert.Equal(t, "2025-01", pub.changes[0].Month)
	assert.Equal(t, amqp.TypeBudgetChanged, pub.changes[0].EventType)

	// failed validation publishes nothing
	_, _ = s.AddIncome(ctx, NewTransaction{Name: "", Amount: d("1"), Category: core.CategorySalary})
	assert.Len(t, pub.kinds(), 5)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s, _ := newTestSession(t, WithPublisher(pub))

	_, err := s.AddExpense(context.Background(), NewTransaction{Name: "a", Amount: d("1"), Category: core.CategoryFood})
	assert.NoError(t, err)
	assert.Len(t, s.Expenses(""), 1)
}

func TestRefreshRates(t *testing.T) {
	clock := core.FixedClock{T: testNow}
	ok := true
	provider := providerFunc(func(context.Context) (map[string]decimal.Decimal, error) {
		if !ok {
			return nil, rates.ErrMalformedPayload
		}
		return map[string]decimal.Decimal{"EUR": d("0.5")}, nil
	})
	pub := &recordingPublisher{}
	kv := storage.NewMemoryKV()
	s := New(rates.NewStore(provider, rates.WithClock(clock), rates.WithRetry(0, time.Millisecond)),
		WithClock(clock), WithStore(kv), WithPublisher(pub))
	ctx := context.Background()

	require.True(t, s.RefreshRatesIfStale(ctx))
	assert.True(t, s.Rates().Snapshot().Rates["EUR"].Equal(d("0.5")))
	require.Len(t, pub.rates, 1)
	assert.Equal(t, "0.5", pub.rates[0].Rates["EUR"])
	assert.True(t, pub.rates[0].UpdatedAt.Equal(testNow))

	raw, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lastRatesUpdate":"2025-01-15T09:30:00Z"`)

	// fresh rates are not refetched
	assert.False(t, s.RefreshRatesIfStale(ctx))

	ok = false
	assert.False(t, s.RefreshRates(ctx))
	assert.True(t, s.Rates().Snapshot().Rates["EUR"].Equal(d("0.5")))
	assert.Len(t, pub.rates, 1)
}

func TestConcurrentMutations(t *testing.T) {
	s := New(nil, WithClock(core.FixedClock{T: testNow}))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddIncome(ctx, NewTransaction{Name: fmt.Sprintf("n%d", i), Amount: d("1"), Category: core.CategorySalary})
			assert.NoError(t, err)
			_ = s.Summary()
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Incomes(""), 50)
	assert.True(t, s.Summary().TotalIncome.Equal(d("50")))
}
