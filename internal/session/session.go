// Package session owns the budget state of the single local user: incomes,
// expenses and settings. It persists the state to a key-value store after
// every change and answers summary queries against the current rates.
package session

import (
	"context"
	"sync"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/core"
	"budgetplanner/internal/currency"
	"budgetplanner/internal/log"
	"budgetplanner/internal/rates"
	"budgetplanner/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultSavingsGoal is the goal percentage of a fresh session.
var DefaultSavingsGoal = decimal.NewFromInt(20)

// Publisher receives change events. *amqp.Client implements it.
type Publisher interface {
	PublishBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error
	PublishRatesRefreshed(ctx context.Context, msg *amqp.RatesRefreshedMessage) error
}

type Session struct {
	mu sync.RWMutex

	clock  core.Clock
	rates  *rates.Store
	kv     storage.KV
	pub    Publisher
	newID  func() string
	logger *log.Logger
	events *log.StructuredLogger

	userName *string
	incomes  []core.Transaction
	expenses []core.Transaction
	settings core.Settings
}

type Option func(*Session)

func WithClock(c core.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithStore persists the session to kv. Without it nothing is saved.
func WithStore(kv storage.KV) Option {
	return func(s *Session) { s.kv = kv }
}

// WithPublisher sends change events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Session) { s.pub = p }
}

// WithIDGenerator replaces the UUID generator for new transactions.
func WithIDGenerator(f func() string) Option {
	return func(s *Session) { s.newID = f }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l.WithComponent(log.ComponentSession) }
}

// New returns an empty session using rs for conversions. A nil rs gets a
// store without a provider, i.e. the fallback rates.
func New(rs *rates.Store, opts ...Option) *Session {
	s := &Session{
		clock:  core.SystemClock{},
		rates:  rs,
		newID:  uuid.NewString,
		logger: log.Default(log.ComponentSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rates == nil {
		s.rates = rates.NewStore(nil, rates.WithClock(s.clock))
	}
	s.events = log.NewStructuredLogger(s.logger)
	s.reset()
	return s
}

// reset restores the initial state. Callers hold mu or own s exclusively.
func (s *Session) reset() {
	s.userName = nil
	s.incomes = nil
	s.expenses = nil
	s.settings = core.Settings{
		SavingsGoal:   DefaultSavingsGoal,
		Currency:      currency.Base,
		SelectedMonth: core.CurrentMonth(s.clock),
	}
}

// Rates returns the exchange rate store the session converts with.
func (s *Session) Rates() *rates.Store {
	return s.rates
}

func (s *Session) Settings() core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UserName returns the display name, or "" when none was set.
func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userName == nil {
		return ""
	}
	return *s.userName
}

// state is a consistent copy of the transactions and settings for lock-free
// computation.
type state struct {
	incomes  []core.Transaction
	expenses []core.Transaction
	settings core.Settings
}

func (s *Session) copyState() state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return state{
		incomes:  append([]core.Transaction(nil), s.incomes...),
		expenses: append([]core.Transaction(nil), s.expenses...),
		settings: s.settings,
	}
}

func (s *Session) list(kind core.Kind) *[]core.Transaction {
	if kind == core.KindIncome {
		return &s.incomes
	}
	return &s.expenses
}
