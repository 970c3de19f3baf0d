package rates

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"budgetplanner/internal/core"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Store holds the current rate table. Refresh swaps in a whole new table, so
// readers always see either the previous or the refreshed rates.
type Store struct {
	table    atomic.Pointer[Table]
	provider Provider
	clock    core.Clock
	group    singleflight.Group

	staleAfter time.Duration
	maxRetries uint64
	backoff    time.Duration
}

type Option func(*Store)

// WithClock sets the clock used to stamp refreshes and check staleness.
func WithClock(c core.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithStaleAfter sets the maximum table age before IsStale reports true.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithRetry sets how many times a transient fetch failure is retried and the
// base delay of the exponential backoff between attempts.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(s *Store) {
		if maxRetries >= 0 {
			s.maxRetries = uint64(maxRetries)
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

// NewStore returns a store seeded with the fallback table. provider may be
// nil, in which case Refresh always fails and the fallback rates stay.
func NewStore(provider Provider, opts ...Option) *Store {
	s := &Store{
		provider:   provider,
		clock:      core.SystemClock{},
		staleAfter: DefaultStaleAfter,
		maxRetries: 2,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.table.Store(Fallback())
	return s
}

// Snapshot returns the current table. Callers must not modify it.
func (s *Store) Snapshot() *Table {
	return s.table.Load()
}

// Replace installs t, e.g. rates restored from persisted state.
func (s *Store) Replace(t *Table) {
	if t == nil {
		t = Fallback()
	}
	s.table.Store(Normalize(t.Rates, t.UpdatedAt))
}

// Rate returns the current rate for code.
func (s *Store) Rate(code string) (decimal.Decimal, error) {
	return s.Snapshot().Rate(code)
}

// Convert converts amount using the current table.
func (s *Store) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	return s.Snapshot().Convert(amount, from, to)
}

// IsStale reports whether a refresh is due at now.
func (s *Store) IsStale(now time.Time) bool {
	return s.Snapshot().IsStale(now, s.staleAfter)
}

// Refresh fetches new rates and installs them. Any failure is logged and
// leaves the current table untouched; it reports whether new rates were
// installed. Concurrent calls share a single fetch.
func (s *Store) Refresh(ctx context.Context) bool {
	v, _, _ := s.group.Do("refresh", func() (any, error) {
		return s.refresh(ctx), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (s *Store) refresh(ctx context.Context) bool {
	if s.provider == nil {
		slog.WarnContext(ctx, "No rates provider configured, keeping current rates")
		return false
	}

	var fetched map[string]decimal.Decimal
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := s.provider.Fetch(ctx)
		if err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		fetched = r
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Exchange rate refresh failed, keeping current rates", "error", err)
		return false
	}

	next := s.Snapshot().withFetched(fetched, s.clock.Now())
	s.table.Store(next)
	slog.InfoContext(ctx, "Exchange rates refreshed", "currencies", len(next.Rates))
	return true
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformedPayload) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
