package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"budgetplanner/internal/core"
	"budgetplanner/internal/currency"
	"budgetplanner/internal/log"
	"budgetplanner/internal/rates"

	"github.com/google/uuid"
)

// CurrentVersion is the version written by Save.
const CurrentVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported data version")

type blob = map[string]any

// upgrades[v] turns a version v blob into version v+1.
var upgrades = map[int]func(b blob, clock core.Clock){
	0: upgradeV0,
}

// Upgrade decodes a persisted blob of any known version into the current
// shape. A blob without a version is version 0.
func Upgrade(data []byte, clock core.Clock) (*snapshot, error) {
	var b blob
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode saved data: %w", err)
	}
	if b == nil {
		return nil, errors.New("decode saved data: not an object")
	}

	version, err := blobVersion(b)
	if err != nil {
		return nil, err
	}
	if version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	for v := version; v < CurrentVersion; v++ {
		upgrades[v](b, clock)
		b["version"] = v + 1
	}

	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("re-encode saved data: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode saved data: %w", err)
	}
	normalize(&snap, clock)
	return &snap, nil
}

func blobVersion(b blob) (int, error) {
	v, ok := b["version"]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedVersion, v)
	}
	i, err := n.Int64()
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedVersion, v)
	}
	return int(i), nil
}

// upgradeV0 fills the fields that unversioned data may lack and drops the
// legacy baseCurrency field.
func upgradeV0(b blob, clock core.Clock) {
	delete(b, "baseCurrency")

	if s, _ := b["selectedMonth"].(string); s == "" {
		b["selectedMonth"] = core.CurrentMonth(clock)
	}
	if r, _ := b["exchangeRates"].(map[string]any); len(r) == 0 {
		fallback := make(map[string]any)
		for code, v := range rates.Fallback().Rates {
			fallback[code] = v.String()
		}
		b["exchangeRates"] = fallback
	}
	display, _ := b["currency"].(string)
	if display == "" {
		display = currency.Base
		b["currency"] = display
	}
	if g, ok := b["savingsGoal"]; !ok || g == nil {
		b["savingsGoal"] = DefaultSavingsGoal.String()
	}

	today := core.Today(clock)
	for _, key := range []string{"incomes", "expenses"} {
		list, _ := b[key].([]any)
		for _, item := range list {
			tx, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if s, _ := tx["date"].(string); s == "" {
				tx["date"] = dateForMonth(tx["month"], today)
			}
			if s, _ := tx["currency"].(string); s == "" {
				tx["currency"] = display
			}
		}
	}
}

// normalize enforces the invariants of the current version: settings in
// range, month keys derived from dates, and only valid transactions.
func normalize(snap *snapshot, clock core.Clock) {
	snap.Version = CurrentVersion
	logger := log.Default(log.ComponentSession)

	snap.Currency = strings.ToUpper(snap.Currency)
	if !currency.IsSupported(snap.Currency) {
		logger.Warn("Unsupported display currency in saved data, using base", log.FieldCurrency, snap.Currency)
		snap.Currency = currency.Base
	}
	if _, err := core.ParseMonth(snap.SelectedMonth); err != nil {
		snap.SelectedMonth = core.CurrentMonth(clock)
	}
	if !snap.SavingsGoal.IsPositive() {
		snap.SavingsGoal = DefaultSavingsGoal
	}

	snap.Incomes = normalizeTransactions(snap.Incomes, core.KindIncome, clock, logger)
	snap.Expenses = normalizeTransactions(snap.Expenses, core.KindExpense, clock, logger)
}

// dateForMonth returns the first day of month when month is a valid month
// key, otherwise fallback.
func dateForMonth(month any, fallback string) string {
	m, _ := month.(string)
	if _, err := core.ParseMonth(m); err != nil {
		return fallback
	}
	return m + "-01"
}

func normalizeTransactions(in []core.Transaction, kind core.Kind, clock core.Clock, logger *log.Logger) []core.Transaction {
	out := make([]core.Transaction, 0, len(in))
	for _, t := range in {
		t.Kind = kind
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.Currency = strings.ToUpper(t.Currency)
		if err := t.SetDate(t.Date); err != nil {
			date := dateForMonth(t.Month, core.Today(clock))
			logger.Warn("Invalid date in saved transaction, replacing it",
				log.FieldTransactionID, t.ID, log.FieldDate, t.Date, "replacement", date)
			_ = t.SetDate(date)
		}
		if err := t.Validate(); err != nil {
			logger.Warn("Dropping invalid saved transaction",
				log.FieldTransactionID, t.ID, log.FieldKind, kind, log.FieldError, err)
			continue
		}
		t.Kind = ""
		out = append(out, t)
	}
	return out
}
