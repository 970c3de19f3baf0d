package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Income categories.
const (
	CategorySalary     Category = "salary"
	CategoryFreelance  Category = "freelance"
	CategoryInvestment Category = "investment"
)

// Expense categories.
const (
	CategoryHousing        Category = "housing"
	CategoryTransportation Category = "transportation"
	CategoryFood           Category = "food"
	CategoryUtilities      Category = "utilities"
	CategoryHealthcare     Category = "healthcare"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryEducation      Category = "education"
	CategorySavings        Category = "savings"
	CategoryDebt           Category = "debt"
)

// CategoryOther is valid for both incomes and expenses.
const CategoryOther Category = "other"

const maxNameLength = 200

type (
	Kind string

	Category string

	// Transaction is a single income or expense record. Amount is denominated
	// in Currency, the currency the record was entered in.
	Transaction struct {
		ID       string          `json:"id"`
		Kind     Kind            `json:"kind,omitempty"`
		Name     string          `json:"name"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		Category Category        `json:"category"`
		Date     string          `json:"date"`
		Month    string          `json:"month"`
	}

	// Settings holds the per-session budget preferences.
	Settings struct {
		SavingsGoal   decimal.Decimal `json:"savingsGoal"`
		Currency      string          `json:"currency"`
		SelectedMonth string          `json:"selectedMonth"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long (max 200 characters)")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidGoal     = errors.New("invalid savings goal")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrNotFound        = errors.New("transaction not found")
)

// IncomeCategories lists income categories in display order.
var IncomeCategories = []Category{
	CategorySalary,
	CategoryFreelance,
	CategoryInvestment,
	CategoryOther,
}

// ExpenseCategories lists expense categories in display order.
var ExpenseCategories = []Category{
	CategoryHousing,
	CategoryTransportation,
	CategoryFood,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryEntertainment,
	CategoryShopping,
	CategoryEducation,
	CategorySavings,
	CategoryDebt,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategorySalary:         "Salary",
	CategoryFreelance:      "Freelance",
	CategoryInvestment:     "Investment",
	CategoryHousing:        "Housing",
	CategoryTransportation: "Transportation",
	CategoryFood:           "Food & Dining",
	CategoryUtilities:      "Utilities",
	CategoryHealthcare:     "Healthcare",
	CategoryEntertainment:  "Entertainment",
	CategoryShopping:       "Shopping",
	CategoryEducation:      "Education",
	CategorySavings:        "Savings",
	CategoryDebt:           "Debt Payments",
	CategoryOther:          "Other",
}

// Label returns the human readable name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Categories returns the fixed category set for the kind.
func (k Kind) Categories() []Category {
	switch k {
	case KindIncome:
		return IncomeCategories
	case KindExpense:
		return ExpenseCategories
	}
	return nil
}

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Allows reports whether c belongs to the category set of kind k.
func (k Kind) Allows(c Category) bool {
	for _, v := range k.Categories() {
		if v == c {
			return true
		}
	}
	return false
}

// SetDate changes the transaction date and re-derives the month key.
func (t *Transaction) SetDate(date string) error {
	month, err := MonthOf(date)
	if err != nil {
		return err
	}
	t.Date = date
	t.Month = month
	return nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Kind.Allows(t.Category) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidCategory, t.Category, t.Kind)
	}
	month, err := MonthOf(t.Date)
	if err != nil {
		return err
	}
	if t.Month != month {
		return fmt.Errorf("%w: month %q does not match date %q", ErrInvalidMonth, t.Month, t.Date)
	}
	if strings.TrimSpace(t.Currency) == "" {
		return ErrUnknownCurrency
	}
	return nil
}

func (s Settings) Validate() error {
	if !s.SavingsGoal.IsPositive() {
		return ErrInvalidGoal
	}
	if _, err := ParseMonth(s.SelectedMonth); err != nil {
		return err
	}
	if strings.TrimSpace(s.Currency) == "" {
		return ErrUnknownCurrency
	}
	return nil
}
