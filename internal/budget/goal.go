package budget

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

var (
	exceedMargin     = decimal.NewFromInt(10)
	almostThreshold  = decimal.NewFromInt(75)
	halfwayThreshold = decimal.NewFromInt(50)
)

// GoalStatus is the qualitative result of comparing a savings rate to a goal.
type GoalStatus struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// EvaluateGoal compares savingsRate to savingsGoal, both percentages. The first
// matching rule wins:
//
//  1. rate at least goal+10: success, exceeding
//  2. rate at least goal: success, target hit
//  3. rate at least 75% of goal: warning, almost there
//  4. rate at least 50% of goal: warning, halfway
//  5. positive rate: danger, below goal
//  6. negative rate: danger, over budget
//  7. zero rate: danger, start saving
//
// A goal that is not positive makes the share of goal 0, so such a goal is
// met by any non-negative rate.
func EvaluateGoal(savingsRate, savingsGoal decimal.Decimal) GoalStatus {
	if savingsRate.GreaterThanOrEqual(savingsGoal) {
		surplus := savingsRate.Sub(savingsGoal)
		if surplus.GreaterThanOrEqual(exceedMargin) {
			return GoalStatus{
				Message:  fmt.Sprintf("Excellent! You're exceeding your goal by %s%%. Keep up the amazing work!", surplus.StringFixed(1)),
				Severity: SeveritySuccess,
			}
		}
		return GoalStatus{
			Message:  fmt.Sprintf("Great job! You've hit your %s%% savings target this month!", savingsGoal.String()),
			Severity: SeveritySuccess,
		}
	}

	share := percentageOfGoal(savingsRate, savingsGoal)
	switch {
	case share.GreaterThanOrEqual(almostThreshold):
		return GoalStatus{
			Message:  fmt.Sprintf("Almost there! You need just %s%% more to reach your goal.", savingsGoal.Sub(savingsRate).StringFixed(1)),
			Severity: SeverityWarning,
		}
	case share.GreaterThanOrEqual(halfwayThreshold):
		return GoalStatus{
			Message:  "You're halfway to your goal. Consider reducing some expenses.",
			Severity: SeverityWarning,
		}
	case savingsRate.IsPositive():
		return GoalStatus{
			Message:  fmt.Sprintf("You're saving %s%%, but your goal is %s%%. Review your spending.", savingsRate.StringFixed(1), savingsGoal.String()),
			Severity: SeverityDanger,
		}
	case savingsRate.IsNegative():
		return GoalStatus{
			Message:  fmt.Sprintf("Warning: You're spending more than you earn! You're %s%% over budget.", savingsRate.Abs().StringFixed(1)),
			Severity: SeverityDanger,
		}
	}
	return GoalStatus{
		Message:  fmt.Sprintf("Start saving to work towards your %s%% goal.", savingsGoal.String()),
		Severity: SeverityDanger,
	}
}

func percentageOfGoal(rate, goal decimal.Decimal) decimal.Decimal {
	if !goal.IsPositive() {
		return decimal.Zero
	}
	return rate.Div(goal).Mul(hundred)
}

// Progress describes how far the month's savings are from the goal.
type Progress struct {
	// Percent is the savings rate as a share of the goal, capped at 100.
	Percent       decimal.Decimal `json:"percent"`
	OnTrack       bool            `json:"onTrack"`
	Difference    decimal.Decimal `json:"difference"`
	TargetSavings decimal.Decimal `json:"targetSavings"`
	ActualSavings decimal.Decimal `json:"actualSavings"`
}

// GoalProgress derives goal progress from a summary. Without income the
// progress is 0.
func GoalProgress(s Summary, savingsGoal decimal.Decimal) Progress {
	p := Progress{
		Percent:       decimal.Zero,
		OnTrack:       s.SavingsRate.GreaterThanOrEqual(savingsGoal),
		Difference:    s.SavingsRate.Sub(savingsGoal),
		TargetSavings: s.TotalIncome.Mul(savingsGoal).Div(hundred),
		ActualSavings: s.TotalSavings,
	}
	if s.TotalIncome.IsPositive() {
		p.Percent = decimal.Min(percentageOfGoal(s.SavingsRate, savingsGoal), hundred)
		if p.Percent.IsNegative() {
			p.Percent = decimal.Zero
		}
	}
	return p
}
