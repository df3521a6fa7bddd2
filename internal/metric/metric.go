// Package metric holds the pure derivation primitives shared by the dashboard
// and every report kind. Each function is side-effect free and total: missing
// inputs and zero denominators produce defined values, never panics.
package metric

import (
	"time"

	"github.com/shopspring/decimal"
)

// IsOverdue reports whether the deadline has passed. A missing deadline is
// never overdue.
func IsOverdue(end *time.Time, now time.Time) bool {
	if end == nil {
		return false
	}
	return end.Before(now)
}

// DaysRemaining returns the signed whole-day count until the deadline.
// Negative values mean the deadline passed that many days ago. Fractions are
// truncated, not rounded.
func DaysRemaining(end *time.Time, now time.Time) int {
	if end == nil {
		return 0
	}
	return int(end.Sub(now).Hours() / 24)
}

// DaysElapsed returns the signed whole-day count since the start date.
func DaysElapsed(start *time.Time, now time.Time) int {
	if start == nil {
		return 0
	}
	return int(now.Sub(*start).Hours() / 24)
}

// PercentComplete returns completed/total as a percentage in [0,100].
// An empty collection yields 0, never NaN.
func PercentComplete(total, completed int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// Variance is the budget-versus-spend outcome.
type Variance struct {
	Variance    decimal.Decimal
	PercentUsed float64
	Exceeded    bool
}

// BudgetVariance compares spend against budget. A zero budget yields
// PercentUsed 0 rather than dividing; Exceeded is still true for any positive
// spend over the budget, including a zero budget.
func BudgetVariance(budget, spent decimal.Decimal) Variance {
	v := Variance{
		Variance: spent.Sub(budget),
		Exceeded: spent.GreaterThan(budget),
	}
	if budget.IsPositive() {
		v.PercentUsed = spent.Div(budget).InexactFloat64() * 100
	}
	return v
}
