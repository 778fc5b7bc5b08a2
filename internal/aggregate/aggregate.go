// Package aggregate computes derived financial views from a transaction set
// and a reference date. Every function is pure and deterministic: same
// inputs, same outputs, regardless of call order or prior state. No I/O.
package aggregate

import (
	"sort"
	"time"

	"fintrack/internal/core"
)

// FinancialSummary is the per-account numeric overview.
//
// TotalIncome is the account's running lifetime total, while TotalExpenses
// is windowed to the reference month; downstream views rely on that pairing.
type FinancialSummary struct {
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`
	Savings       float64 `json:"savings"`
	SavingsRate   float64 `json:"savingsRate"`
	MonthlyBudget float64 `json:"monthlyBudget"`
	Remaining     float64 `json:"remaining"`
}

// BudgetStatus classifies consumption of a budget relative to its alert
// threshold.
type BudgetStatus string

const (
	StatusOnTrack     BudgetStatus = "On Track"
	StatusAlmostThere BudgetStatus = "Almost There"
	StatusOverBudget  BudgetStatus = "Over Budget"
)

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthlyIncome returns the income attributable to the reference month.
// Monthly incomes count in full, yearly incomes contribute a twelfth, and
// everything else counts only when dated within the reference month.
func MonthlyIncome(incomes []core.Income, ref time.Time) float64 {
	var total float64
	for _, in := range incomes {
		switch in.Frequency {
		case core.FrequencyMonthly:
			total += in.Amount
		case core.FrequencyYearly:
			total += in.Amount / 12
		default:
			if sameMonth(in.Date, ref) {
				total += in.Amount
			}
		}
	}
	return total
}

// MonthlyExpenses returns the spend attributable to the reference month.
// Recurring-monthly expenses count in full and recurring-yearly contribute
// a twelfth; every non-recurring expense dated within the month counts.
func MonthlyExpenses(expenses []core.Expense, ref time.Time) float64 {
	var total float64
	for _, ex := range expenses {
		total += monthlyShare(ex, ref)
	}
	return total
}

func monthlyShare(ex core.Expense, ref time.Time) float64 {
	if ex.IsRecurring {
		switch ex.Frequency {
		case core.FrequencyMonthly:
			return ex.Amount
		case core.FrequencyYearly:
			return ex.Amount / 12
		}
	}
	if sameMonth(ex.Date, ref) {
		return ex.Amount
	}
	return 0
}

// CategoryExpenses applies the MonthlyExpenses policy to a single category.
func CategoryExpenses(expenses []core.Expense, category string, ref time.Time) float64 {
	var total float64
	for _, ex := range expenses {
		if ex.Category != category {
			continue
		}
		total += monthlyShare(ex, ref)
	}
	return total
}

// BudgetProgress returns the percentage of a budget consumed by the
// reference month's spend in its category. Zero-amount budgets report zero.
func BudgetProgress(expenses []core.Expense, b core.Budget, ref time.Time) float64 {
	if b.BudgetAmount == 0 {
		return 0
	}
	return CategoryExpenses(expenses, b.Category, ref) / b.BudgetAmount * 100
}

// Classify maps a progress percentage to a budget status. Progress at or
// past the alert threshold but still under 100% is "Almost There".
func Classify(progress, alertThreshold float64) BudgetStatus {
	switch {
	case progress >= 100:
		return StatusOverBudget
	case progress >= alertThreshold:
		return StatusAlmostThere
	default:
		return StatusOnTrack
	}
}

// UpcomingBills returns recurring expenses whose next due date falls within
// [now, now+horizonDays], ascending by due date.
func UpcomingBills(expenses []core.Expense, now time.Time, horizonDays int) []core.Expense {
	horizon := now.AddDate(0, 0, horizonDays)
	var due []core.Expense
	for _, ex := range expenses {
		if !ex.IsRecurring || ex.NextDueDate == nil {
			continue
		}
		d := *ex.NextDueDate
		if d.Before(now) || d.After(horizon) {
			continue
		}
		due = append(due, ex)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextDueDate.Before(*due[j].NextDueDate)
	})
	return due
}

// Summary builds the financial overview for the selected account.
//
// Total income is read from the account's authoritative running total, not
// recomputed from the month window; expenses are month-windowed.
func Summary(expenses []core.Expense, budgets []core.Budget, selected core.BankAccount, ref time.Time) FinancialSummary {
	s := FinancialSummary{
		TotalIncome:   selected.TotalIncome,
		TotalExpenses: MonthlyExpenses(expenses, ref),
	}
	s.Savings = s.TotalIncome - s.TotalExpenses
	if s.TotalIncome != 0 {
		s.SavingsRate = s.Savings / s.TotalIncome * 100
	}
	for _, b := range budgets {
		if b.Period == core.PeriodMonthly {
			s.MonthlyBudget += b.BudgetAmount
		}
	}
	s.Remaining = s.MonthlyBudget - s.TotalExpenses
	return s
}

// AccountTotals derives the lifetime totals for one account from its full
// transaction set. CurrentBalance is totalIncome minus totalExpense.
func AccountTotals(incomes []core.Income, expenses []core.Expense) (totalIncome, totalExpense, balance float64) {
	for _, in := range incomes {
		totalIncome += in.Amount
	}
	for _, ex := range expenses {
		totalExpense += ex.Amount
	}
	return totalIncome, totalExpense, totalIncome - totalExpense
}
