package aggregate

import (
	"reflect"
	"testing"
	"time"

	"fintrack/internal/core"
)

var ref = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func date(day int) time.Time {
	return time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyIncome(t *testing.T) {
	incomes := []core.Income{
		{Amount: 100, Frequency: core.FrequencyMonthly, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: 1200, Frequency: core.FrequencyYearly, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: 50, Frequency: core.FrequencyOneTime, Date: date(3)},
		{Amount: 75, Frequency: core.FrequencyNone, Date: date(28)},
		{Amount: 999, Frequency: core.FrequencyOneTime, Date: time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)},
	}
	// 100 monthly + 100 yearly slice + 50 + 75 in-month, May income excluded.
	if got := MonthlyIncome(incomes, ref); got != 325 {
		t.Fatalf("MonthlyIncome = %v, expected 325", got)
	}
}

func TestMonthlyExpenses(t *testing.T) {
	expenses := []core.Expense{
		{Amount: 100, IsRecurring: true, Frequency: core.FrequencyMonthly, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: 120, IsRecurring: true, Frequency: core.FrequencyYearly, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: 30, Date: date(10)},
		{Amount: 500, Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
	}
	// 100 + 120/12 + 30, the July expense falls outside the month.
	if got := MonthlyExpenses(expenses, ref); got != 140 {
		t.Fatalf("MonthlyExpenses = %v, expected 140", got)
	}
}

func TestCategoryExpenses(t *testing.T) {
	expenses := []core.Expense{
		{Amount: 250.56, Category: "food", Date: date(2)},
		{Amount: 40, Category: "food", IsRecurring: true, Frequency: core.FrequencyMonthly, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: 99, Category: "transport", Date: date(2)},
	}
	if got := CategoryExpenses(expenses, "food", ref); got != 290.56 {
		t.Fatalf("CategoryExpenses(food) = %v, expected 290.56", got)
	}
	if got := CategoryExpenses(expenses, "rent", ref); got != 0 {
		t.Fatalf("CategoryExpenses(rent) = %v, expected 0", got)
	}
}

func TestBudgetProgress(t *testing.T) {
	expenses := []core.Expense{{Amount: 850, Category: "food", Date: date(5)}}
	b := core.Budget{Category: "food", BudgetAmount: 1000, Period: core.PeriodMonthly, AlertThreshold: 80}

	if got := BudgetProgress(expenses, b, ref); got != 85 {
		t.Fatalf("BudgetProgress = %v, expected 85", got)
	}

	b.BudgetAmount = 0
	if got := BudgetProgress(expenses, b, ref); got != 0 {
		t.Fatalf("zero-amount budget should report 0 progress, got %v", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		progress  float64
		threshold float64
		want      BudgetStatus
	}{
		{50, 80, StatusOnTrack},
		{79.99, 80, StatusOnTrack},
		{80, 80, StatusAlmostThere},
		{85, 80, StatusAlmostThere},
		{99.99, 80, StatusAlmostThere},
		{100, 80, StatusOverBudget},
		{150, 80, StatusOverBudget},
		{100, 120, StatusOverBudget},
	}
	for _, tc := range cases {
		if got := Classify(tc.progress, tc.threshold); got != tc.want {
			t.Errorf("Classify(%v, %v) = %q, expected %q", tc.progress, tc.threshold, got, tc.want)
		}
	}
}

func TestUpcomingBills(t *testing.T) {
	due := func(day int) *time.Time {
		d := date(day)
		return &d
	}
	expenses := []core.Expense{
		{ID: "late", IsRecurring: true, NextDueDate: due(28)},
		{ID: "soon", IsRecurring: true, NextDueDate: due(16)},
		{ID: "past", IsRecurring: true, NextDueDate: due(1)},
		{ID: "far", IsRecurring: true, NextDueDate: func() *time.Time {
			d := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
			return &d
		}()},
		{ID: "one-off", NextDueDate: due(20)},
		{ID: "no-date", IsRecurring: true},
	}

	bills := UpcomingBills(expenses, ref, 30)
	var ids []string
	for _, b := range bills {
		ids = append(ids, b.ID)
	}
	if !reflect.DeepEqual(ids, []string{"soon", "late"}) {
		t.Fatalf("expected [soon late], got %v", ids)
	}
}

func TestSummary(t *testing.T) {
	account := core.BankAccount{ID: "a", TotalIncome: 5000}
	expenses := []core.Expense{
		{Amount: 4000, Date: date(2)},
		{Amount: 2000, Date: date(20)},
	}
	budgets := []core.Budget{
		{Category: "food", BudgetAmount: 1000, Period: core.PeriodMonthly},
		{Category: "travel", BudgetAmount: 6000, Period: core.PeriodYearly},
	}

	s := Summary(expenses, budgets, account, ref)
	if s.TotalIncome != 5000 {
		t.Errorf("TotalIncome = %v, expected 5000", s.TotalIncome)
	}
	if s.TotalExpenses != 6000 {
		t.Errorf("TotalExpenses = %v, expected 6000", s.TotalExpenses)
	}
	if s.Savings != -1000 {
		t.Errorf("Savings = %v, expected -1000", s.Savings)
	}
	if s.SavingsRate != -20 {
		t.Errorf("SavingsRate = %v, expected -20", s.SavingsRate)
	}
	if s.MonthlyBudget != 1000 {
		t.Errorf("MonthlyBudget = %v, expected 1000 (yearly budgets excluded)", s.MonthlyBudget)
	}
	if s.Remaining != -5000 {
		t.Errorf("Remaining = %v, expected -5000", s.Remaining)
	}
}

func TestSummaryZeroIncome(t *testing.T) {
	s := Summary([]core.Expense{{Amount: 100, Date: date(1)}}, nil, core.BankAccount{}, ref)
	if s.SavingsRate != 0 {
		t.Fatalf("SavingsRate with zero income should be 0, got %v", s.SavingsRate)
	}
	if s.Savings != -100 {
		t.Fatalf("Savings = %v, expected -100", s.Savings)
	}
}

func TestAccountTotals(t *testing.T) {
	incomes := []core.Income{{Amount: 1000}, {Amount: 250.5}}
	expenses := []core.Expense{{Amount: 300}, {Amount: 0.5}}

	ti, te, balance := AccountTotals(incomes, expenses)
	if ti != 1250.5 || te != 300.5 {
		t.Fatalf("totals = %v/%v, expected 1250.5/300.5", ti, te)
	}
	if balance != ti-te {
		t.Fatalf("balance %v violates totalIncome-totalExpense = %v", balance, ti-te)
	}
}

func TestDeterminism(t *testing.T) {
	expenses := []core.Expense{
		{Amount: 850, Category: "food", Date: date(5)},
		{Amount: 20, Category: "food", IsRecurring: true, Frequency: core.FrequencyMonthly},
	}
	b := core.Budget{Category: "food", BudgetAmount: 1000}
	first := BudgetProgress(expenses, b, ref)
	for i := 0; i < 10; i++ {
		if got := BudgetProgress(expenses, b, ref); got != first {
			t.Fatalf("BudgetProgress changed between identical calls: %v then %v", first, got)
		}
	}
}
