package coordinator

import (
	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

// State is the read-only snapshot published to the presentation layer.
// Slices and pointers are copies; mutating them never touches the working
// set. Budget progress is derived on every publish, never stored.
type State struct {
	BankAccounts             []core.BankAccount                `json:"bankAccounts"`
	SelectedBankAccount      *core.BankAccount                 `json:"selectedBankAccount,omitempty"`
	Incomes                  []core.Income                     `json:"incomes"`
	Expenses                 []core.Expense                    `json:"expenses"`
	Budgets                  []core.Budget                     `json:"budgets"`
	SavingsGoals             []core.SavingsGoal                `json:"savingsGoals"`
	BudgetProgressByBudgetID map[string]float64                `json:"budgetProgressByBudgetId"`
	BudgetStatusByBudgetID   map[string]aggregate.BudgetStatus `json:"budgetStatusByBudgetId"`
	SubscriptionError        string                            `json:"subscriptionError,omitempty"`
}

// State returns the published view of the working set.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		BankAccounts:             append([]core.BankAccount(nil), c.accounts...),
		Incomes:                  c.workingIncomesLocked(),
		Budgets:                  append([]core.Budget(nil), c.budgets...),
		SavingsGoals:             append([]core.SavingsGoal(nil), c.goals...),
		BudgetProgressByBudgetID: make(map[string]float64, len(c.budgets)),
		BudgetStatusByBudgetID:   make(map[string]aggregate.BudgetStatus, len(c.budgets)),
	}

	s.Expenses = make([]core.Expense, len(c.expenses))
	for i, e := range c.expenses {
		ex := e.item
		if ex.NextDueDate != nil {
			due := *ex.NextDueDate
			ex.NextDueDate = &due
		}
		s.Expenses[i] = ex
	}

	if c.selected != "" {
		account := c.accountLocked(c.selected)
		s.SelectedBankAccount = &account
	}

	ref := c.now()
	for _, b := range c.budgets {
		progress := aggregate.BudgetProgress(s.Expenses, b, ref)
		s.BudgetProgressByBudgetID[b.ID] = progress
		s.BudgetStatusByBudgetID[b.ID] = aggregate.Classify(progress, b.AlertThreshold)
	}

	if c.subErr != nil {
		s.SubscriptionError = c.subErr.Error()
	}
	return s
}

// Summary returns the financial overview for the selected account, or the
// zero summary when no account is selected.
func (c *Coordinator) Summary() aggregate.FinancialSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == "" {
		return aggregate.FinancialSummary{}
	}
	return aggregate.Summary(c.workingExpensesLocked(), c.budgets, c.accountLocked(c.selected), c.now())
}

// UpcomingBills returns the selected account's recurring expenses due
// within the horizon, soonest first.
func (c *Coordinator) UpcomingBills(horizonDays int) []core.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return aggregate.UpcomingBills(c.workingExpensesLocked(), c.now(), horizonDays)
}
