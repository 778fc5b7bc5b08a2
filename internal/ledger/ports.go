// Package ledger defines the ports of the durable Ledger Store: raw
// entities keyed by id and scoped by owner, with create-or-replace
// semantics. Implementations live in the memory and sqlite subpackages.
package ledger

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

// ErrNotFound is returned when a delete or lookup misses.
var ErrNotFound = errors.New("entity not found")

type (
	AccountStore interface {
		SaveAccount(ctx context.Context, a core.BankAccount) error
		DeleteAccount(ctx context.Context, id, owner string) error
		ListAccounts(ctx context.Context, owner string) ([]core.BankAccount, error)
	}

	// TransactionStore persists incomes and expenses. List calls take an
	// optional account scope; an empty accountID returns the owner's full
	// collection.
	TransactionStore interface {
		SaveIncome(ctx context.Context, in core.Income) error
		DeleteIncome(ctx context.Context, id, owner string) error
		ListIncomes(ctx context.Context, owner, accountID string) ([]core.Income, error)

		SaveExpense(ctx context.Context, ex core.Expense) error
		DeleteExpense(ctx context.Context, id, owner string) error
		ListExpenses(ctx context.Context, owner, accountID string) ([]core.Expense, error)
	}

	BudgetStore interface {
		SaveBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id, owner string) error
		ListBudgets(ctx context.Context, owner string) ([]core.Budget, error)
	}

	GoalStore interface {
		SaveGoal(ctx context.Context, g core.SavingsGoal) error
		DeleteGoal(ctx context.Context, id, owner string) error
		ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error)
	}

	// Store is the full Ledger Store surface the coordinator works against.
	Store interface {
		AccountStore
		TransactionStore
		BudgetStore
		GoalStore
	}
)
