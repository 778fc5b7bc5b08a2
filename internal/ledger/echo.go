package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

// Echoing decorates a Store so that every durable income or expense write
// re-emits the account's full collection as a snapshot on the bus. This is
// the remote store's echo: the coordinator's optimistic state is confirmed
// or corrected by the snapshot that follows its own persist call.
type Echoing struct {
	Store
	bus remote.Bus
}

// NewEchoing wraps store; a nil bus disables echoing.
func NewEchoing(store Store, bus remote.Bus) *Echoing {
	return &Echoing{Store: store, bus: bus}
}

func (e *Echoing) SaveIncome(ctx context.Context, in core.Income) error {
	if err := e.Store.SaveIncome(ctx, in); err != nil {
		return err
	}
	e.echoIncomes(ctx, in.Owner, in.BankAccountID)
	return nil
}

func (e *Echoing) DeleteIncome(ctx context.Context, id, owner string) error {
	accountID, err := e.incomeAccount(ctx, id, owner)
	if err != nil {
		return err
	}
	if err := e.Store.DeleteIncome(ctx, id, owner); err != nil {
		return err
	}
	e.echoIncomes(ctx, owner, accountID)
	return nil
}

func (e *Echoing) SaveExpense(ctx context.Context, ex core.Expense) error {
	if err := e.Store.SaveExpense(ctx, ex); err != nil {
		return err
	}
	e.echoExpenses(ctx, ex.Owner, ex.BankAccountID)
	return nil
}

func (e *Echoing) DeleteExpense(ctx context.Context, id, owner string) error {
	accountID, err := e.expenseAccount(ctx, id, owner)
	if err != nil {
		return err
	}
	if err := e.Store.DeleteExpense(ctx, id, owner); err != nil {
		return err
	}
	e.echoExpenses(ctx, owner, accountID)
	return nil
}

func (e *Echoing) incomeAccount(ctx context.Context, id, owner string) (string, error) {
	items, err := e.Store.ListIncomes(ctx, owner, "")
	if err != nil {
		return "", fmt.Errorf("resolve income account: %w", err)
	}
	for _, in := range items {
		if in.ID == id {
			return in.BankAccountID, nil
		}
	}
	return "", ErrNotFound
}

func (e *Echoing) expenseAccount(ctx context.Context, id, owner string) (string, error) {
	items, err := e.Store.ListExpenses(ctx, owner, "")
	if err != nil {
		return "", fmt.Errorf("resolve expense account: %w", err)
	}
	for _, ex := range items {
		if ex.ID == id {
			return ex.BankAccountID, nil
		}
	}
	return "", ErrNotFound
}

// Echo failures are logged, not returned: the durable write already
// succeeded, and a missed snapshot only delays convergence until the next
// one for the same collection.
func (e *Echoing) echoIncomes(ctx context.Context, owner, accountID string) {
	if e.bus == nil {
		return
	}
	items, err := e.Store.ListIncomes(ctx, owner, accountID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read incomes for snapshot echo",
			"owner", owner, "account_id", accountID, "error", err)
		return
	}
	snap, err := remote.NewIncomeSnapshot(owner, accountID, items)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode income snapshot", "error", err)
		return
	}
	if err := e.bus.PublishSnapshot(ctx, snap); err != nil {
		slog.ErrorContext(ctx, "Failed to publish income snapshot",
			"owner", owner, "account_id", accountID, "error", err)
	}
}

func (e *Echoing) echoExpenses(ctx context.Context, owner, accountID string) {
	if e.bus == nil {
		return
	}
	items, err := e.Store.ListExpenses(ctx, owner, accountID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read expenses for snapshot echo",
			"owner", owner, "account_id", accountID, "error", err)
		return
	}
	snap, err := remote.NewExpenseSnapshot(owner, accountID, items)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode expense snapshot", "error", err)
		return
	}
	if err := e.bus.PublishSnapshot(ctx, snap); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense snapshot",
			"owner", owner, "account_id", accountID, "error", err)
	}
}
