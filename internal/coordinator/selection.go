package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

// This file is the selection controller: it owns the NoAccountSelected /
// AccountSelected transitions and the remote subscriptions tied to them.
// Every transition into a selection unsubscribes the previous scope first,
// reloads the working set, and recomputes, so aggregates from the old
// account never leak into the new view.

// LoadOwner loads the owner's accounts, budgets and goals from the store
// and, when nothing is selected yet, selects the first account.
func (c *Coordinator) LoadOwner(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	accounts, err := c.store.ListAccounts(ctx, c.owner)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	c.accounts = accounts

	budgets, err := c.store.ListBudgets(ctx, c.owner)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	c.budgets = budgets

	if err := c.loadGoalsLocked(ctx); err != nil {
		return err
	}

	selected := c.selected
	if selected == "" && len(c.accounts) > 0 {
		selected = c.accounts[0].ID
	}
	if selected != "" && c.accountLocked(selected).ID == "" {
		// Previously selected account no longer exists.
		selected = ""
		if len(c.accounts) > 0 {
			selected = c.accounts[0].ID
		}
	}
	return c.selectAccountLocked(ctx, selected)
}

// SetSelectedAccount switches the working scope to the given account, or
// to no account when id is empty.
func (c *Coordinator) SetSelectedAccount(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != "" && c.accountLocked(id).ID == "" {
		return fmt.Errorf("select account %s: %w", id, core.ErrMissingAccount)
	}
	return c.selectAccountLocked(ctx, id)
}

// SelectedAccountID returns the current selection, empty when none.
func (c *Coordinator) SelectedAccountID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

func (c *Coordinator) selectAccountLocked(ctx context.Context, id string) error {
	// Old listeners go first so no snapshot is ever applied to the wrong
	// account's working set.
	c.unsubscribeLocked()
	c.selected = id
	c.incomes = nil
	c.expenses = nil

	if id == "" {
		return nil
	}

	incomes, err := c.store.ListIncomes(ctx, c.owner, id)
	if err != nil {
		return fmt.Errorf("load incomes: %w", err)
	}
	expenses, err := c.store.ListExpenses(ctx, c.owner, id)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	c.incomes = make([]entry[core.Income], len(incomes))
	for i, in := range incomes {
		c.incomes[i] = entry[core.Income]{item: in, origin: RemoteConfirmed}
	}
	c.expenses = make([]entry[core.Expense], len(expenses))
	for i, ex := range expenses {
		c.expenses[i] = entry[core.Expense]{item: ex, origin: RemoteConfirmed}
	}

	c.subscribeLocked(ctx, id)

	return c.recomputeAccountLocked(ctx, id)
}

func (c *Coordinator) subscribeLocked(ctx context.Context, accountID string) {
	c.subErr = nil
	if c.bus == nil {
		return
	}

	unsubIncomes, err := c.bus.Subscribe(c.owner, accountID, core.KindIncome, c.handleIncomeSnapshot)
	if err != nil {
		c.subErr = fmt.Errorf("subscribe incomes: %w", err)
		slog.ErrorContext(ctx, "Income snapshot subscription failed",
			"account_id", accountID, "error", err)
		return
	}
	unsubExpenses, err := c.bus.Subscribe(c.owner, accountID, core.KindExpense, c.handleExpenseSnapshot)
	if err != nil {
		unsubIncomes()
		c.subErr = fmt.Errorf("subscribe expenses: %w", err)
		slog.ErrorContext(ctx, "Expense snapshot subscription failed",
			"account_id", accountID, "error", err)
		return
	}
	c.unsubIncomes = unsubIncomes
	c.unsubExpenses = unsubExpenses
}

func (c *Coordinator) unsubscribeLocked() {
	if c.unsubIncomes != nil {
		c.unsubIncomes()
		c.unsubIncomes = nil
	}
	if c.unsubExpenses != nil {
		c.unsubExpenses()
		c.unsubExpenses = nil
	}
}

// loadGoalsLocked loads the owner's savings goals and deletes duplicates
// by case-insensitive title, keeping the earliest.
func (c *Coordinator) loadGoalsLocked(ctx context.Context) error {
	goals, err := c.store.ListGoals(ctx, c.owner)
	if err != nil {
		return fmt.Errorf("list savings goals: %w", err)
	}

	seen := make(map[string]struct{}, len(goals))
	kept := goals[:0]
	for _, g := range goals {
		key := strings.ToLower(g.Title)
		if _, dup := seen[key]; dup {
			slog.WarnContext(ctx, "Deleting duplicate savings goal found at load",
				"owner", c.owner, "title", g.Title, "goal_id", g.ID)
			if err := c.store.DeleteGoal(ctx, g.ID, c.owner); err != nil {
				slog.ErrorContext(ctx, "Failed to delete duplicate savings goal",
					"goal_id", g.ID, "error", err)
			}
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, g)
	}
	c.goals = kept
	return nil
}
