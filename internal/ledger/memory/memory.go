// Package memory provides an in-memory Ledger Store. It is the default
// backend for local runs and the store used throughout the tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type Store struct {
	mu       sync.Mutex
	accounts map[string]core.BankAccount
	incomes  map[string]core.Income
	expenses map[string]core.Expense
	budgets  map[string]core.Budget
	goals    map[string]core.SavingsGoal
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts: make(map[string]core.BankAccount),
		incomes:  make(map[string]core.Income),
		expenses: make(map[string]core.Expense),
		budgets:  make(map[string]core.Budget),
		goals:    make(map[string]core.SavingsGoal),
	}
}

func (s *Store) SaveAccount(_ context.Context, a core.BankAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.Owner != owner {
		return ledger.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) ListAccounts(_ context.Context, owner string) ([]core.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BankAccount
	for _, a := range s.accounts {
		if a.Owner == owner {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) SaveIncome(_ context.Context, in core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes[in.ID] = in
	return nil
}

func (s *Store) DeleteIncome(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.incomes[id]
	if !ok || in.Owner != owner {
		return ledger.ErrNotFound
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) ListIncomes(_ context.Context, owner, accountID string) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Income
	for _, in := range s.incomes {
		if in.Owner != owner {
			continue
		}
		if accountID != "" && in.BankAccountID != accountID {
			continue
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Store) SaveExpense(_ context.Context, ex core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[ex.ID] = ex
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.expenses[id]
	if !ok || ex.Owner != owner {
		return ledger.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, owner, accountID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, ex := range s.expenses {
		if ex.Owner != owner {
			continue
		}
		if accountID != "" && ex.BankAccountID != accountID {
			continue
		}
		// Copies out: mutating a listed expense must not touch the store.
		if ex.NextDueDate != nil {
			due := *ex.NextDueDate
			ex.NextDueDate = &due
		}
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Store) SaveBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.Owner != owner {
		return ledger.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, owner string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.Owner == owner {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveGoal(_ context.Context, g core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.ID] = g
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.Owner != owner {
		return ledger.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) ListGoals(_ context.Context, owner string) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.SavingsGoal
	for _, g := range s.goals {
		if g.Owner == owner {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
