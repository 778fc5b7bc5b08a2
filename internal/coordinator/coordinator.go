// Package coordinator keeps derived aggregates consistent with the raw
// transaction set across two update channels: synchronous local mutations
// and asynchronous full-collection snapshots from the remote store.
//
// One Coordinator is constructed per authenticated session and owns the
// in-memory working set for the currently selected bank account. A single
// mutex serializes every public operation and every snapshot delivery, so
// each handler runs start-to-finish against a stable working set.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/remote"
)

// Origin tags a working-set entry with the channel that produced it.
type Origin int

const (
	// LocalPending marks an optimistic local mutation that the remote
	// echo has not confirmed yet.
	LocalPending Origin = iota
	// RemoteConfirmed marks state delivered by a remote snapshot.
	RemoteConfirmed
)

type entry[T any] struct {
	item   T
	origin Origin
}

type Coordinator struct {
	mu    sync.Mutex
	owner string
	store ledger.Store
	bus   remote.Bus
	now   func() time.Time

	accounts []core.BankAccount
	selected string // selected account id, "" = none
	incomes  []entry[core.Income]
	expenses []entry[core.Expense]
	budgets  []core.Budget
	goals    []core.SavingsGoal

	unsubIncomes  remote.Unsubscribe
	unsubExpenses remote.Unsubscribe
	subErr        error
}

type Option func(*Coordinator)

// WithClock overrides the reference-date source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New builds a coordinator for one owner. A nil bus disables the remote
// channel; aggregates then depend on local mutations alone.
func New(owner string, store ledger.Store, bus remote.Bus, opts ...Option) *Coordinator {
	c := &Coordinator{
		owner: owner,
		store: store,
		bus:   bus,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Owner returns the session principal this coordinator serves.
func (c *Coordinator) Owner() string {
	return c.owner
}

// Close tears down the remote subscriptions.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribeLocked()
}

// --- bank accounts ---

// AddBankAccount creates an account, seeds the synthetic "Initial Balance"
// income equal to its starting balance, and selects it. The seeding is the
// mechanism that makes TotalIncome include the starting balance.
func (c *Coordinator) AddBankAccount(ctx context.Context, name string, startingBalance float64) (core.BankAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	account := core.BankAccount{
		ID:              core.NewID(),
		Owner:           c.owner,
		Name:            name,
		CreatedAt:       c.now().UTC(),
		StartingBalance: core.RoundAmount(startingBalance),
	}
	if err := account.Validate(); err != nil {
		return core.BankAccount{}, err
	}
	if err := c.store.SaveAccount(ctx, account); err != nil {
		return core.BankAccount{}, fmt.Errorf("persist bank account: %w", err)
	}
	prevSelected := c.selected
	c.accounts = append(c.accounts, account)

	if err := c.selectAccountLocked(ctx, account.ID); err != nil {
		c.rollbackAccountLocked(ctx, account.ID, prevSelected)
		return core.BankAccount{}, err
	}

	seed := core.Income{
		ID:            core.NewID(),
		Owner:         c.owner,
		BankAccountID: account.ID,
		Amount:        account.StartingBalance,
		Date:          account.CreatedAt,
		Source:        core.InitialBalanceSource,
		Frequency:     core.FrequencyOneTime,
	}
	if err := c.addIncomeLocked(ctx, seed); err != nil {
		c.rollbackAccountLocked(ctx, account.ID, prevSelected)
		return core.BankAccount{}, fmt.Errorf("seed initial balance: %w", err)
	}

	return c.accountLocked(account.ID), nil
}

// rollbackAccountLocked undoes a half-created account: the durable copy is
// removed and the previous selection restored, so a failed creation never
// leaves an account whose totals exclude its starting balance.
func (c *Coordinator) rollbackAccountLocked(ctx context.Context, id, prevSelected string) {
	if err := c.store.DeleteAccount(ctx, id, c.owner); err != nil {
		slog.WarnContext(ctx, "Failed to remove half-created bank account",
			"account_id", id, "error", err)
	}
	for i, a := range c.accounts {
		if a.ID == id {
			c.accounts = append(c.accounts[:i], c.accounts[i+1:]...)
			break
		}
	}
	if err := c.selectAccountLocked(ctx, prevSelected); err != nil {
		slog.WarnContext(ctx, "Failed to restore previous selection",
			"account_id", prevSelected, "error", err)
	}
}

// DeleteBankAccount removes an account. When the selected account goes
// away the next remaining one is selected, or none.
func (c *Coordinator) DeleteBankAccount(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteAccount(ctx, id, c.owner); err != nil {
		return fmt.Errorf("delete bank account: %w", err)
	}
	for i, a := range c.accounts {
		if a.ID == id {
			c.accounts = append(c.accounts[:i], c.accounts[i+1:]...)
			break
		}
	}
	if c.selected == id {
		next := ""
		if len(c.accounts) > 0 {
			next = c.accounts[0].ID
		}
		return c.selectAccountLocked(ctx, next)
	}
	return nil
}

// --- incomes ---

func (c *Coordinator) AddIncome(ctx context.Context, in core.Income) (core.Income, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	in.ID = core.NewID()
	if err := c.addIncomeLocked(ctx, in); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

func (c *Coordinator) addIncomeLocked(ctx context.Context, in core.Income) error {
	var err error
	if in, err = c.prepareIncomeLocked(in); err != nil {
		return err
	}
	// Persist first: a failed store call leaves the working set untouched.
	if err := c.store.SaveIncome(ctx, in); err != nil {
		return fmt.Errorf("persist income: %w", err)
	}
	if in.BankAccountID == c.selected {
		c.incomes = append(c.incomes, entry[core.Income]{item: in, origin: LocalPending})
	}
	return c.recomputeAccountLocked(ctx, in.BankAccountID)
}

func (c *Coordinator) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if in, err = c.prepareIncomeLocked(in); err != nil {
		return core.Income{}, err
	}
	if err := c.store.SaveIncome(ctx, in); err != nil {
		return core.Income{}, fmt.Errorf("persist income: %w", err)
	}
	if in.BankAccountID == c.selected {
		replaced := false
		for i := range c.incomes {
			if c.incomes[i].item.ID == in.ID {
				c.incomes[i] = entry[core.Income]{item: in, origin: LocalPending}
				replaced = true
				break
			}
		}
		if !replaced {
			c.incomes = append(c.incomes, entry[core.Income]{item: in, origin: LocalPending})
		}
	}
	if err := c.recomputeAccountLocked(ctx, in.BankAccountID); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

func (c *Coordinator) DeleteIncome(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	accountID, err := c.incomeAccountLocked(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.DeleteIncome(ctx, id, c.owner); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	for i := range c.incomes {
		if c.incomes[i].item.ID == id {
			c.incomes = append(c.incomes[:i], c.incomes[i+1:]...)
			break
		}
	}
	return c.recomputeAccountLocked(ctx, accountID)
}

// incomeAccountLocked resolves which account a stored income belongs to, so
// deletes on a non-selected account still recompute that account's totals.
func (c *Coordinator) incomeAccountLocked(ctx context.Context, id string) (string, error) {
	for _, e := range c.incomes {
		if e.item.ID == id {
			return e.item.BankAccountID, nil
		}
	}
	items, err := c.store.ListIncomes(ctx, c.owner, "")
	if err != nil {
		return "", fmt.Errorf("resolve income account: %w", err)
	}
	for _, in := range items {
		if in.ID == id {
			return in.BankAccountID, nil
		}
	}
	return "", ledger.ErrNotFound
}

func (c *Coordinator) prepareIncomeLocked(in core.Income) (core.Income, error) {
	in.Owner = c.owner
	in.Amount = core.RoundAmount(in.Amount)
	if in.BankAccountID == "" {
		in.BankAccountID = c.selected
	}
	if in.Frequency == "" {
		in.Frequency = core.FrequencyNone
	}
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

// --- expenses ---

func (c *Coordinator) AddExpense(ctx context.Context, ex core.Expense) (core.Expense, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	ex.ID = core.NewID()
	if ex, err = c.prepareExpenseLocked(ex); err != nil {
		return core.Expense{}, err
	}
	if err := c.store.SaveExpense(ctx, ex); err != nil {
		return core.Expense{}, fmt.Errorf("persist expense: %w", err)
	}
	if ex.BankAccountID == c.selected {
		c.expenses = append(c.expenses, entry[core.Expense]{item: ex, origin: LocalPending})
	}
	if err := c.recomputeAccountLocked(ctx, ex.BankAccountID); err != nil {
		return core.Expense{}, err
	}
	return ex, nil
}

func (c *Coordinator) UpdateExpense(ctx context.Context, ex core.Expense) (core.Expense, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if ex, err = c.prepareExpenseLocked(ex); err != nil {
		return core.Expense{}, err
	}
	if err := c.store.SaveExpense(ctx, ex); err != nil {
		return core.Expense{}, fmt.Errorf("persist expense: %w", err)
	}
	if ex.BankAccountID == c.selected {
		replaced := false
		for i := range c.expenses {
			if c.expenses[i].item.ID == ex.ID {
				c.expenses[i] = entry[core.Expense]{item: ex, origin: LocalPending}
				replaced = true
				break
			}
		}
		if !replaced {
			c.expenses = append(c.expenses, entry[core.Expense]{item: ex, origin: LocalPending})
		}
	}
	if err := c.recomputeAccountLocked(ctx, ex.BankAccountID); err != nil {
		return core.Expense{}, err
	}
	return ex, nil
}

func (c *Coordinator) DeleteExpense(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	accountID, err := c.expenseAccountLocked(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.DeleteExpense(ctx, id, c.owner); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	for i := range c.expenses {
		if c.expenses[i].item.ID == id {
			c.expenses = append(c.expenses[:i], c.expenses[i+1:]...)
			break
		}
	}
	return c.recomputeAccountLocked(ctx, accountID)
}

func (c *Coordinator) expenseAccountLocked(ctx context.Context, id string) (string, error) {
	for _, e := range c.expenses {
		if e.item.ID == id {
			return e.item.BankAccountID, nil
		}
	}
	items, err := c.store.ListExpenses(ctx, c.owner, "")
	if err != nil {
		return "", fmt.Errorf("resolve expense account: %w", err)
	}
	for _, ex := range items {
		if ex.ID == id {
			return ex.BankAccountID, nil
		}
	}
	return "", ledger.ErrNotFound
}

func (c *Coordinator) prepareExpenseLocked(ex core.Expense) (core.Expense, error) {
	ex.Owner = c.owner
	ex.Amount = core.RoundAmount(ex.Amount)
	if ex.BankAccountID == "" {
		ex.BankAccountID = c.selected
	}
	if ex.Frequency == "" {
		ex.Frequency = core.FrequencyNone
	}
	if err := ex.Validate(); err != nil {
		return core.Expense{}, err
	}
	return ex, nil
}

// --- budgets ---

func (c *Coordinator) AddBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b.ID = core.NewID()
	b.Owner = c.owner
	b.BudgetAmount = core.RoundAmount(b.BudgetAmount)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := c.store.SaveBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("persist budget: %w", err)
	}
	c.budgets = append(c.budgets, b)
	return b, nil
}

func (c *Coordinator) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b.Owner = c.owner
	b.BudgetAmount = core.RoundAmount(b.BudgetAmount)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := c.store.SaveBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("persist budget: %w", err)
	}
	for i := range c.budgets {
		if c.budgets[i].ID == b.ID {
			c.budgets[i] = b
			return b, nil
		}
	}
	c.budgets = append(c.budgets, b)
	return b, nil
}

func (c *Coordinator) DeleteBudget(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteBudget(ctx, id, c.owner); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	for i := range c.budgets {
		if c.budgets[i].ID == id {
			c.budgets = append(c.budgets[:i], c.budgets[i+1:]...)
			break
		}
	}
	return nil
}

// --- savings goals ---

// AddSavingsGoal creates a goal unless one with the same case-insensitive
// title already exists for this owner, in which case the call is a no-op.
// The auto-tracked amount is seeded from the goal scope's current savings.
func (c *Coordinator) AddSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g.ID = core.NewID()
	g.Owner = c.owner
	g.TargetAmount = core.RoundAmount(g.TargetAmount)
	g.CreatedAt = c.now().UTC()
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	for _, existing := range c.goals {
		if strings.EqualFold(existing.Title, g.Title) {
			slog.WarnContext(ctx, "Rejected duplicate savings goal",
				"owner", c.owner, "title", g.Title, "existing_id", existing.ID)
			return core.SavingsGoal{}, core.ErrDuplicateGoal
		}
	}

	g.AutoTrackedAmount = c.savingsForScopeLocked(g.BankAccountID)
	if err := c.store.SaveGoal(ctx, g); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("persist savings goal: %w", err)
	}
	c.goals = append(c.goals, g)
	return g, nil
}

func (c *Coordinator) DeleteSavingsGoal(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteGoal(ctx, id, c.owner); err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	for i := range c.goals {
		if c.goals[i].ID == id {
			c.goals = append(c.goals[:i], c.goals[i+1:]...)
			break
		}
	}
	return nil
}

// savingsForScopeLocked returns the clamped current savings figure for a
// goal scope: the scoped account's totals, or the selected account's when
// the goal is account-agnostic.
func (c *Coordinator) savingsForScopeLocked(accountID string) float64 {
	if accountID == "" {
		accountID = c.selected
	}
	for _, a := range c.accounts {
		if a.ID == accountID {
			if s := a.TotalIncome - a.TotalExpense; s > 0 {
				return s
			}
			return 0
		}
	}
	return 0
}

// --- recomputation ---

// RecomputeAccountTotals re-derives one account's lifetime totals from its
// full transaction set, persists the account, and refreshes the
// auto-tracked amount of every goal whose scope includes it.
func (c *Coordinator) RecomputeAccountTotals(ctx context.Context, accountID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recomputeAccountLocked(ctx, accountID)
}

func (c *Coordinator) recomputeAccountLocked(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}

	var (
		incomes  []core.Income
		expenses []core.Expense
		err      error
	)
	if accountID == c.selected {
		incomes = c.workingIncomesLocked()
		expenses = c.workingExpensesLocked()
	} else {
		// Mutations on a non-selected account recompute from the store;
		// the working set only ever mirrors the selected scope.
		if incomes, err = c.store.ListIncomes(ctx, c.owner, accountID); err != nil {
			return fmt.Errorf("list incomes for recompute: %w", err)
		}
		if expenses, err = c.store.ListExpenses(ctx, c.owner, accountID); err != nil {
			return fmt.Errorf("list expenses for recompute: %w", err)
		}
	}

	totalIncome, totalExpense, balance := aggregate.AccountTotals(incomes, expenses)

	var account *core.BankAccount
	for i := range c.accounts {
		if c.accounts[i].ID == accountID {
			account = &c.accounts[i]
			break
		}
	}
	if account == nil {
		return nil
	}
	account.TotalIncome = totalIncome
	account.TotalExpense = totalExpense
	account.CurrentBalance = balance

	if err := c.store.SaveAccount(ctx, *account); err != nil {
		// The in-memory totals stay authoritative for this session; the
		// durable copy catches up on the next successful recompute.
		slog.WarnContext(ctx, "Failed to persist recomputed account totals",
			"account_id", accountID, "error", err)
	}

	savings := balance
	if savings < 0 {
		savings = 0
	}
	for i := range c.goals {
		g := &c.goals[i]
		if !g.InScope(accountID) {
			continue
		}
		if g.AutoTrackedAmount == savings {
			continue
		}
		g.AutoTrackedAmount = savings
		if err := c.store.SaveGoal(ctx, *g); err != nil {
			slog.WarnContext(ctx, "Failed to persist auto-tracked goal amount",
				"goal_id", g.ID, "error", err)
		}
	}
	return nil
}

func (c *Coordinator) workingIncomesLocked() []core.Income {
	out := make([]core.Income, len(c.incomes))
	for i, e := range c.incomes {
		out[i] = e.item
	}
	return out
}

func (c *Coordinator) workingExpensesLocked() []core.Expense {
	out := make([]core.Expense, len(c.expenses))
	for i, e := range c.expenses {
		out[i] = e.item
	}
	return out
}

func (c *Coordinator) accountLocked(id string) core.BankAccount {
	for _, a := range c.accounts {
		if a.ID == id {
			return a
		}
	}
	return core.BankAccount{}
}

// --- remote snapshot reconciliation ---

// handleIncomeSnapshot replaces the income working set wholesale with the
// snapshot's contents. The remote snapshot is authoritative: optimistic
// entries it does not contain are gone after reconciliation.
func (c *Coordinator) handleIncomeSnapshot(snap remote.Snapshot) {
	items, err := snap.DecodeIncomes()
	if err != nil {
		slog.Warn("Dropping undecodable income snapshot",
			"owner", snap.Owner, "account_id", snap.BankAccountID, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Owner != c.owner || snap.BankAccountID != c.selected {
		// Stale delivery from a previously selected scope.
		return
	}
	c.incomes = make([]entry[core.Income], len(items))
	for i, in := range items {
		c.incomes[i] = entry[core.Income]{item: in, origin: RemoteConfirmed}
	}
	if err := c.recomputeAccountLocked(context.Background(), c.selected); err != nil {
		slog.Warn("Recompute after income snapshot failed", "error", err)
	}
}

func (c *Coordinator) handleExpenseSnapshot(snap remote.Snapshot) {
	items, err := snap.DecodeExpenses()
	if err != nil {
		slog.Warn("Dropping undecodable expense snapshot",
			"owner", snap.Owner, "account_id", snap.BankAccountID, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Owner != c.owner || snap.BankAccountID != c.selected {
		return
	}
	c.expenses = make([]entry[core.Expense], len(items))
	for i, ex := range items {
		c.expenses[i] = entry[core.Expense]{item: ex, origin: RemoteConfirmed}
	}
	if err := c.recomputeAccountLocked(context.Background(), c.selected); err != nil {
		slog.Warn("Recompute after expense snapshot failed", "error", err)
	}
}

// PendingCounts reports how many working-set entries are still optimistic,
// not yet confirmed by a remote snapshot.
func (c *Coordinator) PendingCounts() (incomes, expenses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.incomes {
		if e.origin == LocalPending {
			incomes++
		}
	}
	for _, e := range c.expenses {
		if e.origin == LocalPending {
			expenses++
		}
	}
	return incomes, expenses
}
