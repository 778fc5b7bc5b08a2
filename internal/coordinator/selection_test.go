package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/remote"
)

func TestSwitchingAccountsReloadsWorkingSet(t *testing.T) {
	c, _, _ := newEchoed(t)
	ctx := context.Background()

	a, err := c.AddBankAccount(ctx, "Checking", 0)
	if err != nil {
		t.Fatalf("AddBankAccount: %v", err)
	}
	if _, err := c.AddIncome(ctx, core.Income{Amount: 100, Date: testNow, Source: "Salary"}); err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	b, err := c.AddBankAccount(ctx, "Savings", 50)
	if err != nil {
		t.Fatalf("AddBankAccount: %v", err)
	}
	if got := c.SelectedAccountID(); got != b.ID {
		t.Fatalf("a new account must become selected, got %q", got)
	}
	st := c.State()
	if len(st.Incomes) != 1 || st.Incomes[0].Source != core.InitialBalanceSource {
		t.Fatalf("working set should hold only the new account's seed, got %+v", st.Incomes)
	}

	if err := c.SetSelectedAccount(ctx, a.ID); err != nil {
		t.Fatalf("SetSelectedAccount: %v", err)
	}
	st = c.State()
	if len(st.Incomes) != 2 {
		t.Fatalf("expected seed plus salary after switching back, got %d incomes", len(st.Incomes))
	}
	if st.SelectedBankAccount.TotalIncome != 100 {
		t.Fatalf("TotalIncome = %v, expected 100", st.SelectedBankAccount.TotalIncome)
	}
}

func TestSetSelectedAccountUnknown(t *testing.T) {
	c, _, _ := newEchoed(t)
	if err := c.SetSelectedAccount(context.Background(), "no-such-id"); !errors.Is(err, core.ErrMissingAccount) {
		t.Fatalf("expected ErrMissingAccount, got %v", err)
	}
}

func TestClearSelection(t *testing.T) {
	c, _, _ := newEchoed(t)
	ctx := context.Background()

	if _, err := c.AddBankAccount(ctx, "Checking", 100); err != nil {
		t.Fatalf("AddBankAccount: %v", err)
	}
	if err := c.SetSelectedAccount(ctx, ""); err != nil {
		t.Fatalf("SetSelectedAccount: %v", err)
	}
	st := c.State()
	if st.SelectedBankAccount != nil || len(st.Incomes) != 0 || len(st.Expenses) != 0 {
		t.Fatalf("expected an empty working set with no selection, got %+v", st)
	}
}

func TestDeleteSelectedAccountSelectsNext(t *testing.T) {
	c, _, _ := newEchoed(t)
	ctx := context.Background()

	a, err := c.AddBankAccount(ctx, "Checking", 100)
	if err != nil {
		t.Fatalf("AddBankAccount: %v", err)
	}
	b, err := c.AddBankAccount(ctx, "Savings", 200)
	if err != nil {
		t.Fatalf("AddBankAccount: %v", err)
	}

	if err := c.DeleteBankAccount(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBankAccount: %v", err)
	}
	if got := c.SelectedAccountID(); got != a.ID {
		t.Fatalf("expected fallback to the remaining account, got %q", got)
	}

	if err := c.DeleteBankAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteBankAccount: %v", err)
	}
	if got := c.SelectedAccountID(); got != "" {
		t.Fatalf("expected no selection after last account removal, got %q", got)
	}
}

// A snapshot published for a previously selected account must not reach
// the working set after the scope has moved on.
func TestStaleScopeSnapshotDropped(t *testing.T) {
	c, bus, _ := newEchoed(t)
	ctx := context.Background()

	a, err := c.AddBankAccount(ctx, "Checking", 100)
	if err != nil {
		t.Fatalf("AddBankAccount: %v", err)
	}
	b, err := c.AddBankAccount(ctx, "Savings", 200)
	if err != nil {
		t.Fatalf("AddBankAccount: %v", err)
	}
	// Drain the echoes from account creation.
	bus.Flush()

	stale, err := remote.NewIncomeSnapshot("alice", a.ID, nil)
	if err != nil {
		t.Fatalf("NewIncomeSnapshot: %v", err)
	}
	if err := bus.PublishSnapshot(ctx, stale); err != nil {
		t.Fatalf("PublishSnapshot: %v", err)
	}
	if delivered := bus.Flush(); delivered != 0 {
		t.Fatalf("stale scope snapshot reached %d handlers, expected 0", delivered)
	}

	st := c.State()
	if st.SelectedBankAccount.ID != b.ID {
		t.Fatalf("selection moved unexpectedly to %q", st.SelectedBankAccount.ID)
	}
	if len(st.Incomes) != 1 {
		t.Fatalf("working set of the selected account changed, got %d incomes", len(st.Incomes))
	}
}

func TestLoadOwnerSelectsFirstAccount(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first := core.BankAccount{ID: "a1", Owner: "alice", Name: "Checking", CreatedAt: testNow}
	second := core.BankAccount{ID: "a2", Owner: "alice", Name: "Savings", CreatedAt: testNow.Add(time.Hour)}
	for _, a := range []core.BankAccount{second, first} {
		if err := store.SaveAccount(ctx, a); err != nil {
			t.Fatalf("SaveAccount: %v", err)
		}
	}
	if err := store.SaveIncome(ctx, core.Income{
		ID: "i1", Owner: "alice", BankAccountID: "a1",
		Amount: 100, Date: testNow, Source: "Salary", Frequency: core.FrequencyNone,
	}); err != nil {
		t.Fatalf("SaveIncome: %v", err)
	}

	c := New("alice", store, nil, WithClock(fixedClock))
	t.Cleanup(c.Close)
	if err := c.LoadOwner(ctx); err != nil {
		t.Fatalf("LoadOwner: %v", err)
	}

	if got := c.SelectedAccountID(); got != "a1" {
		t.Fatalf("expected the earliest account selected, got %q", got)
	}
	st := c.State()
	if len(st.BankAccounts) != 2 || len(st.Incomes) != 1 {
		t.Fatalf("unexpected loaded state: %d accounts, %d incomes", len(st.BankAccounts), len(st.Incomes))
	}
	if st.SelectedBankAccount.TotalIncome != 100 {
		t.Fatalf("totals not recomputed at load: %+v", st.SelectedBankAccount)
	}
}

func TestLoadOwnerDedupesGoalsByTitle(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	goals := []core.SavingsGoal{
		{ID: "g1", Owner: "alice", Title: "Car", TargetAmount: 100, CreatedAt: testNow},
		{ID: "g2", Owner: "alice", Title: "car", TargetAmount: 200, CreatedAt: testNow.Add(time.Hour)},
		{ID: "g3", Owner: "alice", Title: "Boat", TargetAmount: 300, CreatedAt: testNow.Add(2 * time.Hour)},
	}
	for _, g := range goals {
		if err := store.SaveGoal(ctx, g); err != nil {
			t.Fatalf("SaveGoal: %v", err)
		}
	}

	c := New("alice", store, nil, WithClock(fixedClock))
	t.Cleanup(c.Close)
	if err := c.LoadOwner(ctx); err != nil {
		t.Fatalf("LoadOwner: %v", err)
	}

	st := c.State()
	if len(st.SavingsGoals) != 2 {
		t.Fatalf("expected 2 goals after dedupe, got %d", len(st.SavingsGoals))
	}
	if st.SavingsGoals[0].ID != "g1" || st.SavingsGoals[1].ID != "g3" {
		t.Fatalf("dedupe must keep the earliest per title, got %+v", st.SavingsGoals)
	}

	persisted, _ := store.ListGoals(ctx, "alice")
	if len(persisted) != 2 {
		t.Fatalf("duplicate goal not deleted from the store, %d remain", len(persisted))
	}
}

func TestLoadOwnerRecoversFromVanishedSelection(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	c := New("alice", store, nil, WithClock(fixedClock))
	t.Cleanup(c.Close)

	a, err := c.AddBankAccount(ctx, "Checking", 100)
	if err != nil {
		t.Fatalf("AddBankAccount: %v", err)
	}
	b, err := c.AddBankAccount(ctx, "Savings", 200)
	if err != nil {
		t.Fatalf("AddBankAccount: %v", err)
	}
	// Another session removes the selected account behind our back.
	if err := store.DeleteAccount(ctx, b.ID, "alice"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if err := c.LoadOwner(ctx); err != nil {
		t.Fatalf("LoadOwner: %v", err)
	}
	if got := c.SelectedAccountID(); got != a.ID {
		t.Fatalf("expected fallback selection %q, got %q", a.ID, got)
	}
}
