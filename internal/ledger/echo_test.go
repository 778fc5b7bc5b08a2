package ledger_test

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/remote"
	"fintrack/internal/remote/membus"
)

var echoDate = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func newEcho(t *testing.T) (*ledger.Echoing, *membus.Bus) {
	t.Helper()
	bus := membus.New()
	store := ledger.NewEchoing(memory.New(), bus)
	return store, bus
}

func collect(t *testing.T, bus *membus.Bus, owner, accountID string, kind core.EntityKind) *[]remote.Snapshot {
	t.Helper()
	var got []remote.Snapshot
	unsub, err := bus.Subscribe(owner, accountID, kind, func(s remote.Snapshot) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	t.Cleanup(unsub)
	return &got
}

func TestSaveIncomeEchoesFullCollection(t *testing.T) {
	store, bus := newEcho(t)
	ctx := context.Background()
	got := collect(t, bus, "alice", "a1", core.KindIncome)

	first := core.Income{
		ID: "i1", Owner: "alice", BankAccountID: "a1",
		Amount: 100, Date: echoDate, Source: "Salary", Frequency: core.FrequencyNone,
	}
	second := first
	second.ID = "i2"
	second.Amount = 50
	second.Date = echoDate.AddDate(0, 0, 1)

	if err := store.SaveIncome(ctx, first); err != nil {
		t.Fatalf("SaveIncome: %v", err)
	}
	if err := store.SaveIncome(ctx, second); err != nil {
		t.Fatalf("SaveIncome: %v", err)
	}
	bus.Flush()

	if len(*got) != 2 {
		t.Fatalf("expected one echo per write, got %d", len(*got))
	}
	items, err := (*got)[1].DecodeIncomes()
	if err != nil {
		t.Fatalf("DecodeIncomes: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("echo must carry the full collection, got %d items", len(items))
	}
}

func TestDeleteExpenseEchoesRemainder(t *testing.T) {
	store, bus := newEcho(t)
	ctx := context.Background()
	got := collect(t, bus, "alice", "a1", core.KindExpense)

	keep := core.Expense{
		ID: "e1", Owner: "alice", BankAccountID: "a1",
		Amount: 10, Date: echoDate, Category: "food", Frequency: core.FrequencyNone,
	}
	drop := keep
	drop.ID = "e2"
	drop.Category = "transport"

	if err := store.SaveExpense(ctx, keep); err != nil {
		t.Fatalf("SaveExpense: %v", err)
	}
	if err := store.SaveExpense(ctx, drop); err != nil {
		t.Fatalf("SaveExpense: %v", err)
	}
	if err := store.DeleteExpense(ctx, drop.ID, "alice"); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	bus.Flush()

	if len(*got) != 3 {
		t.Fatalf("expected 3 echoes, got %d", len(*got))
	}
	items, err := (*got)[2].DecodeExpenses()
	if err != nil {
		t.Fatalf("DecodeExpenses: %v", err)
	}
	if len(items) != 1 || items[0].ID != keep.ID {
		t.Fatalf("post-delete echo should carry the remainder, got %+v", items)
	}
}

func TestDeleteMissingIncomeDoesNotEcho(t *testing.T) {
	store, bus := newEcho(t)
	got := collect(t, bus, "alice", "a1", core.KindIncome)

	if err := store.DeleteIncome(context.Background(), "no-such", "alice"); err != ledger.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	bus.Flush()
	if len(*got) != 0 {
		t.Fatalf("delete miss must not echo, got %d snapshots", len(*got))
	}
}

func TestNilBusDisablesEcho(t *testing.T) {
	store := ledger.NewEchoing(memory.New(), nil)
	in := core.Income{
		ID: "i1", Owner: "alice", BankAccountID: "a1",
		Amount: 100, Date: echoDate, Source: "Salary", Frequency: core.FrequencyNone,
	}
	if err := store.SaveIncome(context.Background(), in); err != nil {
		t.Fatalf("SaveIncome with nil bus: %v", err)
	}
	items, err := store.ListIncomes(context.Background(), "alice", "a1")
	if err != nil || len(items) != 1 {
		t.Fatalf("durable write must still land: %v (%d items)", err, len(items))
	}
}
