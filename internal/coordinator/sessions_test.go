package coordinator

import (
	"context"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
)

func TestSessionsCachePerOwner(t *testing.T) {
	sessions := NewSessions(memory.New(), nil)
	t.Cleanup(sessions.Close)
	ctx := context.Background()

	alice, err := sessions.For(ctx, "alice")
	if err != nil {
		t.Fatalf("For(alice): %v", err)
	}
	again, err := sessions.For(ctx, "alice")
	if err != nil {
		t.Fatalf("For(alice) again: %v", err)
	}
	if alice != again {
		t.Fatal("expected the same coordinator for repeated requests")
	}

	bob, err := sessions.For(ctx, "bob")
	if err != nil {
		t.Fatalf("For(bob): %v", err)
	}
	if bob == alice {
		t.Fatal("owners must not share a coordinator")
	}
}

func TestSessionsLoadOnFirstUse(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if err := store.SaveAccount(ctx, core.BankAccount{
		ID: "a1", Owner: "alice", Name: "Checking", CreatedAt: testNow,
	}); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}

	sessions := NewSessions(store, nil)
	t.Cleanup(sessions.Close)

	c, err := sessions.For(ctx, "alice")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if got := c.SelectedAccountID(); got != "a1" {
		t.Fatalf("first use must load and select, got %q", got)
	}
}
