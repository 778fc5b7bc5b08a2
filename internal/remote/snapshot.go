package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// ErrMalformedSnapshot is returned when a snapshot payload does not decode
// into the declared entity shape.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is one full-collection push for a single (owner, account, kind)
// scope. Items stays raw on the wire; consumers decode through the typed
// accessors below so shape mismatches surface at the boundary instead of
// leaking loosely-typed data into aggregation.
type Snapshot struct {
	Owner         string          `json:"owner"`
	BankAccountID string          `json:"bankAccountId"`
	Kind          core.EntityKind `json:"kind"`
	Items         json.RawMessage `json:"items"`
	EmittedAt     time.Time       `json:"emittedAt"`
}

// NewIncomeSnapshot builds a snapshot of an account's income collection.
func NewIncomeSnapshot(owner, accountID string, items []core.Income) (Snapshot, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode income snapshot: %w", err)
	}
	return Snapshot{
		Owner:         owner,
		BankAccountID: accountID,
		Kind:          core.KindIncome,
		Items:         raw,
		EmittedAt:     time.Now().UTC(),
	}, nil
}

// NewExpenseSnapshot builds a snapshot of an account's expense collection.
func NewExpenseSnapshot(owner, accountID string, items []core.Expense) (Snapshot, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode expense snapshot: %w", err)
	}
	return Snapshot{
		Owner:         owner,
		BankAccountID: accountID,
		Kind:          core.KindExpense,
		Items:         raw,
		EmittedAt:     time.Now().UTC(),
	}, nil
}

// DecodeIncomes decodes and validates the snapshot's items as incomes.
func (s Snapshot) DecodeIncomes() ([]core.Income, error) {
	if s.Kind != core.KindIncome {
		return nil, fmt.Errorf("%w: kind %q is not %q", ErrMalformedSnapshot, s.Kind, core.KindIncome)
	}
	var items []core.Income
	if err := json.Unmarshal(s.Items, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for i, in := range items {
		if in.ID == "" {
			return nil, fmt.Errorf("%w: income %d has no id", ErrMalformedSnapshot, i)
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("%w: income %s: %v", ErrMalformedSnapshot, in.ID, err)
		}
	}
	return items, nil
}

// DecodeExpenses decodes and validates the snapshot's items as expenses.
func (s Snapshot) DecodeExpenses() ([]core.Expense, error) {
	if s.Kind != core.KindExpense {
		return nil, fmt.Errorf("%w: kind %q is not %q", ErrMalformedSnapshot, s.Kind, core.KindExpense)
	}
	var items []core.Expense
	if err := json.Unmarshal(s.Items, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for i, ex := range items {
		if ex.ID == "" {
			return nil, fmt.Errorf("%w: expense %d has no id", ErrMalformedSnapshot, i)
		}
		if err := ex.Validate(); err != nil {
			return nil, fmt.Errorf("%w: expense %s: %v", ErrMalformedSnapshot, ex.ID, err)
		}
	}
	return items, nil
}
