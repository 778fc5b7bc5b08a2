// Package sqlite implements the Ledger Store on SQLite. Schema changes go
// through embedded golang-migrate migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

var _ ledger.Store = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	return t, nil
}

func (r *Repository) SaveAccount(ctx context.Context, a core.BankAccount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO bank_accounts
			(id, owner, name, created_at, starting_balance, total_income, total_expense, current_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Owner, a.Name, encodeTime(a.CreatedAt),
		a.StartingBalance, a.TotalIncome, a.TotalExpense, a.CurrentBalance)
	if err != nil {
		return fmt.Errorf("save bank account: %w", err)
	}
	return nil
}

func (r *Repository) DeleteAccount(ctx context.Context, id, owner string) error {
	return r.deleteScoped(ctx, "bank_accounts", id, owner)
}

func (r *Repository) ListAccounts(ctx context.Context, owner string) ([]core.BankAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, name, created_at, starting_balance, total_income, total_expense, current_balance
		FROM bank_accounts WHERE owner = ? ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	defer rows.Close()

	var out []core.BankAccount
	for rows.Next() {
		var a core.BankAccount
		var created string
		if err := rows.Scan(&a.ID, &a.Owner, &a.Name, &created,
			&a.StartingBalance, &a.TotalIncome, &a.TotalExpense, &a.CurrentBalance); err != nil {
			return nil, fmt.Errorf("scan bank account: %w", err)
		}
		if a.CreatedAt, err = decodeTime(created); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) SaveIncome(ctx context.Context, in core.Income) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO incomes
			(id, owner, bank_account_id, amount, date, source, frequency)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Owner, in.BankAccountID, in.Amount, encodeTime(in.Date), in.Source, string(in.Frequency))
	if err != nil {
		return fmt.Errorf("save income: %w", err)
	}
	return nil
}

func (r *Repository) DeleteIncome(ctx context.Context, id, owner string) error {
	return r.deleteScoped(ctx, "incomes", id, owner)
}

func (r *Repository) ListIncomes(ctx context.Context, owner, accountID string) ([]core.Income, error) {
	query := `SELECT id, owner, bank_account_id, amount, date, source, frequency
		FROM incomes WHERE owner = ?`
	args := []any{owner}
	if accountID != "" {
		query += ` AND bank_account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var in core.Income
		var date, freq string
		if err := rows.Scan(&in.ID, &in.Owner, &in.BankAccountID, &in.Amount, &date, &in.Source, &freq); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if in.Date, err = decodeTime(date); err != nil {
			return nil, err
		}
		in.Frequency = core.Frequency(freq)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *Repository) SaveExpense(ctx context.Context, ex core.Expense) error {
	var nextDue sql.NullString
	if ex.NextDueDate != nil {
		nextDue = sql.NullString{String: encodeTime(*ex.NextDueDate), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO expenses
			(id, owner, bank_account_id, amount, date, category, frequency, is_recurring, next_due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.Owner, ex.BankAccountID, ex.Amount, encodeTime(ex.Date),
		ex.Category, string(ex.Frequency), ex.IsRecurring, nextDue)
	if err != nil {
		return fmt.Errorf("save expense: %w", err)
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id, owner string) error {
	return r.deleteScoped(ctx, "expenses", id, owner)
}

func (r *Repository) ListExpenses(ctx context.Context, owner, accountID string) ([]core.Expense, error) {
	query := `SELECT id, owner, bank_account_id, amount, date, category, frequency, is_recurring, next_due_date
		FROM expenses WHERE owner = ?`
	args := []any{owner}
	if accountID != "" {
		query += ` AND bank_account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var ex core.Expense
		var date, freq string
		var nextDue sql.NullString
		if err := rows.Scan(&ex.ID, &ex.Owner, &ex.BankAccountID, &ex.Amount, &date,
			&ex.Category, &freq, &ex.IsRecurring, &nextDue); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if ex.Date, err = decodeTime(date); err != nil {
			return nil, err
		}
		ex.Frequency = core.Frequency(freq)
		if nextDue.Valid {
			t, err := decodeTime(nextDue.String)
			if err != nil {
				return nil, err
			}
			ex.NextDueDate = &t
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (r *Repository) SaveBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO budgets
			(id, owner, category, budget_amount, period, alert_threshold)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Owner, b.Category, b.BudgetAmount, string(b.Period), b.AlertThreshold)
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

func (r *Repository) DeleteBudget(ctx context.Context, id, owner string) error {
	return r.deleteScoped(ctx, "budgets", id, owner)
}

func (r *Repository) ListBudgets(ctx context.Context, owner string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, category, budget_amount, period, alert_threshold
		FROM budgets WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		var period string
		if err := rows.Scan(&b.ID, &b.Owner, &b.Category, &b.BudgetAmount, &period, &b.AlertThreshold); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Period = core.BudgetPeriod(period)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) SaveGoal(ctx context.Context, g core.SavingsGoal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO savings_goals
			(id, owner, title, bank_account_id, target_amount, auto_tracked_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Owner, g.Title, g.BankAccountID, g.TargetAmount, g.AutoTrackedAmount, encodeTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("save savings goal: %w", err)
	}
	return nil
}

func (r *Repository) DeleteGoal(ctx context.Context, id, owner string) error {
	return r.deleteScoped(ctx, "savings_goals", id, owner)
}

func (r *Repository) ListGoals(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, title, bank_account_id, target_amount, auto_tracked_amount, created_at
		FROM savings_goals WHERE owner = ? ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		var g core.SavingsGoal
		var created string
		if err := rows.Scan(&g.ID, &g.Owner, &g.Title, &g.BankAccountID,
			&g.TargetAmount, &g.AutoTrackedAmount, &created); err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		if g.CreatedAt, err = decodeTime(created); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) deleteScoped(ctx context.Context, table, id, owner string) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND owner = ?`, table), id, owner)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
