package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FrequencyNone    Frequency = "none"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	FrequencyOneTime Frequency = "one-time"

	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"

	KindBankAccount EntityKind = "bank_account"
	KindIncome      EntityKind = "income"
	KindExpense     EntityKind = "expense"
	KindBudget      EntityKind = "budget"
	KindSavingsGoal EntityKind = "savings_goal"

	// InitialBalanceSource marks the synthetic income seeded at account
	// creation so that TotalIncome always includes the starting balance.
	InitialBalanceSource = "Initial Balance"
)

type (
	Frequency    string
	BudgetPeriod string
	EntityKind   string

	BankAccount struct {
		ID              string    `json:"id"`
		Owner           string    `json:"owner"`
		Name            string    `json:"name"`
		CreatedAt       time.Time `json:"createdAt"`
		StartingBalance float64   `json:"startingBalance"`
		TotalIncome     float64   `json:"totalIncome"`
		TotalExpense    float64   `json:"totalExpense"`
		CurrentBalance  float64   `json:"currentBalance"`
	}

	Income struct {
		ID            string    `json:"id"`
		Owner         string    `json:"owner"`
		BankAccountID string    `json:"bankAccountId"`
		Amount        float64   `json:"amount"`
		Date          time.Time `json:"date"`
		Source        string    `json:"source"`
		Frequency     Frequency `json:"frequency"`
	}

	Expense struct {
		ID            string     `json:"id"`
		Owner         string     `json:"owner"`
		BankAccountID string     `json:"bankAccountId"`
		Amount        float64    `json:"amount"`
		Date          time.Time  `json:"date"`
		Category      string     `json:"category"`
		Frequency     Frequency  `json:"frequency"`
		IsRecurring   bool       `json:"isRecurring"`
		NextDueDate   *time.Time `json:"nextDueDate,omitempty"`
	}

	Budget struct {
		ID             string       `json:"id"`
		Owner          string       `json:"owner"`
		Category       string       `json:"category"`
		BudgetAmount   float64      `json:"budgetAmount"`
		Period         BudgetPeriod `json:"period"`
		AlertThreshold float64      `json:"alertThreshold"`
	}

	SavingsGoal struct {
		ID    string `json:"id"`
		Owner string `json:"owner"`
		Title string `json:"title"`
		// BankAccountID scopes the goal to one account; empty means the
		// goal tracks savings account-agnostically.
		BankAccountID     string    `json:"bankAccountId,omitempty"`
		TargetAmount      float64   `json:"targetAmount"`
		AutoTrackedAmount float64   `json:"autoTrackedAmount"`
		CreatedAt         time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidPeriod    = errors.New("invalid budget period")
	ErrInvalidThreshold = errors.New("invalid alert threshold")
	ErrMissingOwner     = errors.New("missing owner")
	ErrMissingAccount   = errors.New("missing bank account id")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptySource      = errors.New("empty source")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyTitle       = errors.New("empty title")
	ErrDuplicateGoal    = errors.New("duplicate goal title")
)

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

func (f Frequency) Validate() error {
	switch f {
	case FrequencyNone, FrequencyMonthly, FrequencyYearly, FrequencyOneTime:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (p BudgetPeriod) Validate() error {
	switch p {
	case PeriodMonthly, PeriodYearly:
		return nil
	default:
		return ErrInvalidPeriod
	}
}

func (a BankAccount) Validate() error {
	if strings.TrimSpace(a.Owner) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.StartingBalance < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Owner) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(i.BankAccountID) == "" {
		return ErrMissingAccount
	}
	if i.Amount < 0 {
		return ErrInvalidAmount
	}
	if i.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	return i.Frequency.Validate()
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(e.BankAccountID) == "" {
		return ErrMissingAccount
	}
	if e.Amount < 0 {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return e.Frequency.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Owner) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.BudgetAmount < 0 {
		return ErrInvalidAmount
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		return ErrInvalidThreshold
	}
	return b.Period.Validate()
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Owner) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if g.TargetAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Progress returns how far the goal's auto-tracked savings are toward the
// target, as a percentage. Zero-target goals report zero.
func (g SavingsGoal) Progress() float64 {
	if g.TargetAmount == 0 {
		return 0
	}
	return g.AutoTrackedAmount / g.TargetAmount * 100
}

// InScope reports whether the goal tracks the given account. Goals without
// an account id apply to every account.
func (g SavingsGoal) InScope(accountID string) bool {
	return g.BankAccountID == "" || g.BankAccountID == accountID
}
