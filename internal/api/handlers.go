package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/coordinator"
	"fintrack/internal/core"
)

type handler struct {
	sessions     *coordinator.Sessions
	defaultOwner string
}

// coord resolves the request's owner (X-Owner header, falling back to the
// configured default) to that owner's coordinator.
func (h *handler) coord(w http.ResponseWriter, r *http.Request) *coordinator.Coordinator {
	owner := r.Header.Get("X-Owner")
	if owner == "" {
		owner = h.defaultOwner
	}
	c, err := h.sessions.For(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return nil
	}
	return c
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

// parseDate accepts a bare day (2006-01-02) or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, core.ErrInvalidDate
	}
	return t, nil
}

// --- read side ---

func (h *handler) getState(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	writeJSON(w, http.StatusOK, c.State())
}

func (h *handler) getSummary(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	writeJSON(w, http.StatusOK, c.Summary())
}

func (h *handler) getBills(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be a positive number"})
			return
		}
		days = parsed
	}
	writeJSON(w, http.StatusOK, c.UpcomingBills(days))
}

// --- accounts ---

func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	var req struct {
		Name            string  `json:"name"`
		StartingBalance float64 `json:"startingBalance"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := c.AddBankAccount(r.Context(), req.Name, req.StartingBalance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	if err := c.DeleteBankAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *handler) selectAccount(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	if err := c.SetSelectedAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.State())
}

func (h *handler) clearSelection(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	if err := c.SetSelectedAccount(r.Context(), ""); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.State())
}

// --- incomes ---

type incomeRequest struct {
	BankAccountID string  `json:"bankAccountId"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Source        string  `json:"source"`
	Frequency     string  `json:"frequency"`
}

func (req incomeRequest) toIncome() (core.Income, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Income{}, err
	}
	return core.Income{
		BankAccountID: req.BankAccountID,
		Amount:        req.Amount,
		Date:          date,
		Source:        req.Source,
		Frequency:     core.Frequency(req.Frequency),
	}, nil
}

func (h *handler) createIncome(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	var req incomeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toIncome()
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := c.AddIncome(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) updateIncome(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	var req incomeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toIncome()
	if err != nil {
		writeError(w, err)
		return
	}
	in.ID = chi.URLParam(r, "id")
	updated, err := c.UpdateIncome(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteIncome(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	if err := c.DeleteIncome(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- expenses ---

type expenseRequest struct {
	BankAccountID string  `json:"bankAccountId"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Category      string  `json:"category"`
	Frequency     string  `json:"frequency"`
	IsRecurring   bool    `json:"isRecurring"`
	NextDueDate   string  `json:"nextDueDate"`
}

func (req expenseRequest) toExpense() (core.Expense, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Expense{}, err
	}
	ex := core.Expense{
		BankAccountID: req.BankAccountID,
		Amount:        req.Amount,
		Date:          date,
		Category:      req.Category,
		Frequency:     core.Frequency(req.Frequency),
		IsRecurring:   req.IsRecurring,
	}
	if req.NextDueDate != "" {
		due, err := parseDate(req.NextDueDate)
		if err != nil {
			return core.Expense{}, err
		}
		ex.NextDueDate = &due
	}
	return ex, nil
}

func (h *handler) createExpense(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ex, err := req.toExpense()
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := c.AddExpense(r.Context(), ex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) updateExpense(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ex, err := req.toExpense()
	if err != nil {
		writeError(w, err)
		return
	}
	ex.ID = chi.URLParam(r, "id")
	updated, err := c.UpdateExpense(r.Context(), ex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	if err := c.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- budgets ---

type budgetRequest struct {
	Category       string  `json:"category"`
	BudgetAmount   float64 `json:"budgetAmount"`
	Period         string  `json:"period"`
	AlertThreshold float64 `json:"alertThreshold"`
}

func (req budgetRequest) toBudget() core.Budget {
	return core.Budget{
		Category:       req.Category,
		BudgetAmount:   req.BudgetAmount,
		Period:         core.BudgetPeriod(req.Period),
		AlertThreshold: req.AlertThreshold,
	}
}

func (h *handler) createBudget(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	var req budgetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created, err := c.AddBudget(r.Context(), req.toBudget())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) updateBudget(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	var req budgetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b := req.toBudget()
	b.ID = chi.URLParam(r, "id")
	updated, err := c.UpdateBudget(r.Context(), b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteBudget(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	if err := c.DeleteBudget(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- savings goals ---

func (h *handler) createGoal(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	var req struct {
		Title         string  `json:"title"`
		BankAccountID string  `json:"bankAccountId"`
		TargetAmount  float64 `json:"targetAmount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	goal, err := c.AddSavingsGoal(r.Context(), core.SavingsGoal{
		Title:         req.Title,
		BankAccountID: req.BankAccountID,
		TargetAmount:  req.TargetAmount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (h *handler) deleteGoal(w http.ResponseWriter, r *http.Request) {
	c := h.coord(w, r)
	if c == nil {
		return
	}
	if err := c.DeleteSavingsGoal(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
