// Package api is the HTTP boundary of the presentation layer. It exposes
// the coordinator's published state read-only and maps mutations onto
// coordinator operations; it never touches aggregates directly.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/coordinator"
	"fintrack/internal/log"
)

// NewServer wires the router onto an http.Server with sane timeouts.
func NewServer(addr string, sessions *coordinator.Sessions, defaultOwner string, logger *log.Logger) *http.Server {
	h := &handler{sessions: sessions, defaultOwner: defaultOwner}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.RequestLogger(logger.WithComponent("http")))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Get("/summary", h.getSummary)
		r.Get("/bills", h.getBills)

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.createAccount)
			r.Delete("/{id}", h.deleteAccount)
			r.Post("/{id}/select", h.selectAccount)
		})
		r.Post("/accounts/none/select", h.clearSelection)

		r.Route("/incomes", func(r chi.Router) {
			r.Post("/", h.createIncome)
			r.Put("/{id}", h.updateIncome)
			r.Delete("/{id}", h.deleteIncome)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", h.createExpense)
			r.Put("/{id}", h.updateExpense)
			r.Delete("/{id}", h.deleteExpense)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Post("/", h.createBudget)
			r.Put("/{id}", h.updateBudget)
			r.Delete("/{id}", h.deleteBudget)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Post("/", h.createGoal)
			r.Delete("/{id}", h.deleteGoal)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
