// Package server exposes the expense and balance services over a JSON
// HTTP API. The surface is deliberately thin: handlers parse, delegate
// and translate errors; everything interesting happens in the services.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tabmate/tabmate/internal/middleware"
	"github.com/tabmate/tabmate/internal/service"
)

// Server routes HTTP requests to the services.
type Server struct {
	expenses *service.ExpenseService
	groups   *service.GroupService
	router   chi.Router
}

// New builds a Server with its routes mounted.
func New(expenses *service.ExpenseService, groups *service.GroupService) *Server {
	s := &Server{
		expenses: expenses,
		groups:   groups,
		router:   chi.NewRouter(),
	}

	s.router.Use(middleware.Logging)
	s.router.Use(middleware.Metrics)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", s.handleCreateGroup)
			r.Get("/", s.handleListGroups)
			r.Get("/{groupID}", s.handleGetGroup)
			r.Post("/{groupID}/members", s.handleAddMembers)
			r.Get("/{groupID}/expenses", s.handleListExpenses)
			r.Get("/{groupID}/balances", s.handleBalances)
			r.Get("/{groupID}/settle-up", s.handleSettleUp)
			r.Get("/{groupID}/settlements", s.handleListSettlements)
			r.Post("/{groupID}/settlements", s.handleRecordSettlement)
			r.Delete("/{groupID}/settlements/{settlementID}", s.handleDeleteSettlement)
		})
		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", s.handleCreateExpense)
			r.Get("/{expenseID}", s.handleGetExpense)
			r.Delete("/{expenseID}", s.handleDeleteExpense)
			r.Post("/{expenseID}/shares/{participantID}/settle", s.handleSettleShare)
		})
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
