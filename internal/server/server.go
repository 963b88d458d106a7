// Package server exposes the engine through a small JSON API. Handlers stay
// thin: decode, call the owning service, map domain errors to status codes.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/hints"
	"github.com/finfold/finfold/internal/ledger"
	"github.com/finfold/finfold/internal/service"
)

// Deps carries the wired engine handles.
type Deps struct {
	Ledger      *ledger.Ledger
	Hints       *hints.Store
	Matcher     *hints.Matcher
	Events      *repository.EventRepo
	Accounts    *repository.AccountRepo
	Syncer      *service.Syncer
	Aggregates  *service.AggregateCache
	Duplicates  *service.DuplicateAdvisor
	Maintenance *service.MaintenanceService
}

// Server routes the API.
type Server struct {
	router *mux.Router
	deps   Deps
}

func New(deps Deps) *Server {
	s := &Server{router: mux.NewRouter(), deps: deps}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	// hints; fixed paths registered before the {id} pattern
	r.HandleFunc("/event-hints/reorder", s.reorderHints).Methods(http.MethodPut)
	r.HandleFunc("/event-hints/validate", s.validateHint).Methods(http.MethodPost)
	r.HandleFunc("/event-hints/evaluate", s.evaluateHints).Methods(http.MethodPost)
	r.HandleFunc("/event-hints", s.createHint).Methods(http.MethodPost)
	r.HandleFunc("/event-hints", s.listHints).Methods(http.MethodGet)
	r.HandleFunc("/event-hints/{id}", s.updateHint).Methods(http.MethodPut)
	r.HandleFunc("/event-hints/{id}", s.deleteHint).Methods(http.MethodDelete)

	// line items
	r.HandleFunc("/line_items", s.listLineItems).Methods(http.MethodGet)
	r.HandleFunc("/line_items/duplicates", s.listDuplicateSuspects).Methods(http.MethodGet)
	r.HandleFunc("/line_items/{id}/select", s.toggleSelect).Methods(http.MethodPost)

	// events
	r.HandleFunc("/events", s.createEvent).Methods(http.MethodPost)
	r.HandleFunc("/events", s.listEvents).Methods(http.MethodGet)
	r.HandleFunc("/events/{id}", s.deleteEvent).Methods(http.MethodDelete)

	// sync
	r.HandleFunc("/refresh/all", s.refreshAll).Methods(http.MethodPost)
	r.HandleFunc("/account/{provider}/{accountId}/refresh", s.refreshAccount).Methods(http.MethodGet)

	// accounts
	r.HandleFunc("/accounts", s.listAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts", s.upsertAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}/status", s.setAccountStatus).Methods(http.MethodPut)

	// manual entries
	r.HandleFunc("/cash_transaction", s.createCashTransaction).Methods(http.MethodPost)
	r.HandleFunc("/cash_transaction/{id}", s.deleteCashTransaction).Methods(http.MethodDelete)

	// aggregates and ops
	r.HandleFunc("/aggregates", s.getAggregates).Methods(http.MethodGet)
	r.HandleFunc("/maintenance/reset", s.maintenanceReset).Methods(http.MethodPost)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, hints.ErrValidation),
		errors.Is(err, ledger.ErrValidation),
		errors.Is(err, hints.ErrEmptySelection):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, hints.ErrNotFound),
		errors.Is(err, hints.ErrUnknownID),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, ledger.ErrPartialNotFound),
		errors.Is(err, service.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrConflict),
		errors.Is(err, hints.ErrDuplicateOrder):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrNotManual):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}
