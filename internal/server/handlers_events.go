package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/finfold/finfold/internal/ledger"
)

type eventRequest struct {
	Name                   string   `json:"name"`
	Category               *string  `json:"category"`
	Date                   *int64   `json:"date"`
	IsDuplicateTransaction bool     `json:"is_duplicate_transaction"`
	LineItems              []string `json:"line_items"`
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	ev, err := s.deps.Ledger.CreateEvent(r.Context(), ledger.EventParams{
		Name:        req.Name,
		CategoryID:  req.Category,
		DateUnix:    req.Date,
		IsDuplicate: req.IsDuplicateTransaction,
		LineItemIDs: req.LineItems,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toEventJSON(*ev))
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.deps.Events.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]eventJSON, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventJSON(ev))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	restored, err := s.deps.Ledger.DeleteEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		RestoredLineItems []string `json:"restored_line_items"`
	}{RestoredLineItems: restored})
}
