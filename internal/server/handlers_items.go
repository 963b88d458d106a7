package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/ledger"
)

func (s *Server) listLineItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.LineItemFilters{
		ReviewableOnly: q.Get("only_line_items_to_review") == "true",
		PaymentMethod:  q.Get("payment_method"),
		Provider:       repository.Provider(q.Get("provider")),
	}
	items, err := s.deps.Ledger.List(r.Context(), f)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toLineItemsJSON(items))
}

func (s *Server) listDuplicateSuspects(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.deps.Duplicates.Suspects(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	type pairJSON struct {
		A          lineItemJSON `json:"a"`
		B          lineItemJSON `json:"b"`
		Similarity float64      `json:"similarity"`
	}
	out := make([]pairJSON, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairJSON{
			A:          toLineItemJSON(p.A),
			B:          toLineItemJSON(p.B),
			Similarity: p.Similarity,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) toggleSelect(w http.ResponseWriter, r *http.Request) {
	li, err := s.deps.Ledger.ToggleSelect(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toLineItemJSON(*li))
}

type cashTransactionRequest struct {
	Date          int64  `json:"date"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	Counterparty  string `json:"counterparty"`
	PaymentMethod string `json:"payment_method"`
}

func (s *Server) createCashTransaction(w http.ResponseWriter, r *http.Request) {
	var req cashTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	amt, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, fmt.Errorf("%w: amount %q: %v", ledger.ErrValidation, req.Amount, err))
		return
	}
	method := req.PaymentMethod
	if method == "" {
		method = "cash"
	}
	li, err := s.deps.Ledger.AddManual(r.Context(), ledger.ManualParams{
		DateUnix:      req.Date,
		AmountCents:   amt.Shift(2).Round(0).IntPart(),
		Description:   req.Description,
		Counterparty:  req.Counterparty,
		PaymentMethod: method,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toLineItemJSON(*li))
}

func (s *Server) deleteCashTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeleteManual(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
