package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/ledger"
	"github.com/finfold/finfold/internal/service"
)

func (s *Server) refreshAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.deps.Syncer.RefreshAll(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Results []service.SyncResult `json:"results"`
	}{Results: results})
}

// refreshAccount syncs one account and returns the outcome alongside the
// current reviewable set, so a failed fetch still shows what is already known.
func (s *Server) refreshAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	prov := repository.Provider(vars["provider"])
	if !repository.KnownProvider(prov) {
		respondError(w, fmt.Errorf("%w: unknown provider %q", ledger.ErrValidation, vars["provider"]))
		return
	}
	result, err := s.deps.Syncer.RefreshOne(r.Context(), vars["accountId"])
	if err != nil {
		respondError(w, err)
		return
	}
	items, err := s.deps.Ledger.ListUnreviewed(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Result    service.SyncResult `json:"result"`
		LineItems []lineItemJSON     `json:"line_items"`
	}{Result: result, LineItems: toLineItemsJSON(items)})
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	accounts, err := s.deps.Accounts.List(r.Context(), activeOnly)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountJSON(a))
	}
	respondJSON(w, http.StatusOK, out)
}

type accountRequest struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
}

func (s *Server) upsertAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	prov := repository.Provider(req.Provider)
	switch {
	case strings.TrimSpace(req.ID) == "":
		respondError(w, fmt.Errorf("%w: account id required", ledger.ErrValidation))
		return
	case !repository.KnownProvider(prov):
		respondError(w, fmt.Errorf("%w: unknown provider %q", ledger.ErrValidation, req.Provider))
		return
	}
	status := req.Status
	if status == "" {
		status = "active"
	}
	if status != "active" && status != "inactive" {
		respondError(w, fmt.Errorf("%w: status must be active or inactive", ledger.ErrValidation))
		return
	}
	acct := repository.Account{
		ID:          req.ID,
		Provider:    prov,
		DisplayName: req.DisplayName,
		Status:      status,
	}
	if err := s.deps.Accounts.Upsert(r.Context(), acct); err != nil {
		respondError(w, err)
		return
	}
	stored, err := s.deps.Accounts.Get(r.Context(), req.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAccountJSON(*stored))
}

func (s *Server) setAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Status != "active" && req.Status != "inactive" {
		respondError(w, fmt.Errorf("%w: status must be active or inactive", ledger.ErrValidation))
		return
	}
	n, err := s.deps.Accounts.SetStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	if n == 0 {
		respondError(w, service.ErrAccountNotFound)
		return
	}
	acct, err := s.deps.Accounts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountJSON(*acct))
}

func (s *Server) getAggregates(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Aggregates.Snapshot()
	if snap == nil {
		if err := s.deps.Aggregates.Recompute(r.Context()); err != nil {
			respondError(w, err)
			return
		}
		snap = s.deps.Aggregates.Snapshot()
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) maintenanceReset(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Maintenance.Reset(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
