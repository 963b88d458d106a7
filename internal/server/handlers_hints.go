package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/finfold/finfold/internal/hints"
)

type hintRequest struct {
	Name              string  `json:"name"`
	CelExpression     string  `json:"cel_expression"`
	PrefillName       string  `json:"prefill_name"`
	PrefillCategoryID *string `json:"prefill_category_id"`
	DisplayOrder      *int    `json:"display_order"`
	IsActive          *bool   `json:"is_active"`
}

func (s *Server) createHint(w http.ResponseWriter, r *http.Request) {
	var req hintRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	h, err := s.deps.Hints.Create(r.Context(), hints.CreateParams{
		Name:              req.Name,
		Expression:        req.CelExpression,
		PrefillName:       req.PrefillName,
		PrefillCategoryID: req.PrefillCategoryID,
		DisplayOrder:      req.DisplayOrder,
		Active:            active,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toHintJSON(*h))
}

func (s *Server) listHints(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	list, err := s.deps.Hints.List(r.Context(), activeOnly)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]hintJSON, 0, len(list))
	for _, h := range list {
		out = append(out, toHintJSON(h))
	}
	respondJSON(w, http.StatusOK, out)
}

type hintUpdateRequest struct {
	Name              *string `json:"name"`
	CelExpression     *string `json:"cel_expression"`
	PrefillName       *string `json:"prefill_name"`
	PrefillCategoryID *string `json:"prefill_category_id"`
	ClearCategory     bool    `json:"clear_category"`
	DisplayOrder      *int    `json:"display_order"`
	IsActive          *bool   `json:"is_active"`
}

func (s *Server) updateHint(w http.ResponseWriter, r *http.Request) {
	var req hintUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h, err := s.deps.Hints.Update(r.Context(), mux.Vars(r)["id"], hints.UpdateParams{
		Name:              req.Name,
		Expression:        req.CelExpression,
		PrefillName:       req.PrefillName,
		PrefillCategoryID: req.PrefillCategoryID,
		ClearCategory:     req.ClearCategory,
		DisplayOrder:      req.DisplayOrder,
		Active:            req.IsActive,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toHintJSON(*h))
}

func (s *Server) deleteHint(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Hints.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) reorderHints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HintIDs []string `json:"hint_ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := s.deps.Hints.Reorder(r.Context(), req.HintIDs); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) validateHint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CelExpression string `json:"cel_expression"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	type validation struct {
		IsValid bool   `json:"is_valid"`
		Error   string `json:"error,omitempty"`
	}
	if err := s.deps.Hints.Validate(req.CelExpression); err != nil {
		respondJSON(w, http.StatusOK, validation{IsValid: false, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, validation{IsValid: true})
}

type suggestionJSON struct {
	Name            string  `json:"name"`
	Category        *string `json:"category,omitempty"`
	MatchedHintID   string  `json:"matched_hint_id"`
	MatchedHintName string  `json:"matched_hint_name"`
}

func (s *Server) evaluateHints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LineItemIDs []string `json:"line_item_ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	items, err := s.deps.Ledger.GetMany(r.Context(), req.LineItemIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	suggestion, err := s.deps.Matcher.Suggest(r.Context(), items)
	if err != nil {
		respondError(w, err)
		return
	}
	type response struct {
		Suggestion *suggestionJSON `json:"suggestion"`
	}
	if suggestion == nil {
		respondJSON(w, http.StatusOK, response{})
		return
	}
	respondJSON(w, http.StatusOK, response{Suggestion: &suggestionJSON{
		Name:            suggestion.Name,
		Category:        suggestion.CategoryID,
		MatchedHintID:   suggestion.MatchedHintID,
		MatchedHintName: suggestion.MatchedHintName,
	}})
}
