package server

import "github.com/finfold/finfold/internal/database/repository"

type lineItemJSON struct {
	ID            string  `json:"id"`
	Provider      string  `json:"provider,omitempty"`
	ExternalRef   *string `json:"external_ref,omitempty"`
	Date          int64   `json:"date"`
	AmountCents   int64   `json:"amount_cents"`
	Description   string  `json:"description"`
	Counterparty  string  `json:"counterparty,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	Reviewed      bool    `json:"reviewed"`
	Selected      bool    `json:"selected"`
	EventID       *string `json:"event_id,omitempty"`
}

func toLineItemJSON(li repository.LineItem) lineItemJSON {
	return lineItemJSON{
		ID:            li.ID,
		Provider:      string(li.Provider),
		ExternalRef:   li.ExternalRef,
		Date:          li.DateUnix,
		AmountCents:   li.AmountCents,
		Description:   li.Description,
		Counterparty:  li.Counterparty,
		PaymentMethod: li.PaymentMethod,
		Reviewed:      li.Reviewed,
		Selected:      li.Selected,
		EventID:       li.EventID,
	}
}

func toLineItemsJSON(items []repository.LineItem) []lineItemJSON {
	out := make([]lineItemJSON, 0, len(items))
	for _, li := range items {
		out = append(out, toLineItemJSON(li))
	}
	return out
}

type hintJSON struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	CelExpression     string  `json:"cel_expression"`
	PrefillName       string  `json:"prefill_name"`
	PrefillCategoryID *string `json:"prefill_category_id,omitempty"`
	DisplayOrder      int     `json:"display_order"`
	IsActive          bool    `json:"is_active"`
}

func toHintJSON(h repository.Hint) hintJSON {
	return hintJSON{
		ID:                h.ID,
		Name:              h.Name,
		CelExpression:     h.Expression,
		PrefillName:       h.PrefillName,
		PrefillCategoryID: h.PrefillCategoryID,
		DisplayOrder:      h.DisplayOrder,
		IsActive:          h.Active,
	}
}

type eventJSON struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Category               *string  `json:"category,omitempty"`
	Date                   *int64   `json:"date,omitempty"`
	IsDuplicateTransaction bool     `json:"is_duplicate_transaction"`
	LineItems              []string `json:"line_items"`
}

func toEventJSON(ev repository.Event) eventJSON {
	return eventJSON{
		ID:                     ev.ID,
		Name:                   ev.Name,
		Category:               ev.CategoryID,
		Date:                   ev.DateUnix,
		IsDuplicateTransaction: ev.IsDuplicate,
		LineItems:              ev.LineItemIDs,
	}
}

type accountJSON struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	DisplayName  string `json:"display_name"`
	Status       string `json:"status"`
	LastSyncedAt *int64 `json:"last_synced_at,omitempty"`
}

func toAccountJSON(a repository.Account) accountJSON {
	out := accountJSON{
		ID:          a.ID,
		Provider:    string(a.Provider),
		DisplayName: a.DisplayName,
		Status:      a.Status,
	}
	if a.LastSyncedAt != nil {
		unix := a.LastSyncedAt.Unix()
		out.LastSyncedAt = &unix
	}
	return out
}
