package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/ledger"
)

// ExpenseSplit fetches a user's owed shares from the expense-splitting
// service. An owed share is money out, so amounts are negated.
type ExpenseSplit struct {
	client   *http.Client
	settings Settings
}

type splitExpense struct {
	ExpenseID   int64  `json:"expense_id"`
	Date        string `json:"date"` // 2006-01-02
	OwedShare   string `json:"owed_share"`
	Description string `json:"description"`
	PaidBy      string `json:"paid_by"`
}

type splitResponse struct {
	Expenses []splitExpense `json:"expenses"`
}

func (s *ExpenseSplit) Fetch(ctx context.Context, account repository.Account) ([]ledger.NormalizedItem, error) {
	url := fmt.Sprintf("%s/v1/groups/%s/expenses", s.settings.BaseURL, account.ID)
	var body splitResponse
	if err := getJSON(ctx, s.client, url, s.settings.APIToken, &body); err != nil {
		return nil, &Error{Provider: repository.ProviderExpenseSplit, Err: err}
	}

	out := make([]ledger.NormalizedItem, 0, len(body.Expenses))
	for _, e := range body.Expenses {
		cents, err := parseCents(e.OwedShare)
		if err != nil {
			return nil, &Error{Provider: repository.ProviderExpenseSplit, Err: err}
		}
		day, err := time.ParseInLocation(time.DateOnly, e.Date, time.UTC)
		if err != nil {
			return nil, &Error{Provider: repository.ProviderExpenseSplit, Err: fmt.Errorf("date %q: %w", e.Date, err)}
		}
		out = append(out, ledger.NormalizedItem{
			ExternalRef:   fmt.Sprintf("%d", e.ExpenseID),
			DateUnix:      day.Unix(),
			AmountCents:   -cents,
			Description:   e.Description,
			Counterparty:  e.PaidBy,
			PaymentMethod: "expense_split",
		})
	}
	return out, nil
}
