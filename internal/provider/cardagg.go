package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/ledger"
)

// CardAggregator fetches card and bank transactions from the aggregator API.
type CardAggregator struct {
	client   *http.Client
	settings Settings
}

type cardAggTransaction struct {
	TransactionID string `json:"transaction_id"`
	PostedAt      int64  `json:"posted_at"`
	Amount        string `json:"amount"`
	Merchant      string `json:"merchant"`
	PaymentMethod string `json:"payment_method"`
}

type cardAggResponse struct {
	Transactions []cardAggTransaction `json:"transactions"`
}

func (c *CardAggregator) Fetch(ctx context.Context, account repository.Account) ([]ledger.NormalizedItem, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/transactions", c.settings.BaseURL, account.ID)
	var body cardAggResponse
	if err := getJSON(ctx, c.client, url, c.settings.APIToken, &body); err != nil {
		return nil, &Error{Provider: repository.ProviderCardAggregator, Err: err}
	}

	out := make([]ledger.NormalizedItem, 0, len(body.Transactions))
	for _, tx := range body.Transactions {
		cents, err := parseCents(tx.Amount)
		if err != nil {
			return nil, &Error{Provider: repository.ProviderCardAggregator, Err: err}
		}
		out = append(out, ledger.NormalizedItem{
			ExternalRef:   tx.TransactionID,
			DateUnix:      tx.PostedAt,
			AmountCents:   cents,
			Description:   tx.Merchant,
			Counterparty:  tx.Merchant,
			PaymentMethod: tx.PaymentMethod,
		})
	}
	return out, nil
}
