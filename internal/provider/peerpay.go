package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/ledger"
)

// PeerPayment fetches payments from the peer-payment service. Amounts come
// back unsigned; the direction field decides the sign.
type PeerPayment struct {
	client   *http.Client
	settings Settings
}

type peerPayment struct {
	ID          string `json:"id"`
	CreatedTime int64  `json:"created_time"`
	TotalMoney  struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"total_money"`
	Note         string `json:"note"`
	Direction    string `json:"direction"` // outgoing | incoming
	Counterparty struct {
		DisplayName string `json:"display_name"`
	} `json:"counterparty"`
}

type peerPayResponse struct {
	Data []peerPayment `json:"data"`
}

func (p *PeerPayment) Fetch(ctx context.Context, account repository.Account) ([]ledger.NormalizedItem, error) {
	url := fmt.Sprintf("%s/v1/payments?account_id=%s", p.settings.BaseURL, account.ID)
	var body peerPayResponse
	if err := getJSON(ctx, p.client, url, p.settings.APIToken, &body); err != nil {
		return nil, &Error{Provider: repository.ProviderPeerPayment, Err: err}
	}

	out := make([]ledger.NormalizedItem, 0, len(body.Data))
	for _, pay := range body.Data {
		cents, err := parseCents(pay.TotalMoney.Amount)
		if err != nil {
			return nil, &Error{Provider: repository.ProviderPeerPayment, Err: err}
		}
		if pay.Direction == "outgoing" {
			cents = -cents
		}
		out = append(out, ledger.NormalizedItem{
			ExternalRef:   pay.ID,
			DateUnix:      pay.CreatedTime,
			AmountCents:   cents,
			Description:   pay.Note,
			Counterparty:  pay.Counterparty.DisplayName,
			PaymentMethod: "peer_payment",
		})
	}
	return out, nil
}
