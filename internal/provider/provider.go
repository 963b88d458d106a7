// Package provider implements fetch-and-normalize clients for the external
// transaction sources. Each source is one Fetcher; the orchestrator selects
// by the account's provider tag instead of branching on provider names.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/ledger"
)

// Fetcher pulls an account's transactions from its source and normalizes
// them into ledger input. Implementations must honor ctx cancellation; every
// call the orchestrator makes carries a deadline.
type Fetcher interface {
	Fetch(ctx context.Context, account repository.Account) ([]ledger.NormalizedItem, error)
}

// Error wraps an upstream failure with its source so the orchestrator can
// report it per account without aborting the refresh.
type Error struct {
	Provider repository.Provider
	Err      error
}

func (e *Error) Error() string { return fmt.Sprintf("provider %s: %v", e.Provider, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Settings configures one provider client.
type Settings struct {
	BaseURL  string
	APIToken string
}

// Registry builds the fetcher per provider tag. The shared client should
// carry no timeout of its own; deadlines come from the caller's context.
func Registry(client *http.Client, cardagg, peerpay, expensesplit Settings) map[repository.Provider]Fetcher {
	return map[repository.Provider]Fetcher{
		repository.ProviderCardAggregator: &CardAggregator{client: client, settings: cardagg},
		repository.ProviderPeerPayment:    &PeerPayment{client: client, settings: peerpay},
		repository.ProviderExpenseSplit:   &ExpenseSplit{client: client, settings: expensesplit},
	}
}

// parseCents converts a decimal money string to signed integer cents,
// rounding half-up at the third decimal. Fixed-point end to end; no floats.
func parseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func getJSON(ctx context.Context, client *http.Client, url, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
