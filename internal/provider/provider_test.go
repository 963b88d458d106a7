package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finfold/finfold/internal/database/repository"
)

func TestParseCents(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"-12.00":  -1200,
		"-12.5":   -1250,
		"0":       0,
		"45.505":  4551,
		"1000.99": 100099,
	}
	for in, want := range cases {
		got, err := parseCents(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := parseCents("not money")
	require.Error(t, err)
}

func TestCardAggregatorFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts/card-1/transactions", r.URL.Path)
		require.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transactions":[
			{"transaction_id":"tx1","posted_at":1760000000,"amount":"-12.00","merchant":"CAFE ALLEGRO","payment_method":"credit_card"}
		]}`))
	}))
	defer srv.Close()

	f := &CardAggregator{client: srv.Client(), settings: Settings{BaseURL: srv.URL, APIToken: "sekrit"}}
	items, err := f.Fetch(context.Background(), repository.Account{ID: "card-1", Provider: repository.ProviderCardAggregator})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "tx1", items[0].ExternalRef)
	require.Equal(t, int64(-1200), items[0].AmountCents)
	require.Equal(t, "CAFE ALLEGRO", items[0].Description)
	require.Equal(t, int64(1760000000), items[0].DateUnix)
}

func TestPeerPaymentSignsByDirection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "peer-1", r.URL.Query().Get("account_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"p1","created_time":1760000000,"total_money":{"amount":"20.00","currency":"USD"},"note":"rent share","direction":"outgoing","counterparty":{"display_name":"Sam"}},
			{"id":"p2","created_time":1760000001,"total_money":{"amount":"5.00","currency":"USD"},"note":"thanks","direction":"incoming","counterparty":{"display_name":"Alex"}}
		]}`))
	}))
	defer srv.Close()

	f := &PeerPayment{client: srv.Client(), settings: Settings{BaseURL: srv.URL}}
	items, err := f.Fetch(context.Background(), repository.Account{ID: "peer-1", Provider: repository.ProviderPeerPayment})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, int64(-2000), items[0].AmountCents)
	require.Equal(t, int64(500), items[1].AmountCents)
	require.Equal(t, "peer_payment", items[0].PaymentMethod)
	require.Equal(t, "Sam", items[0].Counterparty)
}

func TestExpenseSplitNegatesOwedShare(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/groups/house/expenses", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"expenses":[
			{"expense_id":9001,"date":"2026-08-15","owed_share":"45.50","description":"utilities","paid_by":"Robin"}
		]}`))
	}))
	defer srv.Close()

	f := &ExpenseSplit{client: srv.Client(), settings: Settings{BaseURL: srv.URL}}
	items, err := f.Fetch(context.Background(), repository.Account{ID: "house", Provider: repository.ProviderExpenseSplit})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "9001", items[0].ExternalRef)
	require.Equal(t, int64(-4550), items[0].AmountCents)
	require.Equal(t, "expense_split", items[0].PaymentMethod)
	// midnight UTC of the expense date
	require.Equal(t, int64(1786752000), items[0].DateUnix)
}

func TestFetchErrorCarriesProvider(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := &CardAggregator{client: srv.Client(), settings: Settings{BaseURL: srv.URL}}
	_, err := f.Fetch(context.Background(), repository.Account{ID: "card-1"})
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	require.Equal(t, repository.ProviderCardAggregator, perr.Provider)
	require.Contains(t, err.Error(), "503")
}
