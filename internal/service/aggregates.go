package service

import (
	"context"
	"sync"
	"time"

	"github.com/Rhymond/go-money"

	"github.com/finfold/finfold/internal/database"
	"github.com/finfold/finfold/internal/database/repository"
)

// Balance is one provider's summed position.
type Balance struct {
	Provider   repository.Provider `json:"provider"`
	TotalCents int64               `json:"total_cents"`
	Display    string              `json:"display"`
}

// MonthBreakdown is one calendar month's total.
type MonthBreakdown struct {
	Month      string `json:"month"`
	TotalCents int64  `json:"total_cents"`
	Display    string `json:"display"`
}

// Snapshot is the cached aggregate view served to clients. Items folded into
// duplicate-flagged events are excluded from every total.
type Snapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Balances    []Balance        `json:"balances"`
	Monthly     []MonthBreakdown `json:"monthly"`
}

// AggregateCache recomputes and serves balance and monthly breakdowns.
// Recompute runs after merges; readers get the latest completed snapshot.
type AggregateCache struct {
	items        *repository.LineItemRepo
	currencyCode string

	mu   sync.RWMutex
	snap *Snapshot
}

func NewAggregateCache(items *repository.LineItemRepo, currencyCode string) *AggregateCache {
	if currencyCode == "" {
		currencyCode = money.USD
	}
	return &AggregateCache{items: items, currencyCode: currencyCode}
}

func (a *AggregateCache) Recompute(ctx context.Context) error {
	provBalances, err := a.items.BalancesByProvider(ctx)
	if err != nil {
		return err
	}
	months, err := a.items.MonthlyTotals(ctx)
	if err != nil {
		return err
	}

	snap := &Snapshot{GeneratedAt: database.Now()}
	for _, pb := range provBalances {
		snap.Balances = append(snap.Balances, Balance{
			Provider:   pb.Provider,
			TotalCents: pb.TotalCents,
			Display:    money.New(pb.TotalCents, a.currencyCode).Display(),
		})
	}
	for _, mt := range months {
		snap.Monthly = append(snap.Monthly, MonthBreakdown{
			Month:      mt.Month,
			TotalCents: mt.TotalCents,
			Display:    money.New(mt.TotalCents, a.currencyCode).Display(),
		})
	}

	a.mu.Lock()
	a.snap = snap
	a.mu.Unlock()
	return nil
}

// Snapshot returns the latest completed snapshot, or nil before the first
// recompute.
func (a *AggregateCache) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}
