package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/finfold/finfold/internal/database"
	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/ledger"
	"github.com/finfold/finfold/internal/provider"
)

// ErrAccountNotFound marks a refresh request for an unknown account.
var ErrAccountNotFound = errors.New("account not found")

// Sync outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// SyncResult reports one account's refresh. It is ephemeral: returned to the
// caller, never persisted.
type SyncResult struct {
	AccountID   string `json:"account_id"`
	Outcome     string `json:"outcome"`
	ItemsMerged int    `json:"items_merged"`
	Error       string `json:"error,omitempty"`
}

// Syncer drives concurrent refresh of balances and transactions across the
// external sources, merging each account's output into the ledger. One
// account's failure never prevents the others from completing.
type Syncer struct {
	ledger       *ledger.Ledger
	accounts     *repository.AccountRepo
	fetchers     map[repository.Provider]provider.Fetcher
	aggregates   *AggregateCache
	fetchTimeout time.Duration

	// inFlight rejects a second concurrent refresh of the same account so
	// two fetches can never race a merge for one source.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSyncer(l *ledger.Ledger, accounts *repository.AccountRepo, fetchers map[repository.Provider]provider.Fetcher, aggregates *AggregateCache, fetchTimeout time.Duration) *Syncer {
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Syncer{
		ledger:       l,
		accounts:     accounts,
		fetchers:     fetchers,
		aggregates:   aggregates,
		fetchTimeout: fetchTimeout,
		inFlight:     make(map[string]struct{}),
	}
}

// RefreshAll syncs every active account. Accounts fan out on a pool bounded
// by the number of distinct providers involved, since each provider's rate
// limits are independent; results come back in account order.
func (s *Syncer) RefreshAll(ctx context.Context) ([]SyncResult, error) {
	accounts, err := s.accounts.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	providers := make(map[repository.Provider]struct{}, len(accounts))
	for _, a := range accounts {
		providers[a.Provider] = struct{}{}
	}

	results := make([]SyncResult, len(accounts))
	var g errgroup.Group
	g.SetLimit(len(providers))
	for i, acct := range accounts {
		i, acct := i, acct
		g.Go(func() error {
			results[i] = s.refresh(ctx, acct)
			return nil
		})
	}
	_ = g.Wait()

	s.recomputeAggregates(ctx, results)
	return results, nil
}

// RefreshOne syncs a single account, active or not; inactive accounts stay
// syncable for reactivation.
func (s *Syncer) RefreshOne(ctx context.Context, accountID string) (SyncResult, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return SyncResult{}, err
	}
	if acct == nil {
		return SyncResult{}, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	res := s.refresh(ctx, *acct)
	s.recomputeAggregates(ctx, []SyncResult{res})
	return res, nil
}

func (s *Syncer) refresh(ctx context.Context, acct repository.Account) SyncResult {
	res := SyncResult{AccountID: acct.ID, Outcome: OutcomeError}

	if !s.begin(acct.ID) {
		res.Error = "sync already in progress"
		return res
	}
	defer s.end(acct.ID)

	fetcher, ok := s.fetchers[acct.Provider]
	if !ok {
		res.Error = fmt.Sprintf("no fetcher for provider %s", acct.Provider)
		return res
	}

	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	items, err := fetcher.Fetch(fctx, acct)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			res.Error = "timeout"
		} else {
			res.Error = err.Error()
		}
		return res
	}

	report, err := s.ledger.Merge(ctx, acct.Provider, items)
	if err != nil {
		res.Error = fmt.Sprintf("merge: %v", err)
		return res
	}
	if err := s.accounts.MarkSynced(ctx, acct.ID, database.Now()); err != nil {
		log.Printf("account %s: mark synced: %v", acct.ID, err)
	}

	res.Outcome = OutcomeOK
	res.ItemsMerged = report.Inserted + report.Updated
	return res
}

// recomputeAggregates refreshes cached balances after any successful merge.
// Best effort: a recompute failure is logged and never rolls back a merge.
func (s *Syncer) recomputeAggregates(ctx context.Context, results []SyncResult) {
	if s.aggregates == nil {
		return
	}
	for _, r := range results {
		if r.Outcome == OutcomeOK {
			if err := s.aggregates.Recompute(ctx); err != nil {
				log.Printf("aggregate recompute: %v", err)
			}
			return
		}
	}
}

func (s *Syncer) begin(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[accountID]; busy {
		return false
	}
	s.inFlight[accountID] = struct{}{}
	return true
}

func (s *Syncer) end(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, accountID)
}
