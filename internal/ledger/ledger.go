// Package ledger owns the authoritative set of line items: idempotent
// merge-on-sync, selection state, and folding items into events. All
// mutation goes through the Ledger handle; there is no ambient shared state.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/finfold/finfold/internal/database"
	"github.com/finfold/finfold/internal/database/repository"
)

var (
	// ErrNotFound marks an operation on an absent (or already folded) item.
	ErrNotFound = errors.New("line item not found")
	// ErrPartialNotFound marks a bulk removal naming at least one absent id.
	// No partial removal is performed.
	ErrPartialNotFound = errors.New("one or more line items not found")
	// ErrConflict marks an event creation referencing an item already
	// attached to another event.
	ErrConflict = errors.New("line item already attached to an event")
	// ErrNotManual marks a delete of a provider-sourced item.
	ErrNotManual = errors.New("line item is not a manual entry")
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("invalid ledger input")
)

// NormalizedItem is a provider's fetch output, ready to merge.
type NormalizedItem struct {
	ExternalRef   string
	DateUnix      int64
	AmountCents   int64
	Description   string
	Counterparty  string
	PaymentMethod string
}

// MergeReport counts the outcome of one merge call.
type MergeReport struct {
	Inserted int
	Updated  int
}

// Ledger is the line-item store handle.
type Ledger struct {
	db     *sql.DB
	items  *repository.LineItemRepo
	events *repository.EventRepo

	// mu serializes user-driven mutation (selection toggles, event
	// creation/deletion) so overlapping operations never interleave.
	mu sync.Mutex

	// provMu guards provLocks; each provider's merges are serialized on
	// their own lock so distinct providers can merge concurrently.
	provMu    sync.Mutex
	provLocks map[repository.Provider]*sync.Mutex
}

func New(db *sql.DB, items *repository.LineItemRepo, events *repository.EventRepo) *Ledger {
	return &Ledger{
		db:        db,
		items:     items,
		events:    events,
		provLocks: make(map[repository.Provider]*sync.Mutex),
	}
}

func (l *Ledger) providerLock(p repository.Provider) *sync.Mutex {
	l.provMu.Lock()
	defer l.provMu.Unlock()
	mu, ok := l.provLocks[p]
	if !ok {
		mu = &sync.Mutex{}
		l.provLocks[p] = mu
	}
	return mu
}

// Merge upserts a provider's normalized items keyed by (provider,
// externalRef). New items arrive unreviewed and unselected; existing items
// keep id, reviewed, selected and event membership while the synced fields
// refresh. Merging the same input twice inserts nothing the second time.
func (l *Ledger) Merge(ctx context.Context, prov repository.Provider, in []NormalizedItem) (MergeReport, error) {
	if !repository.KnownProvider(prov) {
		return MergeReport{}, fmt.Errorf("%w: unknown provider %q", ErrValidation, prov)
	}
	mu := l.providerLock(prov)
	mu.Lock()
	defer mu.Unlock()

	var report MergeReport
	err := database.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		for _, item := range in {
			ref := strings.TrimSpace(item.ExternalRef)
			if ref == "" {
				return fmt.Errorf("%w: item without external ref", ErrValidation)
			}
			existing, err := l.items.FindBySource(ctx, tx, prov, ref)
			if err != nil {
				return err
			}
			if existing != nil {
				if err := l.items.UpdateSyncedFields(ctx, tx, existing.ID, repository.LineItem{
					DateUnix:      item.DateUnix,
					AmountCents:   item.AmountCents,
					Description:   item.Description,
					Counterparty:  item.Counterparty,
					PaymentMethod: item.PaymentMethod,
				}); err != nil {
					return err
				}
				report.Updated++
				continue
			}
			if err := l.items.Insert(ctx, tx, repository.LineItem{
				ID:            uuid.NewString(),
				Provider:      prov,
				ExternalRef:   &ref,
				DateUnix:      item.DateUnix,
				AmountCents:   item.AmountCents,
				Description:   item.Description,
				Counterparty:  item.Counterparty,
				PaymentMethod: item.PaymentMethod,
			}); err != nil {
				return err
			}
			report.Inserted++
		}
		return nil
	})
	if err != nil {
		return MergeReport{}, err
	}
	return report, nil
}

// ListUnreviewed returns reviewable items, newest first, id as tiebreak.
func (l *Ledger) ListUnreviewed(ctx context.Context) ([]repository.LineItem, error) {
	return l.items.List(ctx, repository.LineItemFilters{ReviewableOnly: true})
}

// List applies the given filters.
func (l *Ledger) List(ctx context.Context, f repository.LineItemFilters) ([]repository.LineItem, error) {
	return l.items.List(ctx, f)
}

// GetMany resolves ids to items; every id must resolve.
func (l *Ledger) GetMany(ctx context.Context, ids []string) ([]repository.LineItem, error) {
	items, err := l.items.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(items) != len(ids) {
		return nil, ErrPartialNotFound
	}
	return items, nil
}

// ToggleSelect flips an item's selection. Items already folded into an event
// are not addressable.
func (l *Ledger) ToggleSelect(ctx context.Context, id string) (*repository.LineItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	li, err := l.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if li == nil || li.EventID != nil {
		return nil, ErrNotFound
	}
	if err := l.items.SetSelected(ctx, nil, id, !li.Selected); err != nil {
		return nil, err
	}
	li.Selected = !li.Selected
	return li, nil
}

// EventParams describes an event to create from reviewable items.
type EventParams struct {
	Name        string
	CategoryID  *string
	DateUnix    *int64
	IsDuplicate bool
	LineItemIDs []string
}

// CreateEvent atomically creates the event and removes its items from the
// reviewable set. If any id is absent the call fails with ErrPartialNotFound;
// if any id already belongs to an event it fails with ErrConflict. Either
// way no item is touched.
func (l *Ledger) CreateEvent(ctx context.Context, p EventParams) (*repository.Event, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: event name required", ErrValidation)
	}
	if len(p.LineItemIDs) == 0 {
		return nil, fmt.Errorf("%w: event needs at least one line item", ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ev := repository.Event{
		ID:          uuid.NewString(),
		Name:        p.Name,
		CategoryID:  p.CategoryID,
		DateUnix:    p.DateUnix,
		IsDuplicate: p.IsDuplicate,
	}
	err := database.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if err := l.events.InsertTx(ctx, tx, ev); err != nil {
			return err
		}
		missing, conflicted, err := l.items.AttachToEvent(ctx, tx, ev.ID, p.LineItemIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrPartialNotFound, strings.Join(missing, ", "))
		}
		if len(conflicted) > 0 {
			return fmt.Errorf("%w: %s", ErrConflict, strings.Join(conflicted, ", "))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l.events.Get(ctx, ev.ID)
}

// DeleteEvent reverses a grouping: its items return to the reviewable set
// with selection cleared, and the event row is removed. The items themselves
// are never deleted here.
func (l *Ledger) DeleteEvent(ctx context.Context, eventID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var restored []string
	err := database.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		ids, err := l.items.DetachFromEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		n, err := l.events.DeleteTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: event %s", ErrNotFound, eventID)
		}
		restored = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// ManualParams describes a cash entry with no provider source.
type ManualParams struct {
	DateUnix      int64
	AmountCents   int64
	Description   string
	Counterparty  string
	PaymentMethod string
}

// AddManual inserts a provider-less line item. Manual entries are the only
// items eligible for DeleteManual.
func (l *Ledger) AddManual(ctx context.Context, p ManualParams) (*repository.LineItem, error) {
	if strings.TrimSpace(p.Description) == "" {
		return nil, fmt.Errorf("%w: description required", ErrValidation)
	}
	li := repository.LineItem{
		ID:            uuid.NewString(),
		DateUnix:      p.DateUnix,
		AmountCents:   p.AmountCents,
		Description:   p.Description,
		Counterparty:  p.Counterparty,
		PaymentMethod: p.PaymentMethod,
	}
	if err := l.items.Insert(ctx, nil, li); err != nil {
		return nil, err
	}
	return l.items.Get(ctx, li.ID)
}

// DeleteManual permanently deletes a manual entry. Provider-sourced items
// are rejected; they leave the ledger only by folding into an event.
func (l *Ledger) DeleteManual(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	li, err := l.items.Get(ctx, id)
	if err != nil {
		return err
	}
	if li == nil {
		return ErrNotFound
	}
	if !li.Manual() {
		return ErrNotManual
	}
	return l.items.Delete(ctx, id)
}
