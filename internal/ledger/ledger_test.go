package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finfold/finfold/internal/database"
	"github.com/finfold/finfold/internal/database/repository"
)

func newTestLedger(t *testing.T) (*Ledger, *sql.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(db))

	l := New(db, repository.NewLineItemRepo(db), repository.NewEventRepo(db))
	return l, db
}

func cardItems() []NormalizedItem {
	return []NormalizedItem{
		{ExternalRef: "tx1", DateUnix: 1_760_000_000, AmountCents: -1200, Description: "CAFE ALLEGRO", PaymentMethod: "credit_card"},
		{ExternalRef: "tx2", DateUnix: 1_760_086_400, AmountCents: -8000, Description: "GROCERY MART", PaymentMethod: "credit_card"},
	}
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	report, err := l.Merge(ctx, repository.ProviderCardAggregator, cardItems())
	require.NoError(t, err)
	require.Equal(t, 2, report.Inserted)
	require.Equal(t, 0, report.Updated)

	// same input again: nothing inserted, only refreshed
	report, err = l.Merge(ctx, repository.ProviderCardAggregator, cardItems())
	require.NoError(t, err)
	require.Equal(t, 0, report.Inserted)
	require.Equal(t, 2, report.Updated)

	items, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestMergeRefreshPreservesLocalState(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Merge(ctx, repository.ProviderCardAggregator, cardItems())
	require.NoError(t, err)

	items, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)
	var tx1 repository.LineItem
	for _, li := range items {
		if *li.ExternalRef == "tx1" {
			tx1 = li
		}
	}
	require.NotEmpty(t, tx1.ID)

	_, err = l.ToggleSelect(ctx, tx1.ID)
	require.NoError(t, err)

	// upstream revised the amount; selection and id must survive
	revised := cardItems()
	revised[0].AmountCents = -1250
	_, err = l.Merge(ctx, repository.ProviderCardAggregator, revised)
	require.NoError(t, err)

	got, err := l.GetMany(ctx, []string{tx1.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(-1250), got[0].AmountCents)
	require.True(t, got[0].Selected)
}

func TestMergeSameRefDifferentProviders(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	in := []NormalizedItem{{ExternalRef: "42", DateUnix: 1, AmountCents: -100}}
	_, err := l.Merge(ctx, repository.ProviderCardAggregator, in)
	require.NoError(t, err)
	report, err := l.Merge(ctx, repository.ProviderPeerPayment, in)
	require.NoError(t, err)
	require.Equal(t, 1, report.Inserted)

	items, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestMergeValidation(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Merge(ctx, repository.Provider("mystery"), nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = l.Merge(ctx, repository.ProviderCardAggregator, []NormalizedItem{
		{ExternalRef: "ok", DateUnix: 1, AmountCents: -100},
		{ExternalRef: "  ", DateUnix: 1, AmountCents: -100},
	})
	require.ErrorIs(t, err, ErrValidation)

	// the batch aborted whole
	items, listErr := l.ListUnreviewed(ctx)
	require.NoError(t, listErr)
	require.Empty(t, items)
}

func TestCreateEventFoldsItems(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Merge(ctx, repository.ProviderCardAggregator, cardItems())
	require.NoError(t, err)
	items, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	ids := []string{items[0].ID, items[1].ID}
	ev, err := l.CreateEvent(ctx, EventParams{Name: "weekly shop", LineItemIDs: ids})
	require.NoError(t, err)
	require.ElementsMatch(t, ids, ev.LineItemIDs)

	left, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)
	require.Empty(t, left)

	// folded items are no longer addressable
	_, err = l.ToggleSelect(ctx, ids[0])
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateEventDisjointness(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Merge(ctx, repository.ProviderCardAggregator, cardItems())
	require.NoError(t, err)
	items, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)

	_, err = l.CreateEvent(ctx, EventParams{Name: "first", LineItemIDs: []string{items[0].ID}})
	require.NoError(t, err)

	// reusing a folded item fails and leaves the free item untouched
	_, err = l.CreateEvent(ctx, EventParams{Name: "second", LineItemIDs: []string{items[0].ID, items[1].ID}})
	require.ErrorIs(t, err, ErrConflict)

	left, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, items[1].ID, left[0].ID)
}

func TestCreateEventMissingIDs(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Merge(ctx, repository.ProviderCardAggregator, cardItems())
	require.NoError(t, err)
	items, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)

	_, err = l.CreateEvent(ctx, EventParams{Name: "bad", LineItemIDs: []string{items[0].ID, "ghost"}})
	require.ErrorIs(t, err, ErrPartialNotFound)

	left, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)
	require.Len(t, left, 2)

	_, err = l.CreateEvent(ctx, EventParams{Name: "", LineItemIDs: []string{items[0].ID}})
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.CreateEvent(ctx, EventParams{Name: "empty"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDeleteEventRestoresItems(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Merge(ctx, repository.ProviderCardAggregator, cardItems())
	require.NoError(t, err)
	items, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)

	// select one first to prove deletion clears selection
	_, err = l.ToggleSelect(ctx, items[0].ID)
	require.NoError(t, err)

	ids := []string{items[0].ID, items[1].ID}
	ev, err := l.CreateEvent(ctx, EventParams{Name: "shop", LineItemIDs: ids})
	require.NoError(t, err)

	restored, err := l.DeleteEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, ids, restored)

	back, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)
	require.Len(t, back, 2)
	for _, li := range back {
		require.False(t, li.Selected)
		require.Nil(t, li.EventID)
	}

	_, err = l.DeleteEvent(ctx, ev.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestManualEntries(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	li, err := l.AddManual(ctx, ManualParams{
		DateUnix: 1_760_000_000, AmountCents: -2500, Description: "farmers market", PaymentMethod: "cash",
	})
	require.NoError(t, err)
	require.True(t, li.Manual())
	require.Nil(t, li.ExternalRef)

	_, err = l.AddManual(ctx, ManualParams{DateUnix: 1, AmountCents: -1})
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, l.DeleteManual(ctx, li.ID))
	require.ErrorIs(t, l.DeleteManual(ctx, li.ID), ErrNotFound)

	// provider-sourced items cannot be deleted
	_, err = l.Merge(ctx, repository.ProviderCardAggregator, cardItems()[:1])
	require.NoError(t, err)
	items, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, l.DeleteManual(ctx, items[0].ID), ErrNotManual)
}

func TestGetManyPartial(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Merge(ctx, repository.ProviderCardAggregator, cardItems()[:1])
	require.NoError(t, err)
	items, err := l.ListUnreviewed(ctx)
	require.NoError(t, err)

	got, err := l.GetMany(ctx, []string{items[0].ID})
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = l.GetMany(ctx, []string{items[0].ID, "ghost"})
	require.ErrorIs(t, err, ErrPartialNotFound)
}
