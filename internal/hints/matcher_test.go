package hints

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finfold/finfold/internal/database/repository"
)

func sref(s string) *string { return &s }

func TestSuggestFirstMatchWins(t *testing.T) {
	t.Parallel()
	store, matcher, _ := newTestStore(t)
	ctx := context.Background()

	// order 0 does not match, orders 1 and 2 both do; 1 must win
	_, err := store.Create(ctx, CreateParams{
		Name: "never", Expression: `amount > 0`, PrefillName: "Never",
		DisplayOrder: intp(0), Active: true,
	})
	require.NoError(t, err)
	winner, err := store.Create(ctx, CreateParams{
		Name: "winner", Expression: `amount < -1000`, PrefillName: "Winner",
		DisplayOrder: intp(1), Active: true,
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, CreateParams{
		Name: "shadowed", Expression: `count >= 1`, PrefillName: "Shadowed",
		DisplayOrder: intp(2), Active: true,
	})
	require.NoError(t, err)

	items := []repository.LineItem{
		{ID: "a", Provider: repository.ProviderCardAggregator, ExternalRef: sref("tx1"), AmountCents: -1200, Description: "CAFE"},
	}
	sg, err := matcher.Suggest(ctx, items)
	require.NoError(t, err)
	require.NotNil(t, sg)
	require.Equal(t, winner.ID, sg.MatchedHintID)
	require.Equal(t, "winner", sg.MatchedHintName)
	require.Equal(t, "Winner", sg.Name)
}

func TestSuggestNoMatchIsNil(t *testing.T) {
	t.Parallel()
	store, matcher, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, CreateParams{
		Name: "income", Expression: `amount > 0`, PrefillName: "Income", Active: true,
	})
	require.NoError(t, err)

	sg, err := matcher.Suggest(ctx, []repository.LineItem{{ID: "a", AmountCents: -500}})
	require.NoError(t, err)
	require.Nil(t, sg)
}

func TestSuggestEmptySelection(t *testing.T) {
	t.Parallel()
	_, matcher, _ := newTestStore(t)

	_, err := matcher.Suggest(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptySelection)
}

func TestSuggestSkipsInactive(t *testing.T) {
	t.Parallel()
	store, matcher, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, CreateParams{
		Name: "off", Expression: `count >= 1`, PrefillName: "Off",
		DisplayOrder: intp(0), Active: false,
	})
	require.NoError(t, err)
	on, err := store.Create(ctx, CreateParams{
		Name: "on", Expression: `count >= 1`, PrefillName: "On",
		DisplayOrder: intp(1), Active: true,
	})
	require.NoError(t, err)

	sg, err := matcher.Suggest(ctx, []repository.LineItem{{ID: "a"}})
	require.NoError(t, err)
	require.NotNil(t, sg)
	require.Equal(t, on.ID, sg.MatchedHintID)
}

func TestSuggestSkipsBrokenHint(t *testing.T) {
	t.Parallel()
	store, matcher, db := newTestStore(t)
	ctx := context.Background()

	// corrupt an expression behind the store's back
	broken, err := store.Create(ctx, CreateParams{
		Name: "broken", Expression: `count >= 1`, PrefillName: "Broken",
		DisplayOrder: intp(0), Active: true,
	})
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE hints SET expression = 'garbage ==' WHERE id = ?`, broken.ID)
	require.NoError(t, err)

	good, err := store.Create(ctx, CreateParams{
		Name: "good", Expression: `count >= 1`, PrefillName: "Good",
		DisplayOrder: intp(1), Active: true,
	})
	require.NoError(t, err)

	sg, err := matcher.Suggest(ctx, []repository.LineItem{{ID: "a"}})
	require.NoError(t, err)
	require.NotNil(t, sg)
	require.Equal(t, good.ID, sg.MatchedHintID)
}

func TestSuggestCacheInvalidatesOnEdit(t *testing.T) {
	t.Parallel()
	store, matcher, _ := newTestStore(t)
	ctx := context.Background()

	h, err := store.Create(ctx, CreateParams{
		Name: "amt", Expression: `amount < -1000`, PrefillName: "Big", Active: true,
	})
	require.NoError(t, err)

	items := []repository.LineItem{{ID: "a", AmountCents: -500}}
	sg, err := matcher.Suggest(ctx, items)
	require.NoError(t, err)
	require.Nil(t, sg)

	expr := `amount < -100`
	_, err = store.Update(ctx, h.ID, UpdateParams{Expression: &expr})
	require.NoError(t, err)

	sg, err = matcher.Suggest(ctx, items)
	require.NoError(t, err)
	require.NotNil(t, sg)
	require.Equal(t, h.ID, sg.MatchedHintID)
}
