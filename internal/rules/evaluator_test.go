package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finfold/finfold/internal/database/repository"
)

func ref(s string) *string { return &s }

func TestCompileAndEval(t *testing.T) {
	t.Parallel()

	env, err := NewEnv()
	require.NoError(t, err)

	prg, err := env.Compile(`amount < -1000 && description.contains("CAFE")`)
	require.NoError(t, err)
	require.Equal(t, `amount < -1000 && description.contains("CAFE")`, prg.Source())

	items := []repository.LineItem{
		{ID: "a", Provider: repository.ProviderCardAggregator, ExternalRef: ref("tx1"), AmountCents: -1200, Description: "CAFE ALLEGRO"},
	}
	matched, err := prg.Eval(NewContext(items))
	require.NoError(t, err)
	require.True(t, matched)

	items[0].AmountCents = -500
	matched, err = prg.Eval(NewContext(items))
	require.NoError(t, err)
	require.False(t, matched)
}

func TestCompileRejectsNonBool(t *testing.T) {
	t.Parallel()

	env, err := NewEnv()
	require.NoError(t, err)

	_, err = env.Compile(`amount + 1`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boolean")
}

func TestCompileRejectsUnknownVariable(t *testing.T) {
	t.Parallel()

	env, err := NewEnv()
	require.NoError(t, err)

	require.Error(t, env.Validate(`merchant == "x"`))
	require.Error(t, env.Validate(`amount <`))
	require.NoError(t, env.Validate(`count > 1`))
}

func TestContextAggregation(t *testing.T) {
	t.Parallel()

	items := []repository.LineItem{
		{ID: "a", AmountCents: -1000, Description: "UBER TRIP"},
		{ID: "b", AmountCents: -250, Description: "UBER EATS"},
	}
	ctx := NewContext(items)
	require.Equal(t, int64(-1250), ctx.AmountCents)
	require.Equal(t, "UBER TRIP\nUBER EATS", ctx.Description)
	require.Equal(t, 2, ctx.Count)
	require.Len(t, ctx.Items, 2)
	require.Equal(t, int64(-250), ctx.Items[1]["amount"])
}

func TestEvalItemsList(t *testing.T) {
	t.Parallel()

	env, err := NewEnv()
	require.NoError(t, err)

	prg, err := env.Compile(`items.exists(i, i.payment_method == "peer_payment") && count == 2`)
	require.NoError(t, err)

	items := []repository.LineItem{
		{ID: "a", AmountCents: -4000, PaymentMethod: "credit_card"},
		{ID: "b", AmountCents: -4000, PaymentMethod: "peer_payment"},
	}
	matched, err := prg.Eval(NewContext(items))
	require.NoError(t, err)
	require.True(t, matched)

	matched, err = prg.Eval(NewContext(items[:1]))
	require.NoError(t, err)
	require.False(t, matched)
}
