package fake

import (
	"context"
	"errors"
	"testing"

	"petcare_settlement/internal/gateway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_IdempotentCreate(t *testing.T) {
	ctx := context.Background()
	g := New()
	params := &gateway.CreateIntentParams{Amount: decimal.RequireFromString("97.20"), Currency: "usd", IdempotencyKey: "k1"}

	first, err := g.CreateIntent(ctx, params)
	require.NoError(t, err)
	again, err := g.CreateIntent(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, int64(9720), first.AmountMinor)
	assert.Equal(t, 2, g.CreateCalls)

	other, err := g.CreateIntent(ctx, &gateway.CreateIntentParams{Amount: decimal.NewFromInt(1), Currency: "usd", IdempotencyKey: "k2"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGateway_CancelAndRefund(t *testing.T) {
	ctx := context.Background()
	g := New()
	in, err := g.CreateIntent(ctx, &gateway.CreateIntentParams{Amount: decimal.NewFromInt(10), Currency: "usd", IdempotencyKey: "k"})
	require.NoError(t, err)

	_, err = g.Refund(ctx, in.ID, "r1")
	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.True(t, gwErr.Declined)

	g.SetStatus(in.ID, gateway.IntentStatusSucceeded)
	// Cancelling a finished intent reports where it ended.
	got, err := g.CancelIntent(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, gateway.IntentStatusSucceeded, got.Status)

	assert.False(t, g.Refunded("r1"))
	r1, err := g.Refund(ctx, in.ID, "r1")
	require.NoError(t, err)
	assert.True(t, g.Refunded("r1"))
	r2, err := g.Refund(ctx, in.ID, "r1")
	require.NoError(t, err)
	assert.Equal(t, r1.ID, r2.ID)
}

func TestGateway_FailNext(t *testing.T) {
	ctx := context.Background()
	g := New()
	boom := errors.New("connection reset")
	g.FailNext(boom)

	_, err := g.CreateIntent(ctx, &gateway.CreateIntentParams{Amount: decimal.NewFromInt(1), Currency: "usd"})
	assert.ErrorIs(t, err, boom)

	_, err = g.CreateIntent(ctx, &gateway.CreateIntentParams{Amount: decimal.NewFromInt(1), Currency: "usd"})
	assert.NoError(t, err)

	_, err = g.GetIntent(ctx, "pi_missing")
	assert.Error(t, err)
}

func TestGateway_ParseWebhook(t *testing.T) {
	g := New()
	ev, err := g.ParseWebhook([]byte(`{"id":"evt","type":"intent.succeeded","intent_id":"pi_1"}`), "fake")
	require.NoError(t, err)
	assert.Equal(t, gateway.EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_1", ev.IntentID)

	_, err = g.ParseWebhook(nil, "real")
	assert.ErrorIs(t, err, gateway.ErrInvalidSignature)
}
