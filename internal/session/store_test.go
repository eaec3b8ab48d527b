package session_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-api/internal/session"
)

func newStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &session.RedisStore{R: client, TTL: time.Minute}, mr
}

func TestRecordAndConsumeOnce(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	rec := session.Record{PaymentID: "pay_123", OrderID: "order_abc", Amount: 100, Method: "card"}
	require.NoError(t, store.Record(ctx, "user-1", rec))

	got, err := store.Consume(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, rec, got)

	_, err = store.Consume(ctx, "user-1")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestConsumeWithoutRecord(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Consume(context.Background(), "user-1")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestRecordOverwritesPrevious(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "user-1", session.Record{PaymentID: "pay_old", OrderID: "order_old", Amount: 100}))
	require.NoError(t, store.Record(ctx, "user-1", session.Record{PaymentID: "pay_new", OrderID: "order_new", Amount: 100}))

	got, err := store.Consume(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "pay_new", got.PaymentID)
}

func TestSessionsAreIsolated(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "user-1", session.Record{PaymentID: "pay_1", OrderID: "order_1", Amount: 100}))

	_, err := store.Consume(ctx, "user-2")
	require.ErrorIs(t, err, session.ErrNotFound)

	got, err := store.Consume(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "pay_1", got.PaymentID)
}

func TestRecordExpires(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "user-1", session.Record{PaymentID: "pay_1", OrderID: "order_1", Amount: 100}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "user-1")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestEmptySessionID(t *testing.T) {
	store, _ := newStore(t)

	require.Error(t, store.Record(context.Background(), " ", session.Record{PaymentID: "pay_1"}))
	_, err := store.Consume(context.Background(), "")
	require.Error(t, err)
	require.NotErrorIs(t, err, session.ErrNotFound)
}
