package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCache_SetGet(t *testing.T) {
	mr, rdb := newTestClient(t)
	c := NewCache(rdb)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var got map[string]int
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, map[string]int{"a": 1}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)

	require.NoError(t, c.Set(ctx, "k2", "v", 0))
	require.NoError(t, c.Delete(ctx, "k2"))
	var s string
	assert.ErrorIs(t, c.Get(ctx, "k2", &s), ErrMiss)
	assert.NoError(t, c.Ping(ctx))
}

func TestModelEvents_PublishSubscribe(t *testing.T) {
	_, rdb := newTestClient(t)
	events := NewModelEvents(rdb, "intent:model:reload")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan ModelUpdate, 1)
	done := make(chan error, 1)
	go func() {
		done <- events.Subscribe(ctx, func(u ModelUpdate) { got <- u })
	}()

	want := ModelUpdate{Path: "/models/intent.json", RunID: "run-1"}
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, events.Channel()).Result()
		return err == nil && n[events.Channel()] == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, rdb.Publish(ctx, events.Channel(), "not json").Err())
	require.NoError(t, events.Publish(ctx, want))

	select {
	case u := <-got:
		assert.Equal(t, want, u)
	case <-time.After(2 * time.Second):
		t.Fatal("no model update received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
