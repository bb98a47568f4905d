package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Listen(ctx, client, "events", func(payload string) { got <- payload })
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("events")["events"] == 1
	}, time.Second, 10*time.Millisecond)

	mr.Publish("events", "one")
	mr.Publish("other", "ignored")
	mr.Publish("events", "two")

	assert.Equal(t, "one", <-got)
	assert.Equal(t, "two", <-got)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListen_Errors(t *testing.T) {
	err := Listen(context.Background(), nil, "events", func(string) {})
	assert.ErrorIs(t, err, ErrNoClient)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, Listen(ctx, client, "events", func(string) {}))
}
