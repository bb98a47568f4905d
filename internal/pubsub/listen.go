// Package pubsub runs Redis Pub/Sub subscription loops.
package pubsub

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrNoClient is returned by Listen when no Redis client is configured.
var ErrNoClient = errors.New("pubsub: redis client not configured")

// Listen subscribes to channel and calls handle for every payload until ctx
// is cancelled. handle runs on the subscription goroutine; slow handlers delay
// later messages. The subscription is confirmed before the loop starts so
// publishers racing with startup are not lost.
func Listen(ctx context.Context, client *redis.Client, channel string, handle func(payload string)) error {
	if client == nil {
		return ErrNoClient
	}

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handle(msg.Payload)
		}
	}
}
