package leaderboard

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/pubsub"
	ws "github.com/gokatarajesh/duel-platform/pkg/http/ws"
)

// Fanout delivers a message to every connected user.
type Fanout interface {
	BroadcastAll(msg ws.Message) error
}

// Broadcaster relays rating leaderboard changes from Pub/Sub to every socket
// on this instance.
type Broadcaster struct {
	redis   *redis.Client
	hub     Fanout
	channel string
	logger  zerolog.Logger
}

func NewBroadcaster(redis *redis.Client, hub Fanout, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = defaultChannel
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "leaderboard_broadcaster").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	return pubsub.Listen(ctx, b.redis, b.channel, b.forward)
}

func (b *Broadcaster) forward(payload string) {
	var update ws.LeaderboardUpdatePayload
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		b.logger.Warn().Err(err).Msg("dropping malformed leaderboard update")
		return
	}
	// an update without rows carries nothing clients can render
	if len(update.Top) == 0 {
		return
	}

	msg, err := ws.NewMessage(ws.TypeLeaderboardUpdate, update)
	if err != nil {
		b.logger.Warn().Err(err).Msg("encode leaderboard update")
		return
	}
	if err := b.hub.BroadcastAll(msg); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", update.UserID).Msg("leaderboard fan-out incomplete")
	}
}
