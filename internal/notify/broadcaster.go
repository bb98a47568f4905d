package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/duel"
	"github.com/gokatarajesh/duel-platform/internal/pubsub"
	ws "github.com/gokatarajesh/duel-platform/pkg/http/ws"
)

// Sender is the part of ws.Hub the broadcaster needs.
type Sender interface {
	SendToUser(userID int64, msg ws.Message) error
}

// Broadcaster forwards duel events from Pub/Sub to locally connected users.
type Broadcaster struct {
	redis   *redis.Client
	hub     Sender
	channel string
	logger  zerolog.Logger
}

func NewBroadcaster(client *redis.Client, hub Sender, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{
		redis:   client,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "duel_event_broadcaster").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	return pubsub.Listen(ctx, b.redis, b.channel, b.forward)
}

func (b *Broadcaster) forward(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode duel event")
		return
	}

	msgType, ok := messageTypes[env.Type]
	if !ok {
		b.logger.Warn().Str("type", string(env.Type)).Msg("unknown duel event type")
		return
	}

	msg, err := ws.NewMessage(msgType, ws.DuelEventPayload{
		EventID:          env.EventID,
		DuelID:           env.DuelID,
		OpponentNickname: env.OpponentNickname,
		ConfigurationID:  env.ConfigurationID,
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal duel WS payload")
		return
	}

	if err := b.hub.SendToUser(env.UserID, msg); err != nil {
		// the user is connected to another instance, or not at all
		if errors.Is(err, ws.ErrConnectionNotFound) {
			return
		}
		b.logger.Warn().Err(err).Int64("user_id", env.UserID).Str("type", msgType).Msg("failed to deliver duel event")
	}
}

var messageTypes = map[duel.EventType]string{
	duel.EventDuelStarted:        ws.TypeDuelStarted,
	duel.EventDuelFinished:       ws.TypeDuelFinished,
	duel.EventSearchCanceled:     ws.TypeSearchCanceled,
	duel.EventInvitation:         ws.TypeInvitation,
	duel.EventInvitationCanceled: ws.TypeInvitationCanceled,
	duel.EventInvitationDenied:   ws.TypeInvitationDenied,
}
