// Package notify delivers duel events to users across API instances.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/duel-platform/internal/duel"
)

const DefaultChannel = "duel:events"

// envelope is the Pub/Sub wire format of a duel event.
type envelope struct {
	EventID          string         `json:"event_id"`
	UserID           int64          `json:"user_id"`
	Type             duel.EventType `json:"type"`
	DuelID           *int64         `json:"duel_id,omitempty"`
	OpponentNickname string         `json:"opponent_nickname,omitempty"`
	ConfigurationID  *int64         `json:"configuration_id,omitempty"`
}

// Publisher implements duel.Notifier over Redis Pub/Sub.
type Publisher struct {
	redis   *redis.Client
	channel string
}

var _ duel.Notifier = (*Publisher)(nil)

func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{redis: client, channel: channel}
}

func (p *Publisher) Notify(ctx context.Context, userID int64, evt duel.Event) error {
	data, err := json.Marshal(envelope{
		EventID:          uuid.NewString(),
		UserID:           userID,
		Type:             evt.Type,
		DuelID:           evt.DuelID,
		OpponentNickname: evt.OpponentNickname,
		ConfigurationID:  evt.ConfigurationID,
	})
	if err != nil {
		return err
	}
	if err := p.redis.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}
