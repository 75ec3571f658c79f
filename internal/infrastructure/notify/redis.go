package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"mazaochain-backend/internal/domain/event"
)

const defaultChannel = "mazao.events"

// Publisher pushes domain events onto a redis channel for the notification
// layer. At-least-once: subscribers de-duplicate by event id.
type Publisher struct {
	rdb     *redis.Client
	channel string
}

func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = defaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}
