package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pscheid92/votepulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Bus carries topic messages between instances over Redis pub/sub.
// Delivery is at-most-once: subscribers that are down miss messages.
type Bus struct {
	rdb *goredis.Client
}

var _ domain.Bus = (*Bus)(nil)

func NewBus(rdb *goredis.Client) *Bus {
	return &Bus{rdb: rdb}
}

func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe blocks until ctx is done. Patterns containing glob characters use
// PSUBSCRIBE, plain topics use SUBSCRIBE.
func (b *Bus) Subscribe(ctx context.Context, pattern string, handler domain.Handler) error {
	var pubsub *goredis.PubSub
	if strings.ContainsAny(pattern, "*?[") {
		pubsub = b.rdb.PSubscribe(ctx, pattern)
	} else {
		pubsub = b.rdb.Subscribe(ctx, pattern)
	}
	defer func() { _ = pubsub.Close() }()

	// Receive the confirmation so a failed subscribe is reported to the caller.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == "" {
				slog.Warn("Empty bus message", "topic", msg.Channel)
				continue
			}
			handler(msg.Channel, []byte(msg.Payload))
		case <-ctx.Done():
			return nil
		}
	}
}
