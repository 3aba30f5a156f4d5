package memory

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/pscheid92/votepulse/internal/domain"
)

const subscriberBuffer = 64

type message struct {
	topic   string
	payload []byte
}

type subscriber struct {
	pattern string
	ch      chan message
}

// Bus is an in-process message bus. Delivery is at-most-once: a subscriber
// whose buffer is full misses the message.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*subscriber]struct{})}
}

func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if ok, _ := path.Match(sub.pattern, topic); !ok {
			continue
		}
		select {
		case sub.ch <- message{topic: topic, payload: payload}:
		default:
			slog.WarnContext(ctx, "Bus subscriber buffer full, dropping message", "topic", topic, "pattern", sub.pattern)
		}
	}
	return nil
}

// Subscribe blocks, delivering matching messages to handler until ctx is done.
// Patterns use path.Match syntax, e.g. "user:*".
func (b *Bus) Subscribe(ctx context.Context, pattern string, handler domain.Handler) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	sub := &subscriber{pattern: pattern, ch: make(chan message, subscriberBuffer)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-sub.ch:
			handler(msg.topic, msg.payload)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
