package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pscheid92/votepulse/internal/adapter/metrics"
	"github.com/pscheid92/votepulse/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Publisher delivers a payload to every local subscriber of a channel.
type Publisher interface {
	Publish(channel string, data []byte) error
}

// Relay forwards bus messages to websocket channels on this instance.
type Relay struct {
	bus       domain.Bus
	publisher Publisher
	wsMetrics *metrics.WebSocketMetrics
}

func NewRelay(bus domain.Bus, publisher Publisher, wsMetrics *metrics.WebSocketMetrics) *Relay {
	return &Relay{bus: bus, publisher: publisher, wsMetrics: wsMetrics}
}

// Run subscribes to the voting topic and all user topics until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, pattern := range []string{domain.TopicVoting, domain.UserTopicPattern} {
		g.Go(func() error {
			if err := r.bus.Subscribe(ctx, pattern, r.forward); err != nil {
				return fmt.Errorf("subscribe %s: %w", pattern, err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (r *Relay) forward(topic string, payload []byte) {
	if err := r.publisher.Publish(topic, payload); err != nil {
		slog.Error("Failed to relay bus message", "topic", topic, "error", err)
		if r.wsMetrics != nil {
			r.wsMetrics.RelayErrors.Inc()
		}
		return
	}

	if r.wsMetrics != nil {
		r.wsMetrics.MessagesRelayed.WithLabelValues(channelKind(topic)).Inc()
	}
}

func channelKind(topic string) string {
	if strings.HasPrefix(topic, "user:") {
		return "user"
	}
	return "voting"
}
