package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/adapter/metrics"
	"github.com/pscheid92/votepulse/internal/domain"
)

const DefaultBroadcastTimeout = 2 * time.Second

// Emitter publishes committed vote updates to the voting topic. Delivery is
// at-most-once: failures are logged and counted, never returned.
type Emitter struct {
	bus     domain.Bus
	clock   clockwork.Clock
	timeout time.Duration
	metrics *metrics.VoteMetrics
}

func NewEmitter(bus domain.Bus, clock clockwork.Clock, timeout time.Duration, voteMetrics *metrics.VoteMetrics) *Emitter {
	if timeout <= 0 {
		timeout = DefaultBroadcastTimeout
	}
	return &Emitter{bus: bus, clock: clock, timeout: timeout, metrics: voteMetrics}
}

// VoteCommitted publishes one vote:update event. It returns once the publish
// succeeded, failed or timed out.
func (e *Emitter) VoteCommitted(ctx context.Context, update domain.VoteUpdate) {
	msg := domain.VoteUpdateMessage{
		Event:     domain.EventVoteUpdate,
		IdeaID:    update.IdeaID,
		VoteCount: update.VoteCount,
		Weight:    update.Weight,
		SentAt:    e.clock.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		e.fail(ctx, "encode", update, err)
		return
	}

	// The publish outlives request cancellation but never the timeout.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	if err := e.bus.Publish(pubCtx, domain.TopicVoting, payload); err != nil {
		reason := "publish"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		e.fail(ctx, reason, update, err)
	}
}

func (e *Emitter) fail(ctx context.Context, reason string, update domain.VoteUpdate, err error) {
	slog.WarnContext(ctx, "Vote broadcast failed", "idea_id", update.IdeaID, "reason", reason, "error", err)
	if e.metrics != nil {
		e.metrics.BroadcastFailures.WithLabelValues(reason).Inc()
	}
}
