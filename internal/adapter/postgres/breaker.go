package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/votepulse/internal/adapter/metrics"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/sony/gobreaker"
)

// BreakerLedger guards a ledger with a circuit breaker. Business outcomes
// (duplicates, unknown ideas or users) count as successes; only store
// failures move the breaker towards open.
type BreakerLedger struct {
	next domain.Ledger
	cb   *gobreaker.CircuitBreaker
}

var _ domain.Ledger = (*BreakerLedger)(nil)

// NewBreakerLedger trips after 5 consecutive failures, stays open for 30s and
// allows one trial request while half-open. storeMetrics may be nil.
func NewBreakerLedger(next domain.Ledger, storeMetrics *metrics.StoreMetrics) *BreakerLedger {
	settings := gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			if storeMetrics != nil {
				storeMetrics.BreakerStateChanges.WithLabelValues(name, to.String()).Inc()
				storeMetrics.BreakerState.WithLabelValues(name).Set(breakerStateToFloat(to))
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrTransientStore) || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerLedger{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func breakerStateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (b *BreakerLedger) Commit(ctx context.Context, intent domain.VoteIntent) (domain.CommitResult, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Commit(ctx, intent)
	})
	if err != nil {
		return domain.CommitResult{}, breakerError("commit vote", err)
	}
	return res.(domain.CommitResult), nil
}

func (b *BreakerLedger) CycleVotes(ctx context.Context, cycleID uuid.UUID) ([]domain.CycleVote, error) {
	res, err := b.cb.Execute(func() (any, error) {
		votes, err := b.next.CycleVotes(ctx, cycleID)
		return votes, transientIfUnknown("cycle votes", err)
	})
	if err != nil {
		return nil, breakerError("cycle votes", err)
	}
	return res.([]domain.CycleVote), nil
}

func (b *BreakerLedger) ReconcileCycle(ctx context.Context, cycleID uuid.UUID) ([]domain.AggregateDrift, error) {
	res, err := b.cb.Execute(func() (any, error) {
		drift, err := b.next.ReconcileCycle(ctx, cycleID)
		return drift, transientIfUnknown("reconcile cycle", err)
	})
	if err != nil {
		return nil, breakerError("reconcile cycle", err)
	}
	return res.([]domain.AggregateDrift), nil
}

func (b *BreakerLedger) State() gobreaker.State {
	return b.cb.State()
}

// Healthy fails while the breaker is open, so readiness reflects a ledger that rejects commits.
func (b *BreakerLedger) Healthy(context.Context) error {
	if state := b.cb.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("ledger circuit breaker is %s", state)
	}
	return nil
}

// transientIfUnknown marks read failures as store failures so they count against the breaker.
func transientIfUnknown(op string, err error) error {
	if err == nil || errors.Is(err, domain.ErrTransientStore) {
		return err
	}
	return domain.Transient(op, err)
}

func breakerError(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.Transient(op, err)
	}
	return err
}
