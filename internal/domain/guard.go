package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GuardStore holds the fast-path dedup flags and fixed-window counters.
type GuardStore interface {
	HasVoted(ctx context.Context, voterID, ideaID uuid.UUID) (bool, error)
	MarkVoted(ctx context.Context, voterID, ideaID uuid.UUID, ttl time.Duration) error

	// IncrWithin atomically increments key and, on the first increment of a
	// window, sets its expiry. It returns the post-increment count.
	IncrWithin(ctx context.Context, key string, window time.Duration) (int64, error)
}
