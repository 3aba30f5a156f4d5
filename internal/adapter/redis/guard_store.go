package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// incrWithinScript increments a counter and starts its expiry window on the
// first increment only, so the window is fixed rather than sliding.
// ARGV: [1]=window_ms
var incrWithinScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// GuardStore keeps dedup flags and fixed-window quota counters in Redis.
type GuardStore struct {
	rdb *goredis.Client
}

func NewGuardStore(rdb *goredis.Client) *GuardStore {
	return &GuardStore{rdb: rdb}
}

func (s *GuardStore) HasVoted(ctx context.Context, voterID, ideaID uuid.UUID) (bool, error) {
	n, err := s.rdb.Exists(ctx, dedupKey(voterID, ideaID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup flag: %w", err)
	}
	return n > 0, nil
}

func (s *GuardStore) MarkVoted(ctx context.Context, voterID, ideaID uuid.UUID, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, dedupKey(voterID, ideaID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dedup flag: %w", err)
	}
	return nil
}

func (s *GuardStore) IncrWithin(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := incrWithinScript.Run(ctx, s.rdb, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return count, nil
}

func dedupKey(voterID, ideaID uuid.UUID) string {
	return "vote:" + voterID.String() + ":" + ideaID.String()
}
