package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/votepulse/internal/adapter/metrics"
	"github.com/pscheid92/votepulse/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and installs the metrics and circuit breaker
// hooks. The initial ping is retried with StartupPolicy. storeMetrics may be nil.
func NewClient(ctx context.Context, redisURL string, storeMetrics *metrics.StoreMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if storeMetrics != nil {
		rdb.AddHook(NewMetricsHook(storeMetrics))
	}
	rdb.AddHook(NewCircuitBreakerHook(storeMetrics))

	policy := retry.StartupPolicy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}
	err = retry.DoVoid(ctx, policy, retry.UntilCancelled, func() error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}
