package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	activityKey    = "votes:daily"
	activityWindow = 24 * time.Hour
)

// ActivityLog keeps the last 24 hours of votes in a sorted set scored by vote time.
type ActivityLog struct {
	rdb *goredis.Client
}

func NewActivityLog(rdb *goredis.Client) *ActivityLog {
	return &ActivityLog{rdb: rdb}
}

func (a *ActivityLog) RecordVote(ctx context.Context, voterID, ideaID uuid.UUID, at time.Time) error {
	cutoff := strconv.FormatInt(at.Add(-activityWindow).UnixMilli(), 10)

	pipe := a.rdb.TxPipeline()
	pipe.ZAdd(ctx, activityKey, goredis.Z{
		Score:  float64(at.UnixMilli()),
		Member: voterID.String() + ":" + ideaID.String(),
	})
	pipe.ZRemRangeByScore(ctx, activityKey, "-inf", "("+cutoff)
	pipe.Expire(ctx, activityKey, activityWindow)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record activity pipeline failed: %w", err)
	}
	return nil
}
