package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardStore_DedupFlag(t *testing.T) {
	client := setupTestClient(t)
	store := NewGuardStore(client)
	ctx := context.Background()
	voter, idea := uuid.New(), uuid.New()

	voted, err := store.HasVoted(ctx, voter, idea)
	require.NoError(t, err)
	assert.False(t, voted)

	require.NoError(t, store.MarkVoted(ctx, voter, idea, 7*24*time.Hour))

	voted, err = store.HasVoted(ctx, voter, idea)
	require.NoError(t, err)
	assert.True(t, voted)

	ttl, err := client.TTL(ctx, "vote:"+voter.String()+":"+idea.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 6*24*time.Hour)

	voted, err = store.HasVoted(ctx, voter, uuid.New())
	require.NoError(t, err)
	assert.False(t, voted, "flags are per idea")
}

func TestGuardStore_DedupFlagExpires(t *testing.T) {
	client := setupTestClient(t)
	store := NewGuardStore(client)
	ctx := context.Background()
	voter, idea := uuid.New(), uuid.New()

	require.NoError(t, store.MarkVoted(ctx, voter, idea, 100*time.Millisecond))

	assert.Eventually(t, func() bool {
		voted, err := store.HasVoted(ctx, voter, idea)
		return err == nil && !voted
	}, 2*time.Second, 50*time.Millisecond)
}

func TestGuardStore_IncrWithinSetsExpiryOnce(t *testing.T) {
	client := setupTestClient(t)
	store := NewGuardStore(client)
	ctx := context.Background()
	key := "ratelimit:vote:" + uuid.NewString()

	count, err := store.IncrWithin(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	first, err := client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, first, 59*time.Minute)

	time.Sleep(20 * time.Millisecond)

	count, err = store.IncrWithin(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	second, err := client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Less(t, second, first, "later increments must not extend the window")
}

func TestGuardStore_IncrWithinWindowResets(t *testing.T) {
	client := setupTestClient(t)
	store := NewGuardStore(client)
	ctx := context.Background()
	key := "ratelimit:origin:" + uuid.NewString()

	for range 3 {
		_, err := store.IncrWithin(ctx, key, 100*time.Millisecond)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		n, err := client.Exists(ctx, key).Result()
		return err == nil && n == 0
	}, 2*time.Second, 50*time.Millisecond)

	count, err := store.IncrWithin(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGuardStore_IncrWithinConcurrent(t *testing.T) {
	client := setupTestClient(t)
	store := NewGuardStore(client)
	ctx := context.Background()
	key := "ratelimit:vote:" + uuid.NewString()

	const workers = 50
	var wg sync.WaitGroup
	seen := make(chan int64, workers)
	for range workers {
		wg.Go(func() {
			count, err := store.IncrWithin(ctx, key, time.Hour)
			assert.NoError(t, err)
			seen <- count
		})
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for c := range seen {
		unique[c] = true
	}
	assert.Len(t, unique, workers, "every increment observes a distinct count")
	assert.True(t, unique[workers])
}
