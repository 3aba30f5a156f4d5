package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardStore_DedupFlagExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewGuardStore(clock)
	ctx := context.Background()
	voter, idea := uuid.New(), uuid.New()

	voted, err := store.HasVoted(ctx, voter, idea)
	require.NoError(t, err)
	assert.False(t, voted)

	require.NoError(t, store.MarkVoted(ctx, voter, idea, 7*24*time.Hour))

	voted, err = store.HasVoted(ctx, voter, idea)
	require.NoError(t, err)
	assert.True(t, voted)

	voted, err = store.HasVoted(ctx, voter, uuid.New())
	require.NoError(t, err)
	assert.False(t, voted, "flag is scoped to the pair")

	clock.Advance(7 * 24 * time.Hour)

	voted, err = store.HasVoted(ctx, voter, idea)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestGuardStore_IncrWithinResetsAfterWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewGuardStore(clock)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := store.IncrWithin(ctx, "ratelimit:vote:a", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	// Later increments do not extend the window.
	clock.Advance(59 * time.Minute)
	n, err := store.IncrWithin(ctx, "ratelimit:vote:a", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	clock.Advance(time.Minute)
	n, err = store.IncrWithin(ctx, "ratelimit:vote:a", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGuardStore_IncrWithinConcurrent(t *testing.T) {
	store := NewGuardStore(clockwork.NewFakeClock())
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.IncrWithin(ctx, "k", time.Hour)
		}()
	}
	wg.Wait()

	n, err := store.IncrWithin(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(101), n)
}

func TestGuardStore_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewGuardStore(clock)
	ctx := context.Background()

	require.NoError(t, store.MarkVoted(ctx, uuid.New(), uuid.New(), time.Minute))
	_, err := store.IncrWithin(ctx, "short", time.Minute)
	require.NoError(t, err)
	_, err = store.IncrWithin(ctx, "long", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 0, store.Sweep())

	clock.Advance(time.Minute)
	assert.Equal(t, 2, store.Sweep())
}
