package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/adapter/memory"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testVoter = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	testIdea  = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	testTime  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func recordsEvery(n int, gap time.Duration) []domain.VoteRecord {
	records := make([]domain.VoteRecord, n)
	for i := range records {
		records[i] = domain.VoteRecord{ID: uuid.New(), IdeaID: uuid.New(), CreatedAt: testTime.Add(-time.Duration(i) * gap)}
	}
	return records
}

func TestAdmit_AllChecksPass(t *testing.T) {
	guard := &mockGuardStore{}
	gate := NewGate(guard, &mockVoteHistory{}, DefaultLimits())

	err := gate.Admit(context.Background(), testVoter, testIdea, "203.0.113.7")

	require.NoError(t, err)
	assert.Equal(t, []string{VoterQuotaKey(testVoter), OriginQuotaKey("203.0.113.7")}, guard.incremented())
}

func TestAdmit_AlreadyVotedShortCircuits(t *testing.T) {
	guard := &mockGuardStore{
		hasVotedFn: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return true, nil },
	}
	historyCalled := false
	history := &mockVoteHistory{
		recentVotesFn: func(context.Context, uuid.UUID, int) ([]domain.VoteRecord, error) {
			historyCalled = true
			return nil, nil
		},
	}
	gate := NewGate(guard, history, DefaultLimits())

	err := gate.Admit(context.Background(), testVoter, testIdea, "203.0.113.7")

	require.ErrorIs(t, err, domain.ErrAlreadyVoted)
	assert.True(t, IsRejection(err))
	assert.Empty(t, guard.incremented(), "no quota may be consumed after a dedup hit")
	assert.False(t, historyCalled)
}

func TestAdmit_VoterQuotaExceeded(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testTime)
	guard := memory.NewGuardStore(clock)
	gate := NewGate(guard, &mockVoteHistory{}, DefaultLimits())
	ctx := context.Background()

	for i := range DefaultVoterLimit {
		require.NoError(t, gate.Admit(ctx, testVoter, uuid.New(), ""), "attempt %d", i+1)
	}

	err := gate.Admit(ctx, testVoter, uuid.New(), "")
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, "Vote rate limit exceeded. Please try again later", domain.RejectionReason(err))
}

func TestAdmit_VoterQuotaResetsAfterWindow(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testTime)
	guard := memory.NewGuardStore(clock)
	gate := NewGate(guard, &mockVoteHistory{}, Limits{VoterPerWindow: 1, OriginPerWindow: 10})
	ctx := context.Background()

	require.NoError(t, gate.Admit(ctx, testVoter, uuid.New(), ""))
	require.ErrorIs(t, gate.Admit(ctx, testVoter, uuid.New(), ""), domain.ErrRateLimited)

	clock.Advance(QuotaWindow + time.Second)
	assert.NoError(t, gate.Admit(ctx, testVoter, uuid.New(), ""))
}

func TestAdmit_OriginQuotaSharedAcrossVoters(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testTime)
	guard := memory.NewGuardStore(clock)
	gate := NewGate(guard, &mockVoteHistory{}, Limits{VoterPerWindow: 30, OriginPerWindow: 3})
	ctx := context.Background()

	for range 3 {
		require.NoError(t, gate.Admit(ctx, uuid.New(), testIdea, "198.51.100.1"))
	}

	err := gate.Admit(ctx, uuid.New(), testIdea, "198.51.100.1")
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, "Too many votes from this network. Please try again later", domain.RejectionReason(err))

	assert.NoError(t, gate.Admit(ctx, uuid.New(), testIdea, "198.51.100.2"))
}

func TestAdmit_EmptyOriginSkipsOriginQuota(t *testing.T) {
	guard := &mockGuardStore{}
	gate := NewGate(guard, &mockVoteHistory{}, DefaultLimits())

	require.NoError(t, gate.Admit(context.Background(), testVoter, testIdea, ""))
	assert.Equal(t, []string{VoterQuotaKey(testVoter)}, guard.incremented())
}

func TestAdmit_BehavioralBurst(t *testing.T) {
	tests := []struct {
		name    string
		records []domain.VoteRecord
		wantErr error
	}{
		{name: "no history", records: nil},
		{name: "four fast votes", records: recordsEvery(4, time.Second)},
		{name: "five votes within 40s", records: recordsEvery(5, 10*time.Second), wantErr: domain.ErrSuspiciousPattern},
		{name: "ten fast votes", records: recordsEvery(10, time.Second), wantErr: domain.ErrSuspiciousPattern},
		{name: "five votes spanning exactly 60s", records: recordsEvery(5, 15*time.Second)},
		{name: "five votes spanning 80s", records: recordsEvery(5, 20*time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit int
			history := &mockVoteHistory{
				recentVotesFn: func(_ context.Context, _ uuid.UUID, limit int) ([]domain.VoteRecord, error) {
					gotLimit = limit
					return tt.records, nil
				},
			}
			gate := NewGate(&mockGuardStore{}, history, DefaultLimits())

			err := gate.Admit(context.Background(), testVoter, testIdea, "")

			assert.Equal(t, 10, gotLimit)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "Suspicious voting pattern detected", domain.RejectionReason(err))
		})
	}
}

func TestAdmit_QuotaConsumedBeforeBehavioralRejection(t *testing.T) {
	guard := &mockGuardStore{}
	history := &mockVoteHistory{
		recentVotesFn: func(context.Context, uuid.UUID, int) ([]domain.VoteRecord, error) {
			return recordsEvery(5, time.Second), nil
		},
	}
	gate := NewGate(guard, history, DefaultLimits())

	err := gate.Admit(context.Background(), testVoter, testIdea, "203.0.113.7")

	require.ErrorIs(t, err, domain.ErrSuspiciousPattern)
	assert.Equal(t, []string{VoterQuotaKey(testVoter)}, guard.incremented())
}

func TestAdmit_StoreFailuresAreTransient(t *testing.T) {
	storeErr := errors.New("connection reset")

	tests := []struct {
		name    string
		guard   *mockGuardStore
		history *mockVoteHistory
	}{
		{
			name: "dedup lookup",
			guard: &mockGuardStore{
				hasVotedFn: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return false, storeErr },
			},
			history: &mockVoteHistory{},
		},
		{
			name: "quota increment",
			guard: &mockGuardStore{
				incrWithinFn: func(context.Context, string, time.Duration) (int64, error) { return 0, storeErr },
			},
			history: &mockVoteHistory{},
		},
		{
			name:  "history read",
			guard: &mockGuardStore{},
			history: &mockVoteHistory{
				recentVotesFn: func(context.Context, uuid.UUID, int) ([]domain.VoteRecord, error) { return nil, storeErr },
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.guard, tt.history, DefaultLimits())

			err := gate.Admit(context.Background(), testVoter, testIdea, "203.0.113.7")

			require.ErrorIs(t, err, domain.ErrTransientStore)
			assert.ErrorIs(t, err, storeErr)
			assert.False(t, IsRejection(err))
		})
	}
}

func TestOriginQuotaKey_HashesOrigin(t *testing.T) {
	key := OriginQuotaKey("203.0.113.7")

	assert.NotContains(t, key, "203.0.113.7")
	assert.Len(t, key, len("ratelimit:origin:")+16)
	assert.Equal(t, key, OriginQuotaKey("203.0.113.7"))
	assert.NotEqual(t, key, OriginQuotaKey("203.0.113.8"))
}

func TestRejectionResult(t *testing.T) {
	assert.Equal(t, "already_voted", rejectionResult(domain.Reject(domain.ErrAlreadyVoted, "x")))
	assert.Equal(t, "duplicate", rejectionResult(domain.Reject(domain.ErrDuplicateVote, "x")))
	assert.Equal(t, "transient", rejectionResult(domain.Transient("op", errors.New("boom"))))
	assert.Equal(t, "error", rejectionResult(errors.New("boom")))
}
