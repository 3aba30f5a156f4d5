package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_CommitUpdatesAggregateAndPoints(t *testing.T) {
	ledger := NewLedger(clockwork.NewFakeClock())
	ctx := context.Background()
	voter, submitter, idea, cycle := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	ledger.AddUser(domain.UserProfile{ID: voter, Points: 100})
	ledger.AddUser(domain.UserProfile{ID: submitter})
	ledger.AddIdea(idea, submitter, cycle)

	res, err := ledger.Commit(ctx, domain.VoteIntent{VoterID: voter, IdeaID: idea, Weight: 93})
	require.NoError(t, err)
	assert.Equal(t, domain.Weight(93), res.IdeaTotal)
	assert.Equal(t, domain.Weight(93), res.Vote.Weight)

	profile, err := ledger.GetProfile(ctx, voter)
	require.NoError(t, err)
	assert.Equal(t, int64(105), profile.Points)
	assert.Equal(t, 1, profile.VotesCast)

	submitterProfile, err := ledger.GetProfile(ctx, submitter)
	require.NoError(t, err)
	assert.Equal(t, 1, submitterProfile.IdeasSubmitted)
}

func TestLedger_DuplicateLeavesNoSideEffects(t *testing.T) {
	ledger := NewLedger(clockwork.NewFakeClock())
	ctx := context.Background()
	voter, idea := uuid.New(), uuid.New()
	ledger.AddUser(domain.UserProfile{ID: voter})
	ledger.AddIdea(idea, uuid.New(), uuid.New())

	_, err := ledger.Commit(ctx, domain.VoteIntent{VoterID: voter, IdeaID: idea, Weight: 50})
	require.NoError(t, err)

	_, err = ledger.Commit(ctx, domain.VoteIntent{VoterID: voter, IdeaID: idea, Weight: 50})
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)
	assert.Equal(t, domain.Weight(50), ledger.IdeaTotal(idea))

	profile, err := ledger.GetProfile(ctx, voter)
	require.NoError(t, err)
	assert.Equal(t, int64(5), profile.Points)
}

func TestLedger_UnknownReferences(t *testing.T) {
	ledger := NewLedger(clockwork.NewFakeClock())
	ctx := context.Background()
	voter, idea := uuid.New(), uuid.New()

	_, err := ledger.Commit(ctx, domain.VoteIntent{VoterID: voter, IdeaID: idea, Weight: 1})
	assert.ErrorIs(t, err, domain.ErrIdeaNotFound)

	ledger.AddIdea(idea, uuid.New(), uuid.New())
	_, err = ledger.Commit(ctx, domain.VoteIntent{VoterID: voter, IdeaID: idea, Weight: 1})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = ledger.GetProfile(ctx, voter)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLedger_RecentVotesNewestFirst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ledger := NewLedger(clock)
	ctx := context.Background()
	voter := uuid.New()
	ledger.AddUser(domain.UserProfile{ID: voter})

	var ideas []uuid.UUID
	for range 4 {
		idea := uuid.New()
		ideas = append(ideas, idea)
		ledger.AddIdea(idea, uuid.New(), uuid.New())
		_, err := ledger.Commit(ctx, domain.VoteIntent{VoterID: voter, IdeaID: idea, Weight: 1})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	recent, err := ledger.RecentVotes(ctx, voter, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, ideas[3], recent[0].IdeaID)
	assert.Equal(t, ideas[1], recent[2].IdeaID)
}

func TestLedger_CycleVotesAndReconcile(t *testing.T) {
	ledger := NewLedger(clockwork.NewFakeClock())
	ctx := context.Background()
	voter, submitter, cycle, otherCycle := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	ledger.AddUser(domain.UserProfile{ID: voter})
	inCycle, outOfCycle := uuid.New(), uuid.New()
	ledger.AddIdea(inCycle, submitter, cycle)
	ledger.AddIdea(outOfCycle, submitter, otherCycle)

	for _, idea := range []uuid.UUID{inCycle, outOfCycle} {
		_, err := ledger.Commit(ctx, domain.VoteIntent{VoterID: voter, IdeaID: idea, Weight: 125})
		require.NoError(t, err)
	}

	votes, err := ledger.CycleVotes(ctx, cycle)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, submitter, votes[0].SubmitterID)
	assert.Equal(t, inCycle, votes[0].IdeaID)

	drift, err := ledger.ReconcileCycle(ctx, cycle)
	require.NoError(t, err)
	assert.Empty(t, drift)
}
