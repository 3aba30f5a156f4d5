package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Vote is an immutable committed ballot.
type Vote struct {
	ID        uuid.UUID `json:"id"`
	VoterID   uuid.UUID `json:"userId"`
	IdeaID    uuid.UUID `json:"ideaId"`
	Weight    Weight    `json:"weight"`
	CreatedAt time.Time `json:"createdAt"`
}

// VoteIntent is an admitted vote that has not been committed yet.
type VoteIntent struct {
	VoterID uuid.UUID
	IdeaID  uuid.UUID
	Weight  Weight
}

// CommitResult is what the ledger returns after a successful transaction.
type CommitResult struct {
	Vote      Vote
	IdeaTotal Weight
}

// VoteReceipt is returned to the voter after a successful submission.
type VoteReceipt struct {
	Vote      Vote
	Breakdown WeightBreakdown
	IdeaTotal Weight
}

// VoteRecord is the minimal history entry used by the behavioral check.
type VoteRecord struct {
	ID        uuid.UUID
	IdeaID    uuid.UUID
	CreatedAt time.Time
}

// CycleVote is a vote joined with the idea's submitter, used for batch analysis.
type CycleVote struct {
	ID          uuid.UUID
	VoterID     uuid.UUID
	IdeaID      uuid.UUID
	SubmitterID uuid.UUID
	CreatedAt   time.Time
}

// AggregateDrift reports an idea whose stored total disagrees with its ledger.
type AggregateDrift struct {
	IdeaID    uuid.UUID `json:"ideaId"`
	Stored    Weight    `json:"stored"`
	LedgerSum Weight    `json:"ledgerSum"`
}

// Ledger is the authoritative vote store.
type Ledger interface {
	// Commit inserts the vote, adds its weight to the idea total and awards the
	// voter's participation points in a single transaction.
	Commit(ctx context.Context, intent VoteIntent) (CommitResult, error)
	CycleVotes(ctx context.Context, cycleID uuid.UUID) ([]CycleVote, error)
	ReconcileCycle(ctx context.Context, cycleID uuid.UUID) ([]AggregateDrift, error)
}

// VoteHistory returns a voter's most recent votes, newest first.
type VoteHistory interface {
	RecentVotes(ctx context.Context, voterID uuid.UUID, limit int) ([]VoteRecord, error)
}

// ActivityLog keeps a rolling record of recent votes outside the ledger.
type ActivityLog interface {
	RecordVote(ctx context.Context, voterID, ideaID uuid.UUID, at time.Time) error
}
