package domain

import (
	"time"

	"github.com/google/uuid"
)

type FlagKind string

const (
	FlagCollusion   FlagKind = "COLLUSION"
	FlagRapidVoting FlagKind = "RAPID_VOTING"
)

// ManipulationFlag is one suspicious pattern found in a cycle's votes.
// SubmitterID and VoteCount are set for collusion; At is set for rapid voting.
type ManipulationFlag struct {
	Kind        FlagKind    `json:"type"`
	VoterID     uuid.UUID   `json:"userId"`
	SubmitterID uuid.UUID   `json:"submitterId,omitzero"`
	VoteCount   int         `json:"voteCount,omitzero"`
	At          time.Time   `json:"timestamp,omitzero"`
	VoteIDs     []uuid.UUID `json:"voteIds"`
}
