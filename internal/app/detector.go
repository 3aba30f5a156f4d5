package app

import (
	"bytes"
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/votepulse/internal/domain"
)

const (
	collusionThreshold = 5
	rapidVotingGap     = 5 * time.Second
)

// Detection is the result of one manipulation analysis run.
type Detection struct {
	Flags   []domain.ManipulationFlag
	Skipped int
}

// DetectManipulation analyses a cycle's votes for collusion and rapid voting.
// It is pure: the same input always yields the same flags in the same order.
// Records with missing identities or timestamps are skipped and counted.
func DetectManipulation(votes []domain.CycleVote) Detection {
	valid := make([]domain.CycleVote, 0, len(votes))
	skipped := 0
	for _, v := range votes {
		if v.VoterID == uuid.Nil || v.IdeaID == uuid.Nil || v.SubmitterID == uuid.Nil || v.CreatedAt.IsZero() {
			skipped++
			continue
		}
		valid = append(valid, v)
	}

	slices.SortFunc(valid, func(a, b domain.CycleVote) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})

	byVoter := make(map[uuid.UUID][]domain.CycleVote)
	for _, v := range valid {
		byVoter[v.VoterID] = append(byVoter[v.VoterID], v)
	}

	var flags []domain.ManipulationFlag
	for voterID, voterVotes := range byVoter {
		flags = append(flags, collusionFlags(voterID, voterVotes)...)
		if flag, ok := rapidVotingFlag(voterID, voterVotes); ok {
			flags = append(flags, flag)
		}
	}

	slices.SortFunc(flags, func(a, b domain.ManipulationFlag) int {
		if c := compareIDs(a.VoterID, b.VoterID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return compareIDs(a.SubmitterID, b.SubmitterID)
	})

	return Detection{Flags: flags, Skipped: skipped}
}

// collusionFlags expects votes in chronological order.
func collusionFlags(voterID uuid.UUID, votes []domain.CycleVote) []domain.ManipulationFlag {
	bySubmitter := make(map[uuid.UUID][]uuid.UUID)
	for _, v := range votes {
		bySubmitter[v.SubmitterID] = append(bySubmitter[v.SubmitterID], v.ID)
	}

	var flags []domain.ManipulationFlag
	for submitterID, voteIDs := range bySubmitter {
		if submitterID == voterID || len(voteIDs) <= collusionThreshold {
			continue
		}
		flags = append(flags, domain.ManipulationFlag{
			Kind:        domain.FlagCollusion,
			VoterID:     voterID,
			SubmitterID: submitterID,
			VoteCount:   len(voteIDs),
			VoteIDs:     voteIDs,
		})
	}
	return flags
}

// rapidVotingFlag reports the first pair of consecutive votes closer than the
// minimum gap. Expects votes in chronological order.
func rapidVotingFlag(voterID uuid.UUID, votes []domain.CycleVote) (domain.ManipulationFlag, bool) {
	for i := 1; i < len(votes); i++ {
		prev, cur := votes[i-1], votes[i]
		if cur.CreatedAt.Sub(prev.CreatedAt) < rapidVotingGap {
			return domain.ManipulationFlag{
				Kind:    domain.FlagRapidVoting,
				VoterID: voterID,
				At:      cur.CreatedAt,
				VoteIDs: []uuid.UUID{prev.ID, cur.ID},
			}, true
		}
	}
	return domain.ManipulationFlag{}, false
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
