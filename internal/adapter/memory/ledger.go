package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/domain"
)

// ParticipationPoints is awarded to the voter with every committed vote.
const ParticipationPoints = 5

type ideaRow struct {
	submitterID uuid.UUID
	cycleID     uuid.UUID
	total       domain.Weight
}

type votePair struct {
	voterID uuid.UUID
	ideaID  uuid.UUID
}

// Ledger is an in-memory ledger with the same all-or-nothing commit semantics
// as the Postgres ledger. It also serves profiles, ideas and vote history.
type Ledger struct {
	mu    sync.Mutex
	clock clockwork.Clock

	users map[uuid.UUID]domain.UserProfile
	ideas map[uuid.UUID]*ideaRow
	votes []domain.Vote
	pairs map[votePair]struct{}
}

func NewLedger(clock clockwork.Clock) *Ledger {
	return &Ledger{
		clock: clock,
		users: make(map[uuid.UUID]domain.UserProfile),
		ideas: make(map[uuid.UUID]*ideaRow),
		pairs: make(map[votePair]struct{}),
	}
}

// AddUser registers a profile. IdeasSubmitted and VotesCast are derived from
// stored rows, so the values on p are ignored.
func (l *Ledger) AddUser(p domain.UserProfile) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[p.ID] = p
}

func (l *Ledger) AddIdea(ideaID, submitterID, cycleID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ideas[ideaID] = &ideaRow{submitterID: submitterID, cycleID: cycleID}
}

func (l *Ledger) Commit(ctx context.Context, intent domain.VoteIntent) (domain.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.CommitResult{}, domain.Transient("commit vote", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pair := votePair{voterID: intent.VoterID, ideaID: intent.IdeaID}
	if _, ok := l.pairs[pair]; ok {
		return domain.CommitResult{}, domain.ErrDuplicateVote
	}
	idea, ok := l.ideas[intent.IdeaID]
	if !ok {
		return domain.CommitResult{}, domain.ErrIdeaNotFound
	}
	user, ok := l.users[intent.VoterID]
	if !ok {
		return domain.CommitResult{}, domain.ErrUserNotFound
	}

	vote := domain.Vote{
		ID:        uuid.New(),
		VoterID:   intent.VoterID,
		IdeaID:    intent.IdeaID,
		Weight:    intent.Weight,
		CreatedAt: l.clock.Now(),
	}
	l.votes = append(l.votes, vote)
	l.pairs[pair] = struct{}{}
	idea.total += intent.Weight
	user.Points += ParticipationPoints
	l.users[user.ID] = user

	return domain.CommitResult{Vote: vote, IdeaTotal: idea.total}, nil
}

func (l *Ledger) GetProfile(_ context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	user.IdeasSubmitted = 0
	for _, idea := range l.ideas {
		if idea.submitterID == userID {
			user.IdeasSubmitted++
		}
	}
	user.VotesCast = 0
	for _, v := range l.votes {
		if v.VoterID == userID {
			user.VotesCast++
		}
	}
	user.VerifiedProofs = slices.Clone(user.VerifiedProofs)
	return &user, nil
}

func (l *Ledger) IdeaExists(_ context.Context, ideaID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ideas[ideaID]
	return ok, nil
}

func (l *Ledger) RecentVotes(_ context.Context, voterID uuid.UUID, limit int) ([]domain.VoteRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var records []domain.VoteRecord
	for _, v := range l.votes {
		if v.VoterID == voterID {
			records = append(records, domain.VoteRecord{ID: v.ID, IdeaID: v.IdeaID, CreatedAt: v.CreatedAt})
		}
	}
	slices.SortStableFunc(records, func(a, b domain.VoteRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (l *Ledger) CycleVotes(_ context.Context, cycleID uuid.UUID) ([]domain.CycleVote, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.CycleVote
	for _, v := range l.votes {
		idea := l.ideas[v.IdeaID]
		if idea.cycleID != cycleID {
			continue
		}
		out = append(out, domain.CycleVote{
			ID:          v.ID,
			VoterID:     v.VoterID,
			IdeaID:      v.IdeaID,
			SubmitterID: idea.submitterID,
			CreatedAt:   v.CreatedAt,
		})
	}
	return out, nil
}

func (l *Ledger) ReconcileCycle(_ context.Context, cycleID uuid.UUID) ([]domain.AggregateDrift, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sums := make(map[uuid.UUID]domain.Weight)
	for _, v := range l.votes {
		sums[v.IdeaID] += v.Weight
	}

	var drift []domain.AggregateDrift
	for id, idea := range l.ideas {
		if idea.cycleID != cycleID || idea.total == sums[id] {
			continue
		}
		drift = append(drift, domain.AggregateDrift{IdeaID: id, Stored: idea.total, LedgerSum: sums[id]})
	}
	slices.SortFunc(drift, func(a, b domain.AggregateDrift) int {
		return cmp.Compare(a.IdeaID.String(), b.IdeaID.String())
	})
	return drift, nil
}

// IdeaTotal returns the stored aggregate for an idea.
func (l *Ledger) IdeaTotal(ideaID uuid.UUID) domain.Weight {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idea, ok := l.ideas[ideaID]; ok {
		return idea.total
	}
	return 0
}

// VoteCount returns the number of committed votes.
func (l *Ledger) VoteCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.votes)
}
