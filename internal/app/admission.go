package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/votepulse/internal/domain"
)

const (
	QuotaWindow = time.Hour

	DefaultVoterLimit  = 30
	DefaultOriginLimit = 50

	historyDepth     = 10
	burstSize        = 5
	burstMinDuration = 60 * time.Second
)

// Limits are the per-window quota caps enforced by the gate.
type Limits struct {
	VoterPerWindow  int64
	OriginPerWindow int64
}

func DefaultLimits() Limits {
	return Limits{VoterPerWindow: DefaultVoterLimit, OriginPerWindow: DefaultOriginLimit}
}

// Gate runs the pre-commit checks in order and stops at the first failure.
type Gate struct {
	guard   domain.GuardStore
	history domain.VoteHistory
	limits  Limits
}

func NewGate(guard domain.GuardStore, history domain.VoteHistory, limits Limits) *Gate {
	return &Gate{guard: guard, history: history, limits: limits}
}

// Admit returns nil if the vote may proceed to commit. Rejections unwrap to
// ErrAlreadyVoted, ErrRateLimited or ErrSuspiciousPattern. Store failures
// unwrap to ErrTransientStore. Quota counters incremented before a later
// rejection stay incremented.
func (g *Gate) Admit(ctx context.Context, voterID, ideaID uuid.UUID, origin string) error {
	voted, err := g.guard.HasVoted(ctx, voterID, ideaID)
	if err != nil {
		return domain.Transient("dedup lookup", err)
	}
	if voted {
		return domain.Reject(domain.ErrAlreadyVoted, "You have already voted for this idea")
	}

	count, err := g.guard.IncrWithin(ctx, VoterQuotaKey(voterID), QuotaWindow)
	if err != nil {
		return domain.Transient("voter quota", err)
	}
	if count > g.limits.VoterPerWindow {
		return domain.Reject(domain.ErrRateLimited, "Vote rate limit exceeded. Please try again later")
	}

	if err := g.checkBehavior(ctx, voterID); err != nil {
		return err
	}

	if origin == "" {
		return nil
	}
	count, err = g.guard.IncrWithin(ctx, OriginQuotaKey(origin), QuotaWindow)
	if err != nil {
		return domain.Transient("origin quota", err)
	}
	if count > g.limits.OriginPerWindow {
		return domain.Reject(domain.ErrRateLimited, "Too many votes from this network. Please try again later")
	}

	return nil
}

func (g *Gate) checkBehavior(ctx context.Context, voterID uuid.UUID) error {
	recent, err := g.history.RecentVotes(ctx, voterID, historyDepth)
	if err != nil {
		return domain.Transient("vote history", err)
	}
	if isBurst(recent) {
		return domain.Reject(domain.ErrSuspiciousPattern, "Suspicious voting pattern detected")
	}
	return nil
}

// isBurst reports whether the newest and fifth-newest records (newest first) are under a minute apart.
func isBurst(recent []domain.VoteRecord) bool {
	if len(recent) < burstSize {
		return false
	}
	return recent[0].CreatedAt.Sub(recent[burstSize-1].CreatedAt) < burstMinDuration
}

func VoterQuotaKey(voterID uuid.UUID) string {
	return "ratelimit:vote:" + voterID.String()
}

// OriginQuotaKey hashes the origin so raw client addresses are never stored.
func OriginQuotaKey(origin string) string {
	sum := sha256.Sum256([]byte(origin))
	return "ratelimit:origin:" + hex.EncodeToString(sum[:8])
}

// IsRejection reports whether err is a business rejection rather than a failure.
func IsRejection(err error) bool {
	var rej *domain.RejectionError
	return errors.As(err, &rej)
}

func rejectionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domain.ErrDuplicateVote):
		return "duplicate"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrSuspiciousPattern):
		return "suspicious"
	case errors.Is(err, domain.ErrIdeaNotFound):
		return "idea_not_found"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrTransientStore):
		return "transient"
	default:
		return "error"
	}
}
