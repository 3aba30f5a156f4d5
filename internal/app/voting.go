package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/adapter/metrics"
	"github.com/pscheid92/votepulse/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStoreTimeout = 2 * time.Second
	DedupFlagTTL        = 7 * 24 * time.Hour

	analysisTimeout = 30 * time.Second
)

// VotingDeps are the ports the voting service is wired with.
// Activity may be nil; the remaining fields are required.
type VotingDeps struct {
	Ideas    domain.IdeaSource
	Profiles domain.ProfileSource
	Guard    domain.GuardStore
	History  domain.VoteHistory
	Ledger   domain.Ledger
	Activity domain.ActivityLog
	Bus      domain.Bus
}

type VotingConfig struct {
	Limits           Limits
	StoreTimeout     time.Duration
	BroadcastTimeout time.Duration
}

// VotingService orchestrates vote submission, weight lookup and integrity analysis.
type VotingService struct {
	ideas    domain.IdeaSource
	profiles domain.ProfileSource
	guard    domain.GuardStore
	ledger   domain.Ledger
	activity domain.ActivityLog
	gate     *Gate
	emitter  *Emitter

	clock        clockwork.Clock
	storeTimeout time.Duration
	profileGroup singleflight.Group

	voteMetrics     *metrics.VoteMetrics
	detectorMetrics *metrics.DetectorMetrics
}

// NewVotingService wires the pipeline. Metrics may be nil.
func NewVotingService(deps VotingDeps, cfg VotingConfig, clock clockwork.Clock, voteMetrics *metrics.VoteMetrics, detectorMetrics *metrics.DetectorMetrics) *VotingService {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}

	return &VotingService{
		ideas:           deps.Ideas,
		profiles:        deps.Profiles,
		guard:           deps.Guard,
		ledger:          deps.Ledger,
		activity:        deps.Activity,
		gate:            NewGate(deps.Guard, deps.History, cfg.Limits),
		emitter:         NewEmitter(deps.Bus, clock, cfg.BroadcastTimeout, voteMetrics),
		clock:           clock,
		storeTimeout:    cfg.StoreTimeout,
		voteMetrics:     voteMetrics,
		detectorMetrics: detectorMetrics,
	}
}

// SubmitVote admits, weighs, commits and broadcasts one vote.
func (s *VotingService) SubmitVote(ctx context.Context, voterID, ideaID uuid.UUID, origin string) (*domain.VoteReceipt, error) {
	start := s.clock.Now()
	receipt, err := s.submit(ctx, voterID, ideaID, origin)

	if s.voteMetrics != nil {
		result := "accepted"
		if err != nil {
			result = rejectionResult(err)
		}
		s.voteMetrics.Submissions.WithLabelValues(result).Inc()
		s.voteMetrics.ProcessingDuration.Observe(s.clock.Since(start).Seconds())
	}

	switch {
	case err == nil:
	case IsRejection(err):
		slog.InfoContext(ctx, "Vote rejected", "voter_id", voterID, "idea_id", ideaID, "reason", domain.RejectionReason(err))
	case errors.Is(err, domain.ErrTransientStore):
		slog.ErrorContext(ctx, "Vote submission failed", "voter_id", voterID, "idea_id", ideaID, "error", err)
	}

	return receipt, err
}

func (s *VotingService) submit(ctx context.Context, voterID, ideaID uuid.UUID, origin string) (*domain.VoteReceipt, error) {
	if err := s.requireIdea(ctx, ideaID); err != nil {
		return nil, err
	}

	admitCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	err := s.gate.Admit(admitCtx, voterID, ideaID, origin)
	cancel()
	if err != nil {
		return nil, err
	}

	profile, err := s.loadProfile(ctx, voterID)
	if err != nil {
		return nil, err
	}
	breakdown := CalculateWeight(*profile, s.clock.Now())

	commitCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	result, err := s.ledger.Commit(commitCtx, domain.VoteIntent{VoterID: voterID, IdeaID: ideaID, Weight: breakdown.Final})
	cancel()
	if err != nil {
		return nil, commitError(err)
	}

	slog.InfoContext(ctx, "Vote committed",
		"vote_id", result.Vote.ID,
		"voter_id", voterID,
		"idea_id", ideaID,
		"weight", breakdown.Final.String(),
		"idea_total", result.IdeaTotal.String(),
	)
	if s.voteMetrics != nil {
		s.voteMetrics.AppliedWeight.Observe(breakdown.Final.Float())
	}

	s.afterCommit(ctx, result)

	return &domain.VoteReceipt{
		Vote:      result.Vote,
		Breakdown: breakdown,
		IdeaTotal: result.IdeaTotal,
	}, nil
}

// afterCommit runs the best-effort steps that follow a durable commit. None of
// them can fail the submission.
func (s *VotingService) afterCommit(ctx context.Context, result domain.CommitResult) {
	vote := result.Vote
	bgCtx := context.WithoutCancel(ctx)

	flagCtx, cancel := context.WithTimeout(bgCtx, s.storeTimeout)
	if err := s.guard.MarkVoted(flagCtx, vote.VoterID, vote.IdeaID, DedupFlagTTL); err != nil {
		s.followUpFailed(ctx, "dedup_flag", vote, err)
	}
	cancel()

	if s.activity != nil {
		actCtx, cancel := context.WithTimeout(bgCtx, s.storeTimeout)
		if err := s.activity.RecordVote(actCtx, vote.VoterID, vote.IdeaID, vote.CreatedAt); err != nil {
			s.followUpFailed(ctx, "activity", vote, err)
		}
		cancel()
	}

	s.emitter.VoteCommitted(ctx, domain.VoteUpdate{
		IdeaID:    vote.IdeaID,
		VoteCount: result.IdeaTotal,
		Weight:    vote.Weight,
	})
}

func (s *VotingService) followUpFailed(ctx context.Context, step string, vote domain.Vote, err error) {
	slog.WarnContext(ctx, "Post-commit step failed", "step", step, "vote_id", vote.ID, "error", err)
	if s.voteMetrics != nil {
		s.voteMetrics.FollowUpFailures.WithLabelValues(step).Inc()
	}
}

// GetVoteWeight returns the weight breakdown a vote by voterID would carry now.
// Concurrent lookups for the same voter share one profile load. The shared load
// outlives any single caller's cancellation; it is bounded by the store timeout.
func (s *VotingService) GetVoteWeight(ctx context.Context, voterID uuid.UUID) (domain.WeightBreakdown, error) {
	ch := s.profileGroup.DoChan(voterID.String(), func() (any, error) {
		return s.loadProfile(context.WithoutCancel(ctx), voterID)
	})

	select {
	case <-ctx.Done():
		return domain.WeightBreakdown{}, domain.Transient("profile lookup", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.WeightBreakdown{}, res.Err
		}
		return CalculateWeight(*res.Val.(*domain.UserProfile), s.clock.Now()), nil
	}
}

// DetectManipulation analyses all votes on ideas in the given cycle.
func (s *VotingService) DetectManipulation(ctx context.Context, cycleID uuid.UUID) ([]domain.ManipulationFlag, error) {
	loadCtx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	votes, err := s.ledger.CycleVotes(loadCtx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("load cycle votes: %w", err)
	}

	detection := DetectManipulation(votes)

	if s.detectorMetrics != nil {
		s.detectorMetrics.Runs.Inc()
		s.detectorMetrics.SkippedRecords.Add(float64(detection.Skipped))
		for _, f := range detection.Flags {
			s.detectorMetrics.Flags.WithLabelValues(string(f.Kind)).Inc()
		}
	}
	if detection.Skipped > 0 {
		slog.WarnContext(ctx, "Skipped incomplete vote records", "cycle_id", cycleID, "skipped", detection.Skipped)
	}
	slog.InfoContext(ctx, "Manipulation analysis finished", "cycle_id", cycleID, "votes", len(votes), "flags", len(detection.Flags))

	return detection.Flags, nil
}

// ReconcileCycle lists ideas whose stored total differs from the sum of their ledger weights.
func (s *VotingService) ReconcileCycle(ctx context.Context, cycleID uuid.UUID) ([]domain.AggregateDrift, error) {
	loadCtx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	drift, err := s.ledger.ReconcileCycle(loadCtx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("reconcile cycle: %w", err)
	}
	if len(drift) > 0 {
		slog.WarnContext(ctx, "Aggregate drift detected", "cycle_id", cycleID, "ideas", len(drift))
	}
	return drift, nil
}

func (s *VotingService) requireIdea(ctx context.Context, ideaID uuid.UUID) error {
	lookupCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	exists, err := s.ideas.IdeaExists(lookupCtx, ideaID)
	if err != nil {
		return domain.Transient("idea lookup", err)
	}
	if !exists {
		return fmt.Errorf("idea %s: %w", ideaID, domain.ErrIdeaNotFound)
	}
	return nil
}

func (s *VotingService) loadProfile(ctx context.Context, voterID uuid.UUID) (*domain.UserProfile, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	profile, err := s.profiles.GetProfile(lookupCtx, voterID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("voter %s: %w", voterID, domain.ErrUserNotFound)
	}
	if err != nil {
		return nil, domain.Transient("profile lookup", err)
	}
	return profile, nil
}

func commitError(err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateVote):
		return domain.Reject(domain.ErrDuplicateVote, "You have already voted for this idea")
	case errors.Is(err, domain.ErrIdeaNotFound), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrTransientStore):
		return fmt.Errorf("commit vote: %w", err)
	default:
		return domain.Transient("commit vote", err)
	}
}
