package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/votepulse/internal/domain"
)

// --- Mock GuardStore ---

type mockGuardStore struct {
	hasVotedFn   func(ctx context.Context, voterID, ideaID uuid.UUID) (bool, error)
	markVotedFn  func(ctx context.Context, voterID, ideaID uuid.UUID, ttl time.Duration) error
	incrWithinFn func(ctx context.Context, key string, window time.Duration) (int64, error)

	mu         sync.Mutex
	increments []string
}

func (m *mockGuardStore) HasVoted(ctx context.Context, voterID, ideaID uuid.UUID) (bool, error) {
	if m.hasVotedFn != nil {
		return m.hasVotedFn(ctx, voterID, ideaID)
	}
	return false, nil
}

func (m *mockGuardStore) MarkVoted(ctx context.Context, voterID, ideaID uuid.UUID, ttl time.Duration) error {
	if m.markVotedFn != nil {
		return m.markVotedFn(ctx, voterID, ideaID, ttl)
	}
	return nil
}

func (m *mockGuardStore) IncrWithin(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	m.increments = append(m.increments, key)
	m.mu.Unlock()
	if m.incrWithinFn != nil {
		return m.incrWithinFn(ctx, key, window)
	}
	return 1, nil
}

func (m *mockGuardStore) incremented() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.increments...)
}

// --- Mock VoteHistory ---

type mockVoteHistory struct {
	recentVotesFn func(ctx context.Context, voterID uuid.UUID, limit int) ([]domain.VoteRecord, error)
}

func (m *mockVoteHistory) RecentVotes(ctx context.Context, voterID uuid.UUID, limit int) ([]domain.VoteRecord, error) {
	if m.recentVotesFn != nil {
		return m.recentVotesFn(ctx, voterID, limit)
	}
	return nil, nil
}

// --- Mock Ledger ---

type mockLedger struct {
	commitFn     func(ctx context.Context, intent domain.VoteIntent) (domain.CommitResult, error)
	cycleVotesFn func(ctx context.Context, cycleID uuid.UUID) ([]domain.CycleVote, error)
	reconcileFn  func(ctx context.Context, cycleID uuid.UUID) ([]domain.AggregateDrift, error)
}

func (m *mockLedger) Commit(ctx context.Context, intent domain.VoteIntent) (domain.CommitResult, error) {
	if m.commitFn != nil {
		return m.commitFn(ctx, intent)
	}
	return domain.CommitResult{}, errors.New("not implemented")
}

func (m *mockLedger) CycleVotes(ctx context.Context, cycleID uuid.UUID) ([]domain.CycleVote, error) {
	if m.cycleVotesFn != nil {
		return m.cycleVotesFn(ctx, cycleID)
	}
	return nil, nil
}

func (m *mockLedger) ReconcileCycle(ctx context.Context, cycleID uuid.UUID) ([]domain.AggregateDrift, error) {
	if m.reconcileFn != nil {
		return m.reconcileFn(ctx, cycleID)
	}
	return nil, nil
}

// --- Mock sources ---

type mockProfileSource struct {
	getProfileFn func(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)
}

func (m *mockProfileSource) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return nil, domain.ErrUserNotFound
}

type mockIdeaSource struct {
	ideaExistsFn func(ctx context.Context, ideaID uuid.UUID) (bool, error)
}

func (m *mockIdeaSource) IdeaExists(ctx context.Context, ideaID uuid.UUID) (bool, error) {
	if m.ideaExistsFn != nil {
		return m.ideaExistsFn(ctx, ideaID)
	}
	return true, nil
}

type mockActivityLog struct {
	recordVoteFn func(ctx context.Context, voterID, ideaID uuid.UUID, at time.Time) error
}

func (m *mockActivityLog) RecordVote(ctx context.Context, voterID, ideaID uuid.UUID, at time.Time) error {
	if m.recordVoteFn != nil {
		return m.recordVoteFn(ctx, voterID, ideaID, at)
	}
	return nil
}

// --- Mock Bus ---

type published struct {
	topic   string
	payload []byte
}

type mockBus struct {
	publishFn func(ctx context.Context, topic string, payload []byte) error

	mu   sync.Mutex
	sent []published
}

func (m *mockBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, topic, payload); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.sent = append(m.sent, published{topic: topic, payload: payload})
	m.mu.Unlock()
	return nil
}

func (m *mockBus) Subscribe(ctx context.Context, _ string, _ domain.Handler) error {
	<-ctx.Done()
	return nil
}

func (m *mockBus) messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.sent...)
}
