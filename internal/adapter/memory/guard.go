package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type counterWindow struct {
	count     int64
	expiresAt time.Time
}

// GuardStore keeps dedup flags and quota counters in process memory.
// Expired entries are dropped lazily and by Sweep.
type GuardStore struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	flags    map[string]time.Time
	counters map[string]*counterWindow
}

func NewGuardStore(clock clockwork.Clock) *GuardStore {
	return &GuardStore{
		clock:    clock,
		flags:    make(map[string]time.Time),
		counters: make(map[string]*counterWindow),
	}
}

func (s *GuardStore) HasVoted(_ context.Context, voterID, ideaID uuid.UUID) (bool, error) {
	key := dedupKey(voterID, ideaID)
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.flags[key]
	if !ok {
		return false, nil
	}
	if !now.Before(expiresAt) {
		delete(s.flags, key)
		return false, nil
	}
	return true, nil
}

func (s *GuardStore) MarkVoted(_ context.Context, voterID, ideaID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	s.flags[dedupKey(voterID, ideaID)] = s.clock.Now().Add(ttl)
	s.mu.Unlock()
	return nil
}

func (s *GuardStore) IncrWithin(_ context.Context, key string, window time.Duration) (int64, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.counters[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &counterWindow{expiresAt: now.Add(window)}
		s.counters[key] = w
	}
	w.count++
	return w.count, nil
}

// Sweep removes all expired flags and counters and returns how many were dropped.
func (s *GuardStore) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, exp := range s.flags {
		if !now.Before(exp) {
			delete(s.flags, k)
			removed++
		}
	}
	for k, w := range s.counters {
		if !now.Before(w.expiresAt) {
			delete(s.counters, k)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep on every interval until ctx is cancelled.
func (s *GuardStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

func dedupKey(voterID, ideaID uuid.UUID) string {
	return voterID.String() + ":" + ideaID.String()
}
