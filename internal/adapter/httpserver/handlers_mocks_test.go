package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/pscheid92/votepulse/internal/platform/config"
)

const testOperatorToken = "operator-token-0123456789"

type mockVotingService struct {
	submitVoteFn         func(ctx context.Context, voterID, ideaID uuid.UUID, origin string) (*domain.VoteReceipt, error)
	getVoteWeightFn      func(ctx context.Context, voterID uuid.UUID) (domain.WeightBreakdown, error)
	detectManipulationFn func(ctx context.Context, cycleID uuid.UUID) ([]domain.ManipulationFlag, error)
	reconcileCycleFn     func(ctx context.Context, cycleID uuid.UUID) ([]domain.AggregateDrift, error)
}

func (m *mockVotingService) SubmitVote(ctx context.Context, voterID, ideaID uuid.UUID, origin string) (*domain.VoteReceipt, error) {
	if m.submitVoteFn != nil {
		return m.submitVoteFn(ctx, voterID, ideaID, origin)
	}
	return nil, errors.New("not implemented")
}

func (m *mockVotingService) GetVoteWeight(ctx context.Context, voterID uuid.UUID) (domain.WeightBreakdown, error) {
	if m.getVoteWeightFn != nil {
		return m.getVoteWeightFn(ctx, voterID)
	}
	return domain.WeightBreakdown{}, errors.New("not implemented")
}

func (m *mockVotingService) DetectManipulation(ctx context.Context, cycleID uuid.UUID) ([]domain.ManipulationFlag, error) {
	if m.detectManipulationFn != nil {
		return m.detectManipulationFn(ctx, cycleID)
	}
	return nil, nil
}

func (m *mockVotingService) ReconcileCycle(ctx context.Context, cycleID uuid.UUID) ([]domain.AggregateDrift, error) {
	if m.reconcileCycleFn != nil {
		return m.reconcileCycleFn(ctx, cycleID)
	}
	return nil, nil
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:        "test",
		Port:          "0",
		OperatorToken: testOperatorToken,
		APIRateLimit:  1000,
		APIRateBurst:  1000,
	}
}

func newTestServer(t *testing.T, voting votingService, opts ...func(*config.Config, *Deps)) *Server {
	t.Helper()

	cfg := testConfig()
	deps := Deps{Voting: voting}
	for _, opt := range opts {
		opt(cfg, &deps)
	}
	return NewServer(cfg, deps)
}

func withHealthChecks(checks ...HealthCheck) func(*config.Config, *Deps) {
	return func(_ *config.Config, d *Deps) {
		d.HealthChecks = checks
	}
}

func withClock(clock clockwork.Clock) func(*config.Config, *Deps) {
	return func(_ *config.Config, d *Deps) {
		d.Clock = clock
	}
}

func withConfig(mutate func(*config.Config)) func(*config.Config, *Deps) {
	return func(c *config.Config, _ *Deps) {
		mutate(c)
	}
}

func withWebsocketHandler(h http.Handler) func(*config.Config, *Deps) {
	return func(_ *config.Config, d *Deps) {
		d.WebsocketHandler = h
	}
}

// serve runs a request through the full router, including middleware.
func serve(srv *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
