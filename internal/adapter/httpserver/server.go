package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/votepulse/internal/adapter/metrics"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/pscheid92/votepulse/internal/platform/config"
	"github.com/prometheus/client_golang/prometheus"
)

type votingService interface {
	SubmitVote(ctx context.Context, voterID, ideaID uuid.UUID, origin string) (*domain.VoteReceipt, error)
	GetVoteWeight(ctx context.Context, voterID uuid.UUID) (domain.WeightBreakdown, error)
	DetectManipulation(ctx context.Context, cycleID uuid.UUID) ([]domain.ManipulationFlag, error)
	ReconcileCycle(ctx context.Context, cycleID uuid.UUID) ([]domain.AggregateDrift, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	voting votingService

	websocketHandler http.Handler
	registry         *prometheus.Registry
	httpMetrics      *metrics.HTTPMetrics

	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

// Deps are the collaborators the HTTP surface is built on.
// Registry and HTTPMetrics may be nil; Clock defaults to the real clock.
type Deps struct {
	Voting           votingService
	WebsocketHandler http.Handler
	Registry         *prometheus.Registry
	HTTPMetrics      *metrics.HTTPMetrics
	HealthChecks     []HealthCheck
	Clock            clockwork.Clock
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	trusted, err := cfg.TrustedProxyRanges()
	if err != nil {
		slog.Warn("Ignoring invalid trusted proxies, using direct peer address", "error", err)
	}
	e.IPExtractor = newIPExtractor(trusted)

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:             e,
		config:           cfg,
		voting:           deps.Voting,
		websocketHandler: deps.WebsocketHandler,
		registry:         deps.Registry,
		httpMetrics:      deps.HTTPMetrics,
		healthChecks:     deps.HealthChecks,
		clock:            clock,
		startTime:        clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
