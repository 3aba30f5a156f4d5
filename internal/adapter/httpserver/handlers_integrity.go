package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/votepulse/internal/domain"
	apperrors "github.com/pscheid92/votepulse/internal/platform/errors"
)

type integrityResponse struct {
	CycleID    uuid.UUID                 `json:"cycleId"`
	Suspicious bool                      `json:"suspicious"`
	Patterns   []domain.ManipulationFlag `json:"patterns"`
}

type reconcileResponse struct {
	CycleID    uuid.UUID               `json:"cycleId"`
	Consistent bool                    `json:"consistent"`
	Drift      []domain.AggregateDrift `json:"drift"`
}

func (s *Server) registerIntegrityRoutes() {
	if s.config.OperatorToken == "" {
		slog.Info("OPERATOR_TOKEN not set, integrity routes disabled")
		return
	}

	operator := requireOperator(s.config.OperatorToken)
	s.echo.GET("/api/votes/integrity/:cycleId", s.handleIntegrity, operator)
	s.echo.GET("/api/votes/reconcile/:cycleId", s.handleReconcile, operator)
}

func (s *Server) handleIntegrity(c echo.Context) error {
	cycleID, err := parseCycleID(c)
	if err != nil {
		return err
	}

	flags, err := s.voting.DetectManipulation(c.Request().Context(), cycleID)
	if err != nil {
		return apperrors.UnavailableError("failed to analyse cycle", err).WithField("cycle_id", cycleID.String())
	}
	if flags == nil {
		flags = []domain.ManipulationFlag{}
	}

	response := integrityResponse{CycleID: cycleID, Suspicious: len(flags) > 0, Patterns: flags}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleReconcile(c echo.Context) error {
	cycleID, err := parseCycleID(c)
	if err != nil {
		return err
	}

	drift, err := s.voting.ReconcileCycle(c.Request().Context(), cycleID)
	if err != nil {
		return apperrors.UnavailableError("failed to reconcile cycle", err).WithField("cycle_id", cycleID.String())
	}
	if drift == nil {
		drift = []domain.AggregateDrift{}
	}

	response := reconcileResponse{CycleID: cycleID, Consistent: len(drift) == 0, Drift: drift}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func parseCycleID(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("cycleId")
	cycleID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid cycle ID").WithField("cycle_id", raw)
	}
	return cycleID, nil
}
