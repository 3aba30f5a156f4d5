package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/votepulse/internal/domain"
	apperrors "github.com/pscheid92/votepulse/internal/platform/errors"
)

type submitVoteRequest struct {
	IdeaID string `json:"ideaId"`
}

type submitVoteResponse struct {
	Vote      domain.Vote   `json:"vote"`
	Weight    domain.Weight `json:"weight"`
	VoteCount domain.Weight `json:"voteCount"`
	Message   string        `json:"message"`
}

func (s *Server) registerVoteRoutes() {
	limiter := newRateLimiter(s.config.APIRateLimit, s.config.APIRateBurst)

	s.echo.POST("/api/votes", s.handleSubmitVote, requireVoter, limiter)
	s.echo.GET("/api/votes/weight", s.handleVoteWeight, requireVoter)
}

func (s *Server) handleSubmitVote(c echo.Context) error {
	voter, err := voterID(c)
	if err != nil {
		return err
	}

	var req submitVoteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.IdeaID == "" {
		return apperrors.ValidationError("ideaId is required")
	}
	ideaID, err := uuid.Parse(req.IdeaID)
	if err != nil {
		return apperrors.ValidationError("invalid ideaId").WithField("idea_id", req.IdeaID)
	}

	receipt, err := s.voting.SubmitVote(c.Request().Context(), voter, ideaID, c.RealIP())
	if err != nil {
		return voteError(err).WithField("idea_id", ideaID.String())
	}

	response := submitVoteResponse{
		Vote:      receipt.Vote,
		Weight:    receipt.Breakdown.Final,
		VoteCount: receipt.IdeaTotal,
		Message:   fmt.Sprintf("Vote cast with weight %s", receipt.Breakdown.Final),
	}
	if err := c.JSON(http.StatusCreated, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVoteWeight(c echo.Context) error {
	voter, err := voterID(c)
	if err != nil {
		return err
	}

	breakdown, err := s.voting.GetVoteWeight(c.Request().Context(), voter)
	if err != nil {
		return voteError(err)
	}

	if err := c.JSON(http.StatusOK, breakdown); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// voteError maps pipeline outcomes to API errors. Rejection reasons are shown to the voter as-is.
func voteError(err error) *apperrors.Error {
	reason := domain.RejectionReason(err)

	switch {
	case errors.Is(err, domain.ErrAlreadyVoted), errors.Is(err, domain.ErrDuplicateVote):
		return apperrors.ConflictError(reason, err)
	case errors.Is(err, domain.ErrRateLimited):
		return apperrors.RateLimitedError(reason, err)
	case errors.Is(err, domain.ErrSuspiciousPattern):
		return apperrors.ForbiddenError(reason, err)
	case errors.Is(err, domain.ErrIdeaNotFound):
		return apperrors.NotFoundError("idea not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NotFoundError("user not found")
	case errors.Is(err, domain.ErrTransientStore):
		return apperrors.UnavailableError("vote service temporarily unavailable, please retry", err)
	default:
		return apperrors.InternalError("failed to process vote", err)
	}
}
