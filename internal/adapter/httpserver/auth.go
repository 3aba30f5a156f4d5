package httpserver

import (
	"crypto/subtle"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	apperrors "github.com/pscheid92/votepulse/internal/platform/errors"
)

const (
	// VoterHeader carries the authenticated user ID set by the upstream gateway.
	VoterHeader = "X-User-ID"

	voterIDKey = "voterID"
)

// requireVoter resolves the caller's identity from VoterHeader.
func requireVoter(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(VoterHeader)
		if raw == "" {
			return apperrors.UnauthorizedError("authentication required")
		}

		voterID, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.UnauthorizedError("invalid user identity").WithField("user_id", raw)
		}

		c.Set(voterIDKey, voterID)
		return next(c)
	}
}

func voterID(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(voterIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalError("missing voter ID in context", nil)
	}
	return id, nil
}

// requireOperator accepts requests bearing the configured operator token.
func requireOperator(token string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			slog.WarnContext(c.Request().Context(), "Operator authentication failed", "path", c.Request().URL.Path, "remote_ip", c.RealIP())
			return apperrors.UnauthorizedError("operator token required")
		},
	})
}
