package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserProfile is the read-only view of a voter used for weighting.
type UserProfile struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Points         int64
	IdeasSubmitted int
	VotesCast      int
	VerifiedProofs []string
}

// ProfileSource loads voter profiles. Returns ErrUserNotFound for unknown IDs.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
}

// IdeaSource answers whether a vote target exists.
type IdeaSource interface {
	IdeaExists(ctx context.Context, ideaID uuid.UUID) (bool, error)
}
