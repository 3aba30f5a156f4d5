package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/votepulse/internal/domain"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

var _ domain.ProfileSource = (*ProfileRepo)(nil)

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// GetProfile loads the voter with their contribution counts and verified proofs.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	var (
		p           domain.UserProfile
		ideas, cast int64
	)
	err := r.pool.QueryRow(ctx, getUserProfile, userID).Scan(&p.ID, &p.CreatedAt, &p.Points, &ideas, &cast)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	p.IdeasSubmitted, p.VotesCast = int(ideas), int(cast)

	rows, err := r.pool.Query(ctx, listVerifiedProofs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query identity proofs: %w", err)
	}
	p.VerifiedProofs, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan identity proofs: %w", err)
	}

	return &p, nil
}
