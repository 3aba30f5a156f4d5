package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/votepulse/internal/domain"
)

type IdeaRepo struct {
	pool *pgxpool.Pool
}

var _ domain.IdeaSource = (*IdeaRepo)(nil)

func NewIdeaRepo(pool *pgxpool.Pool) *IdeaRepo {
	return &IdeaRepo{pool: pool}
}

func (r *IdeaRepo) IdeaExists(ctx context.Context, ideaID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, ideaExists, ideaID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check idea: %w", err)
	}
	return exists, nil
}
