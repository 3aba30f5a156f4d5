package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/votepulse/internal/domain"
)

// ParticipationPoints is awarded to the voter with every committed vote.
const ParticipationPoints = 5

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"

	constraintVoteIdea = "votes_idea_id_fkey"
	constraintVoteUser = "votes_user_id_fkey"
)

// Ledger is the authoritative vote store. It also serves vote history.
type Ledger struct {
	pool *pgxpool.Pool
}

var (
	_ domain.Ledger      = (*Ledger)(nil)
	_ domain.VoteHistory = (*Ledger)(nil)
)

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Commit inserts the vote, adds its weight to the idea total and awards the
// voter's points in one transaction. Nothing is written unless all three succeed.
func (l *Ledger) Commit(ctx context.Context, intent domain.VoteIntent) (domain.CommitResult, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return domain.CommitResult{}, domain.Transient("begin vote transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	vote := domain.Vote{VoterID: intent.VoterID, IdeaID: intent.IdeaID, Weight: intent.Weight}
	if err := tx.QueryRow(ctx, insertVote, intent.VoterID, intent.IdeaID, int64(intent.Weight)).Scan(&vote.ID, &vote.CreatedAt); err != nil {
		return domain.CommitResult{}, mapInsertError(err)
	}

	var total int64
	err = tx.QueryRow(ctx, addIdeaVoteCount, intent.IdeaID, int64(intent.Weight)).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CommitResult{}, domain.ErrIdeaNotFound
	}
	if err != nil {
		return domain.CommitResult{}, domain.Transient("update idea total", err)
	}

	tag, err := tx.Exec(ctx, awardPoints, intent.VoterID, ParticipationPoints)
	if err != nil {
		return domain.CommitResult{}, domain.Transient("award points", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.CommitResult{}, domain.ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.CommitResult{}, domain.Transient("commit vote transaction", err)
	}

	vote.CreatedAt = vote.CreatedAt.UTC()
	return domain.CommitResult{Vote: vote, IdeaTotal: domain.Weight(total)}, nil
}

func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return domain.ErrDuplicateVote
		case codeForeignKeyViolation:
			switch pgErr.ConstraintName {
			case constraintVoteIdea:
				return domain.ErrIdeaNotFound
			case constraintVoteUser:
				return domain.ErrUserNotFound
			}
		}
	}
	return domain.Transient("insert vote", err)
}

func (l *Ledger) RecentVotes(ctx context.Context, voterID uuid.UUID, limit int) ([]domain.VoteRecord, error) {
	rows, err := l.pool.Query(ctx, recentVotesByUser, voterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent votes: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.VoteRecord, error) {
		var r domain.VoteRecord
		err := row.Scan(&r.ID, &r.IdeaID, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan recent votes: %w", err)
	}
	return records, nil
}

func (l *Ledger) CycleVotes(ctx context.Context, cycleID uuid.UUID) ([]domain.CycleVote, error) {
	rows, err := l.pool.Query(ctx, cycleVotes, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle votes: %w", err)
	}

	votes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CycleVote, error) {
		var v domain.CycleVote
		err := row.Scan(&v.ID, &v.VoterID, &v.IdeaID, &v.SubmitterID, &v.CreatedAt)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan cycle votes: %w", err)
	}
	return votes, nil
}

func (l *Ledger) ReconcileCycle(ctx context.Context, cycleID uuid.UUID) ([]domain.AggregateDrift, error) {
	rows, err := l.pool.Query(ctx, reconcileCycle, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query idea totals: %w", err)
	}

	drift, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AggregateDrift, error) {
		var (
			d              domain.AggregateDrift
			stored, ledger int64
		)
		err := row.Scan(&d.IdeaID, &stored, &ledger)
		d.Stored, d.LedgerSum = domain.Weight(stored), domain.Weight(ledger)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan idea totals: %w", err)
	}
	return drift, nil
}
