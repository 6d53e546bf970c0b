package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
)

const contestColumns = `id, name, entry_fee, prize_pool, max_entrants, entrants, roster_size, status, created_at`

// CreateContest inserts a contest.
func (r *Repository) CreateContest(ctx context.Context, contest *domain.Contest) error {
	const query = `INSERT INTO contests (id, name, entry_fee, prize_pool, max_entrants, entrants, roster_size, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query, contest.ID, contest.Name, contest.EntryFee, contest.PrizePool, contest.MaxEntrants, contest.Entrants, contest.RosterSize, contest.Status, contest.CreatedAt)
	return err
}

// GetContestByID fetches a contest.
func (r *Repository) GetContestByID(ctx context.Context, id string) (*domain.Contest, error) {
	const query = `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`
	var c domain.Contest
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.EntryFee, &c.PrizePool, &c.MaxEntrants, &c.Entrants, &c.RosterSize, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListContests pages contests, optionally filtered by status.
func (r *Repository) ListContests(ctx context.Context, status string, limit, offset int) ([]domain.Contest, error) {
	const query = `SELECT ` + contestColumns + ` FROM contests
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contests := make([]domain.Contest, 0)
	for rows.Next() {
		var c domain.Contest
		if err := rows.Scan(&c.ID, &c.Name, &c.EntryFee, &c.PrizePool, &c.MaxEntrants, &c.Entrants, &c.RosterSize, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

// UpdateContestStatus transitions a contest.
func (r *Repository) UpdateContestStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE contests SET status = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateContestEntry claims a seat and records the entry in one transaction.
// The guarded UPDATE rejects full or non-open contests without a separate
// read.
func (r *Repository) CreateContestEntry(ctx context.Context, entry *domain.ContestEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const claim = `UPDATE contests SET entrants = entrants + 1
		WHERE id = $1 AND status = 'open' AND entrants < max_entrants`
	tag, err := tx.Exec(ctx, claim, entry.ContestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetContestByID(ctx, entry.ContestID); errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrInvalidArgument
	}

	const insert = `INSERT INTO contest_entries (id, contest_id, user_id, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, insert, entry.ID, entry.ContestID, entry.UserID, entry.TransactionID, entry.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return tx.Commit(ctx)
}
