package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
)

const playerColumns = `id, external_id, name, team, position, projected_points, position_rank, adp, updated_at`

// Players with no ADP data carry a zero adp; NULLIF pushes them behind every
// real ADP so "lowest ADP first" never prefers an unranked player.
const listPlayersQuery = `SELECT ` + playerColumns + ` FROM players
	WHERE ($1 = '' OR position = $1)
	ORDER BY NULLIF(adp, 0) NULLS LAST, position_rank LIMIT $2 OFFSET $3`

const availablePlayersQuery = `SELECT ` + playerColumns + ` FROM players p
	WHERE NOT EXISTS (
		SELECT 1 FROM draft_picks dp WHERE dp.room_id = $1 AND dp.player_id = p.id
	)
	ORDER BY NULLIF(p.adp, 0) NULLS LAST, p.position_rank LIMIT $2`

// UpsertPlayers writes projection rows keyed by external id, returning the
// number of rows written. Batched so a full projection import is one round
// trip.
func (r *Repository) UpsertPlayers(ctx context.Context, players []domain.Player) (int, error) {
	if len(players) == 0 {
		return 0, nil
	}
	const query = `INSERT INTO players (id, external_id, name, team, position, projected_points, position_rank, adp, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			team = EXCLUDED.team,
			position = EXCLUDED.position,
			projected_points = EXCLUDED.projected_points,
			position_rank = EXCLUDED.position_rank,
			adp = EXCLUDED.adp,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(query, p.ID, p.ExternalID, p.Name, p.Team, p.Position, p.ProjectedPoints, p.PositionRank, p.ADP)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range players {
		if _, err := results.Exec(); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// ListPlayers pages projections, optionally by position, ordered by ADP.
func (r *Repository) ListPlayers(ctx context.Context, position string, limit, offset int) ([]domain.Player, error) {
	rows, err := r.pool.Query(ctx, listPlayersQuery, position, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayers(rows)
}

// GetPlayerByID fetches one projection row.
func (r *Repository) GetPlayerByID(ctx context.Context, id string) (*domain.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	var p domain.Player
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.ExternalID, &p.Name, &p.Team, &p.Position, &p.ProjectedPoints, &p.PositionRank, &p.ADP, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListAvailablePlayers returns the best undrafted players for a room, used
// for clock-expiry autopicks.
func (r *Repository) ListAvailablePlayers(ctx context.Context, roomID string, limit int) ([]domain.Player, error) {
	rows, err := r.pool.Query(ctx, availablePlayersQuery, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayers(rows)
}

// LatestPlayerUpdate returns the most recent projection write, used for ETag
// generation.
func (r *Repository) LatestPlayerUpdate(ctx context.Context) (time.Time, error) {
	const query = `SELECT COALESCE(MAX(updated_at), 'epoch'::timestamptz) FROM players`
	var latest time.Time
	if err := r.pool.QueryRow(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	return latest, nil
}

func scanPlayers(rows pgx.Rows) ([]domain.Player, error) {
	players := make([]domain.Player, 0)
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.ExternalID, &p.Name, &p.Team, &p.Position, &p.ProjectedPoints, &p.PositionRank, &p.ADP, &p.UpdatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
