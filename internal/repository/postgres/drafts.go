package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
)

func millisecondsToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

const draftRoomColumns = `id, contest_id, host_id, seats, roster_size, status, version, current_pick, pick_clock_ms, deadline, created_at`

// CreateDraftRoom inserts a room.
func (r *Repository) CreateDraftRoom(ctx context.Context, room *domain.DraftRoom) error {
	const query = `INSERT INTO draft_rooms (id, contest_id, host_id, seats, roster_size, status, version, current_pick, pick_clock_ms, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, query, room.ID, room.ContestID, room.HostID, room.Seats, room.RosterSize, room.Status, room.Version, room.CurrentPick, room.PickClock.Milliseconds(), room.Deadline, room.CreatedAt)
	if isForeignKeyViolation(err) {
		return repository.ErrNotFound
	}
	return err
}

// GetDraftRoom fetches a room.
func (r *Repository) GetDraftRoom(ctx context.Context, id string) (*domain.DraftRoom, error) {
	const query = `SELECT ` + draftRoomColumns + ` FROM draft_rooms WHERE id = $1`
	var room domain.DraftRoom
	var clockMS int64
	err := r.pool.QueryRow(ctx, query, id).Scan(&room.ID, &room.ContestID, &room.HostID, &room.Seats, &room.RosterSize, &room.Status, &room.Version, &room.CurrentPick, &clockMS, &room.Deadline, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	room.PickClock = millisecondsToDuration(clockMS)
	return &room, nil
}

// UpdateDraftRoom persists room progression. The version guard keeps writes
// strictly ordered: a stale writer loses.
func (r *Repository) UpdateDraftRoom(ctx context.Context, room *domain.DraftRoom) error {
	const query = `UPDATE draft_rooms
		SET status = $2, version = $3, current_pick = $4, deadline = $5
		WHERE id = $1 AND version < $3`
	tag, err := r.pool.Exec(ctx, query, room.ID, room.Status, room.Version, room.CurrentPick, room.Deadline)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrInvalidArgument
	}
	return nil
}

// ListExpiredDraftRooms returns active rooms whose pick deadline has passed,
// for the autopick sweep.
func (r *Repository) ListExpiredDraftRooms(ctx context.Context, now time.Time) ([]domain.DraftRoom, error) {
	const query = `SELECT ` + draftRoomColumns + ` FROM draft_rooms
		WHERE status = 'active' AND deadline <= $1 ORDER BY deadline`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]domain.DraftRoom, 0)
	for rows.Next() {
		var room domain.DraftRoom
		var clockMS int64
		if err := rows.Scan(&room.ID, &room.ContestID, &room.HostID, &room.Seats, &room.RosterSize, &room.Status, &room.Version, &room.CurrentPick, &clockMS, &room.Deadline, &room.CreatedAt); err != nil {
			return nil, err
		}
		room.PickClock = millisecondsToDuration(clockMS)
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// AddDraftSeat assigns a seat.
func (r *Repository) AddDraftSeat(ctx context.Context, seat *domain.DraftSeat) error {
	const query = `INSERT INTO draft_seats (room_id, user_id, seat, joined_at) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, seat.RoomID, seat.UserID, seat.Seat, seat.JoinedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// ListDraftSeats returns seats in draft order.
func (r *Repository) ListDraftSeats(ctx context.Context, roomID string) ([]domain.DraftSeat, error) {
	const query = `SELECT room_id, user_id, seat, joined_at FROM draft_seats WHERE room_id = $1 ORDER BY seat`
	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.DraftSeat, 0)
	for rows.Next() {
		var s domain.DraftSeat
		if err := rows.Scan(&s.RoomID, &s.UserID, &s.Seat, &s.JoinedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// InsertDraftPick records a selection; the unique index on (room_id,
// player_id) rejects picking a taken player.
func (r *Repository) InsertDraftPick(ctx context.Context, pick *domain.DraftPick) error {
	const query = `INSERT INTO draft_picks (id, room_id, user_id, player_id, overall, round, seat, auto, picked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query, pick.ID, pick.RoomID, pick.UserID, pick.PlayerID, pick.Overall, pick.Round, pick.Seat, pick.Auto, pick.PickedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// ListDraftPicks returns picks in selection order.
func (r *Repository) ListDraftPicks(ctx context.Context, roomID string) ([]domain.DraftPick, error) {
	const query = `SELECT id, room_id, user_id, player_id, overall, round, seat, auto, picked_at
		FROM draft_picks WHERE room_id = $1 ORDER BY overall`
	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	picks := make([]domain.DraftPick, 0)
	for rows.Next() {
		var p domain.DraftPick
		if err := rows.Scan(&p.ID, &p.RoomID, &p.UserID, &p.PlayerID, &p.Overall, &p.Round, &p.Seat, &p.Auto, &p.PickedAt); err != nil {
			return nil, err
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// InsertIntegrityFlag records suspicious draft behaviour.
func (r *Repository) InsertIntegrityFlag(ctx context.Context, flag *domain.DraftIntegrityFlag) error {
	const query = `INSERT INTO draft_integrity_flags (id, room_id, user_id, reason, detail, reviewed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, flag.ID, flag.RoomID, flag.UserID, flag.Reason, flag.Detail, flag.Reviewed, flag.CreatedAt)
	return err
}

// ListIntegrityFlags pages flags for the admin review queue.
func (r *Repository) ListIntegrityFlags(ctx context.Context, reviewed *bool, limit, offset int) ([]domain.DraftIntegrityFlag, error) {
	const query = `SELECT id, room_id, user_id, reason, detail, reviewed, created_at
		FROM draft_integrity_flags
		WHERE ($1::boolean IS NULL OR reviewed = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, reviewed, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flags := make([]domain.DraftIntegrityFlag, 0)
	for rows.Next() {
		var f domain.DraftIntegrityFlag
		if err := rows.Scan(&f.ID, &f.RoomID, &f.UserID, &f.Reason, &f.Detail, &f.Reviewed, &f.CreatedAt); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}
