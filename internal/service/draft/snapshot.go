package draft

import (
	"encoding/json"
	"time"

	"github.com/topdog/backend/internal/domain"
)

// Snapshot is the full room state pushed to clients after every change.
// Version lets clients discard out-of-order frames.
type Snapshot struct {
	RoomID      string      `json:"room_id"`
	ContestID   string      `json:"contest_id"`
	Status      string      `json:"status"`
	Version     int64       `json:"version"`
	CurrentPick int         `json:"current_pick"`
	OnClockSeat int         `json:"on_clock_seat,omitempty"`
	ClockMS     int64       `json:"clock_remaining_ms"`
	Seats       []SeatState `json:"seats"`
	Picks       []PickState `json:"picks"`
}

// SeatState is a seat as shown to clients.
type SeatState struct {
	Seat   int    `json:"seat"`
	UserID string `json:"user_id"`
}

// PickState is a pick as shown to clients.
type PickState struct {
	Overall  int    `json:"overall"`
	Round    int    `json:"round"`
	Seat     int    `json:"seat"`
	UserID   string `json:"user_id"`
	PlayerID string `json:"player_id"`
	Auto     bool   `json:"auto"`
}

// Marshal serializes the snapshot for the wire.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

func buildSnapshot(room *domain.DraftRoom, seats []domain.DraftSeat, picks []domain.DraftPick, now time.Time) *Snapshot {
	snap := &Snapshot{
		RoomID:      room.ID,
		ContestID:   room.ContestID,
		Status:      room.Status,
		Version:     room.Version,
		CurrentPick: room.CurrentPick,
		Seats:       make([]SeatState, 0, len(seats)),
		Picks:       make([]PickState, 0, len(picks)),
	}
	if room.Status == domain.DraftStatusActive {
		snap.OnClockSeat = snakeSeat(room.CurrentPick, room.Seats)
		if remaining := room.Deadline.Sub(now); remaining > 0 {
			snap.ClockMS = remaining.Milliseconds()
		}
	}
	for _, seat := range seats {
		snap.Seats = append(snap.Seats, SeatState{Seat: seat.Seat, UserID: seat.UserID})
	}
	for _, pick := range picks {
		snap.Picks = append(snap.Picks, PickState{
			Overall:  pick.Overall,
			Round:    pick.Round,
			Seat:     pick.Seat,
			UserID:   pick.UserID,
			PlayerID: pick.PlayerID,
			Auto:     pick.Auto,
		})
	}
	return snap
}
