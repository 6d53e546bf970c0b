package domain

import "time"

// Draft room statuses.
const (
	DraftStatusWaiting  = "waiting"
	DraftStatusActive   = "active"
	DraftStatusComplete = "complete"
)

// DraftRoom is a realtime draft session for a contest. Version increases on
// every state change; clients discard snapshots older than what they hold.
type DraftRoom struct {
	ID          string
	ContestID   string
	HostID      string
	Seats       int
	RosterSize  int
	Status      string
	Version     int64
	CurrentPick int
	PickClock   time.Duration
	Deadline    time.Time
	CreatedAt   time.Time
}

// DraftSeat assigns a user to a position in the draft order.
type DraftSeat struct {
	RoomID   string
	UserID   string
	Seat     int
	JoinedAt time.Time
}

// DraftPick records a selection. Overall is the 1-based pick number across
// the whole draft; Auto marks clock-expiry picks.
type DraftPick struct {
	ID       string
	RoomID   string
	UserID   string
	PlayerID string
	Overall  int
	Round    int
	Seat     int
	Auto     bool
	PickedAt time.Time
}
