package domain

import "time"

// Integrity flag reasons.
const (
	IntegrityReasonFastPicks = "fast_picks"
)

// DraftIntegrityFlag marks suspicious draft behaviour for admin review.
type DraftIntegrityFlag struct {
	ID        string
	RoomID    string
	UserID    string
	Reason    string
	Detail    string
	Reviewed  bool
	CreatedAt time.Time
}
