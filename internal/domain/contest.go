package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contest statuses.
const (
	ContestStatusOpen     = "open"
	ContestStatusDrafting = "drafting"
	ContestStatusComplete = "complete"
)

// Contest is a paid tournament that users enter before drafting.
type Contest struct {
	ID          string
	Name        string
	EntryFee    decimal.Decimal
	PrizePool   decimal.Decimal
	MaxEntrants int
	Entrants    int
	RosterSize  int
	Status      string
	CreatedAt   time.Time
}

// ContestEntry links a user to a contest; the entry fee transaction records
// the debit.
type ContestEntry struct {
	ID            string
	ContestID     string
	UserID        string
	TransactionID string
	CreatedAt     time.Time
}
