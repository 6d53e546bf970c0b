package domain

import "time"

// Player positions recognised by the projection importer.
const (
	PositionQB = "QB"
	PositionRB = "RB"
	PositionWR = "WR"
	PositionTE = "TE"
)

// Player carries a season projection row. ExternalID is the importer's upsert
// key; PositionRank and ADP order draft-time autopicks.
type Player struct {
	ID              string
	ExternalID      string
	Name            string
	Team            string
	Position        string
	ProjectedPoints float64
	PositionRank    int
	ADP             float64
	UpdatedAt       time.Time
}
