// README: Live driver position of a trip and its persisted snapshots.
package location

import (
	"time"

	"carpool/internal/types"
)

// Precision 9 is roughly 5m cells.
const geohashPrecision = 9

type Position struct {
	TripID    types.ID    `json:"trip_id"`
	Point     types.Point `json:"position"`
	Geohash   string      `json:"geohash"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"` // unset when served from the live set
}

type Snapshot struct {
	ID         int64
	TripID     types.ID
	DriverID   types.ID
	Point      types.Point
	Geohash    string
	RecordedAt time.Time
}

// Nearby is a trip whose driver was last seen DistanceKm away from the query point.
type Nearby struct {
	TripID     types.ID    `json:"trip_id"`
	Point      types.Point `json:"position"`
	DistanceKm float64     `json:"distance_km"`
}
