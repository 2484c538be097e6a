// README: Trip aggregate, status definitions and the trip state flow.
package trip

import (
	"time"

	"carpool/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Active trips still accept requests, seat changes and position updates.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusInProgress
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Trip struct {
	ID                types.ID     `json:"id"`
	DriverID          types.ID     `json:"driver_id"`
	Origin            string       `json:"origin"`
	OriginPoint       *types.Point `json:"origin_point"`
	Destination       string       `json:"destination"`
	DestinationPoint  *types.Point `json:"destination_point"`
	DepartureAt       time.Time    `json:"departure_at"`
	DistanceKm        float64      `json:"distance_km"`
	TotalPrice        types.Money  `json:"total_price"`
	TotalSeats        int          `json:"total_seats"`
	AvailableSeats    int          `json:"available_seats"`
	Status            Status       `json:"status"`
	StatusVersion     int          `json:"-"`
	CurrentPosition   *types.Point `json:"current_position,omitempty"`
	PositionUpdatedAt *time.Time   `json:"position_updated_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

type Event struct {
	ID         int64
	TripID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the trip state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
