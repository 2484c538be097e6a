// README: Ride request aggregate, driver actions and the seat accounting rule.
package request

import (
	"fmt"
	"time"

	"carpool/internal/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Action is what a driver does to a request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

func (a Action) Target() (Status, bool) {
	switch a {
	case ActionAccept:
		return StatusAccepted, true
	case ActionReject:
		return StatusRejected, true
	}
	return "", false
}

type Request struct {
	ID           types.ID     `json:"id"`
	TripID       types.ID     `json:"trip_id"`
	PassengerID  types.ID     `json:"passenger_id"`
	Pickup       string       `json:"pickup"`
	PickupPoint  *types.Point `json:"pickup_point"`
	Dropoff      string       `json:"dropoff"`
	DropoffPoint *types.Point `json:"dropoff_point"`
	DistanceKm   float64      `json:"distance_km"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type Event struct {
	RequestID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorID    types.ID
	SeatDelta  int
	CreatedAt  time.Time
}

// Transition is the committed outcome of a status change.
type Transition struct {
	Request        *Request
	From           Status
	SeatDelta      int
	AvailableSeats int
}

func (t *Transition) Changed() bool {
	return t.From != t.Request.Status
}

// SeatDelta is the change to a trip's available seats when a request moves from -> to.
// Entering accepted takes a seat and needs one free; leaving accepted gives it back.
func SeatDelta(from, to Status, available int) (int, error) {
	switch {
	case to == StatusAccepted && from != StatusAccepted:
		if available <= 0 {
			return 0, fmt.Errorf("%w: trip is full", types.ErrCapacityExceeded)
		}
		return -1, nil
	case from == StatusAccepted && to != StatusAccepted:
		return 1, nil
	}
	return 0, nil
}
