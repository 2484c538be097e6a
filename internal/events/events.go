// README: Domain event payloads and the Publisher contract.
package events

import (
	"context"
	"log/slog"
	"time"

	"carpool/internal/types"
)

const (
	TopicTripCreated          = "trip.created"
	TopicTripStatusChanged    = "trip.status_changed"
	TopicRequestStatusChanged = "ride_request.status_changed"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type TripCreated struct {
	TripID     types.ID  `json:"trip_id"`
	DriverID   types.ID  `json:"driver_id"`
	TotalSeats int       `json:"total_seats"`
	OccurredAt time.Time `json:"occurred_at"`
}

type TripStatusChanged struct {
	TripID     types.ID  `json:"trip_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ActorID    types.ID  `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type RequestStatusChanged struct {
	RequestID      types.ID  `json:"request_id"`
	TripID         types.ID  `json:"trip_id"`
	PassengerID    types.ID  `json:"passenger_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	AvailableSeats int       `json:"available_seats"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Emit publishes best effort: a failure is logged and never reaches the caller,
// whose state change has already been committed.
func Emit(ctx context.Context, p Publisher, topic, key string, value any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, key, value); err != nil {
		slog.WarnContext(ctx, "event publish failed", "topic", topic, "key", key, "error", err)
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
