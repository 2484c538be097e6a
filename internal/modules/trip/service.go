// README: Trip service: creation with geo/pricing enrichment, driver-owned status transitions, reads.
package trip

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"carpool/internal/events"
	"carpool/internal/geo"
	"carpool/internal/modules/vehicle"
	"carpool/internal/types"
)

type Pricing interface {
	Estimate(ctx context.Context, distanceKm float64) (types.Money, error)
}

type Drivers interface {
	IsDriver(ctx context.Context, actor types.Actor) (bool, error)
	Vehicle(ctx context.Context, userID types.ID) (*vehicle.Vehicle, error)
}

// LivePositions drops cached positions once a trip stops moving.
type LivePositions interface {
	Clear(ctx context.Context, tripID types.ID) error
}

type Deps struct {
	Geo     geo.Lookup
	Pricing Pricing
	Drivers Drivers
	Live    LivePositions
	Events  events.Publisher
}

type Service struct {
	store *Store
	deps  Deps
	now   func() time.Time
}

func NewService(store *Store, deps Deps) *Service {
	if deps.Geo == nil {
		deps.Geo = geo.Unavailable{}
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	return &Service{store: store, deps: deps, now: time.Now}
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type CreateCommand struct {
	Actor            types.Actor
	Origin           string
	Destination      string
	OriginPoint      *types.Point
	DestinationPoint *types.Point
	DepartureAt      time.Time
	// SeatCount 0 means "all passenger seats of the registered vehicle".
	SeatCount int
}

type Detail struct {
	*Trip
	Vehicle *vehicle.Vehicle `json:"vehicle"`
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Trip, error) {
	origin := strings.TrimSpace(cmd.Origin)
	destination := strings.TrimSpace(cmd.Destination)
	switch {
	case cmd.Actor.ID == "":
		return nil, fmt.Errorf("%w: missing driver", types.ErrValidation)
	case origin == "" || destination == "":
		return nil, fmt.Errorf("%w: origin and destination are required", types.ErrValidation)
	case cmd.DepartureAt.IsZero():
		return nil, fmt.Errorf("%w: departure time is required", types.ErrValidation)
	case cmd.SeatCount < 0:
		return nil, fmt.Errorf("%w: seat count must not be negative", types.ErrValidation)
	case cmd.OriginPoint != nil && !cmd.OriginPoint.Valid(),
		cmd.DestinationPoint != nil && !cmd.DestinationPoint.Valid():
		return nil, fmt.Errorf("%w: coordinates out of range", types.ErrValidation)
	}

	ok, err := s.deps.Drivers.IsDriver(ctx, cmd.Actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s is not a driver", types.ErrForbidden, cmd.Actor.ID)
	}

	seats := cmd.SeatCount
	veh, err := s.deps.Drivers.Vehicle(ctx, cmd.Actor.ID)
	if err != nil {
		return nil, err
	}
	if veh != nil {
		if seats == 0 {
			seats = veh.Seats
		}
		if seats > veh.Seats {
			return nil, fmt.Errorf("%w: vehicle %s has %d seats, requested %d", types.ErrValidation, veh.Plate, veh.Seats, seats)
		}
	}
	if seats < 1 {
		return nil, fmt.Errorf("%w: seat count must be at least 1", types.ErrValidation)
	}

	originPt := geo.Resolve(ctx, s.deps.Geo, origin, cmd.OriginPoint)
	destPt := geo.Resolve(ctx, s.deps.Geo, destination, cmd.DestinationPoint)
	distance := geo.DistanceOrZero(ctx, s.deps.Geo, originPt, destPt)

	price, err := s.deps.Pricing.Estimate(ctx, distance)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &Trip{
		ID:               types.NewID(),
		DriverID:         cmd.Actor.ID,
		Origin:           origin,
		OriginPoint:      originPt,
		Destination:      destination,
		DestinationPoint: destPt,
		DepartureAt:      cmd.DepartureAt,
		DistanceKm:       distance,
		TotalPrice:       price,
		TotalSeats:       seats,
		AvailableSeats:   seats,
		Status:           StatusPending,
		CreatedAt:        now,
	}
	if err := s.store.Create(ctx, t, newEvent(t.ID, StatusNone, StatusPending, cmd.Actor.ID, now)); err != nil {
		return nil, err
	}
	events.Emit(ctx, s.deps.Events, events.TopicTripCreated, string(t.ID), events.TripCreated{
		TripID:     t.ID,
		DriverID:   t.DriverID,
		TotalSeats: t.TotalSeats,
		OccurredAt: now,
	})
	return t, nil
}

// SetStatus moves a trip along AllowedTransitions. Only the trip's driver may do so.
func (s *Service) SetStatus(ctx context.Context, actor types.Actor, id types.ID, to Status) (*Trip, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown trip status %q", types.ErrInvalidState, to)
	}
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.DriverID != actor.ID {
		return nil, fmt.Errorf("%w: trip %s belongs to another driver", types.ErrForbidden, id)
	}
	from := t.Status
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: trip %s cannot go from %s to %s", types.ErrInvalidState, id, from, to)
	}
	now := s.now()
	ok, err := s.store.UpdateStatus(ctx, id, from, to, t.StatusVersion, newEvent(id, from, to, actor.ID, now))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: trip %s changed concurrently", types.ErrConflict, id)
	}
	t.Status = to
	t.StatusVersion++

	if !to.Active() && s.deps.Live != nil {
		if err := s.deps.Live.Clear(ctx, id); err != nil {
			slog.WarnContext(ctx, "clear live position failed", "trip_id", id, "error", err)
		}
	}
	events.Emit(ctx, s.deps.Events, events.TopicTripStatusChanged, string(id), events.TripStatusChanged{
		TripID:     id,
		From:       string(from),
		To:         string(to),
		ActorID:    actor.ID,
		OccurredAt: now,
	})
	return t, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	return s.store.Get(ctx, id)
}

// Detail is the trip plus the driver's vehicle when one is registered.
func (s *Service) Detail(ctx context.Context, id types.ID) (*Detail, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	veh, err := s.deps.Drivers.Vehicle(ctx, t.DriverID)
	if err != nil {
		return nil, err
	}
	return &Detail{Trip: t, Vehicle: veh}, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Trip, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown trip status %q", types.ErrValidation, f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return s.store.List(ctx, f)
}

// History lists the driver's completed trips, newest first.
func (s *Service) History(ctx context.Context, actor types.Actor) ([]*Trip, error) {
	return s.store.ListByDriver(ctx, actor.ID, StatusCompleted)
}

func newEvent(id types.ID, from, to Status, actorID types.ID, at time.Time) *Event {
	return &Event{
		TripID:     id,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    &actorID,
		CreatedAt:  at,
	}
}
