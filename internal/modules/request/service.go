// README: Ride request service: creation with duplicate guard, driver decisions, passenger/driver views.
package request

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carpool/internal/events"
	"carpool/internal/geo"
	"carpool/internal/modules/trip"
	"carpool/internal/types"
)

type Service struct {
	store  *Store
	geo    geo.Lookup
	events events.Publisher
	now    func() time.Time
}

func NewService(store *Store, lookup geo.Lookup, publisher events.Publisher) *Service {
	if lookup == nil {
		lookup = geo.Unavailable{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{store: store, geo: lookup, events: publisher, now: time.Now}
}

type CreateCommand struct {
	Actor        types.Actor
	TripID       types.ID
	Pickup       string
	Dropoff      string
	PickupPoint  *types.Point
	DropoffPoint *types.Point
}

// MapStop is one accepted passenger's pickup and dropoff.
type MapStop struct {
	RequestID   types.ID     `json:"request_id"`
	PassengerID types.ID     `json:"passenger_id"`
	Pickup      *types.Point `json:"pickup"`
	Dropoff     *types.Point `json:"dropoff"`
}

type TripMap struct {
	TripID      types.ID     `json:"trip_id"`
	Origin      *types.Point `json:"origin"`
	Destination *types.Point `json:"destination"`
	Stops       []MapStop    `json:"stops"`
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Request, error) {
	pickup := strings.TrimSpace(cmd.Pickup)
	dropoff := strings.TrimSpace(cmd.Dropoff)
	switch {
	case cmd.Actor.ID == "" || cmd.TripID == "":
		return nil, fmt.Errorf("%w: trip and passenger are required", types.ErrValidation)
	case pickup == "" || dropoff == "":
		return nil, fmt.Errorf("%w: pickup and dropoff are required", types.ErrValidation)
	case cmd.PickupPoint != nil && !cmd.PickupPoint.Valid(),
		cmd.DropoffPoint != nil && !cmd.DropoffPoint.Valid():
		return nil, fmt.Errorf("%w: coordinates out of range", types.ErrValidation)
	}

	ref, err := s.store.TripRef(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	if ref.Status != trip.StatusPending {
		return nil, fmt.Errorf("%w: trip %s is %s and no longer takes requests", types.ErrInvalidState, ref.ID, ref.Status)
	}
	if ref.DriverID == cmd.Actor.ID {
		return nil, fmt.Errorf("%w: drivers cannot request seats on their own trip", types.ErrForbidden)
	}
	dup, err := s.store.Exists(ctx, cmd.TripID, cmd.Actor.ID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, fmt.Errorf("%w: passenger %s already requested trip %s", types.ErrDuplicateRequest, cmd.Actor.ID, cmd.TripID)
	}

	pickupPt := geo.Resolve(ctx, s.geo, pickup, cmd.PickupPoint)
	dropoffPt := geo.Resolve(ctx, s.geo, dropoff, cmd.DropoffPoint)
	now := s.now()
	r := &Request{
		ID:           types.NewID(),
		TripID:       cmd.TripID,
		PassengerID:  cmd.Actor.ID,
		Pickup:       pickup,
		PickupPoint:  pickupPt,
		Dropoff:      dropoff,
		DropoffPoint: dropoffPt,
		DistanceKm:   geo.DistanceOrZero(ctx, s.geo, pickupPt, dropoffPt),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// SetStatus accepts or rejects a request on behalf of the trip's driver.
// Repeating the current decision is a no-op.
func (s *Service) SetStatus(ctx context.Context, actor types.Actor, id types.ID, action Action) (*Transition, error) {
	to, ok := action.Target()
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", types.ErrValidation, action)
	}
	now := s.now()
	tr, err := s.store.SetStatus(ctx, actor, id, to, now)
	if err != nil {
		return nil, err
	}
	if tr.Changed() {
		events.Emit(ctx, s.events, events.TopicRequestStatusChanged, string(tr.Request.TripID), events.RequestStatusChanged{
			RequestID:      tr.Request.ID,
			TripID:         tr.Request.TripID,
			PassengerID:    tr.Request.PassengerID,
			From:           string(tr.From),
			To:             string(to),
			AvailableSeats: tr.AvailableSeats,
			OccurredAt:     now,
		})
	}
	return tr, nil
}

// Get is visible to the request's passenger and the trip's driver.
func (s *Service) Get(ctx context.Context, actor types.Actor, id types.ID) (*Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.PassengerID == actor.ID {
		return r, nil
	}
	if _, err := s.ownedTrip(ctx, actor, r.TripID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListMine(ctx context.Context, actor types.Actor) ([]*Request, error) {
	return s.store.ListByPassenger(ctx, actor.ID)
}

// ListForDriver lists requests across all of the driver's trips.
func (s *Service) ListForDriver(ctx context.Context, actor types.Actor) ([]*Request, error) {
	return s.store.ListForDriver(ctx, actor.ID)
}

func (s *Service) ListByTrip(ctx context.Context, actor types.Actor, tripID types.ID) ([]*Request, error) {
	if _, err := s.ownedTrip(ctx, actor, tripID); err != nil {
		return nil, err
	}
	return s.store.ListByTrip(ctx, tripID, "")
}

func (s *Service) ListAccepted(ctx context.Context, actor types.Actor, tripID types.ID) ([]*Request, error) {
	if _, err := s.ownedTrip(ctx, actor, tripID); err != nil {
		return nil, err
	}
	return s.store.ListByTrip(ctx, tripID, StatusAccepted)
}

// History lists the passenger's accepted requests on completed trips.
func (s *Service) History(ctx context.Context, actor types.Actor) ([]*Request, error) {
	return s.store.ListHistoryByPassenger(ctx, actor.ID)
}

// TripMap is visible to the driver and to any passenger holding a request on the trip.
func (s *Service) TripMap(ctx context.Context, actor types.Actor, tripID types.ID) (*TripMap, error) {
	ref, err := s.store.TripRef(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if ref.DriverID != actor.ID {
		member, err := s.store.Exists(ctx, tripID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("%w: not a member of trip %s", types.ErrForbidden, tripID)
		}
	}
	accepted, err := s.store.ListByTrip(ctx, tripID, StatusAccepted)
	if err != nil {
		return nil, err
	}
	m := &TripMap{TripID: ref.ID, Origin: ref.Origin, Destination: ref.Destination, Stops: make([]MapStop, 0, len(accepted))}
	for _, r := range accepted {
		m.Stops = append(m.Stops, MapStop{
			RequestID:   r.ID,
			PassengerID: r.PassengerID,
			Pickup:      r.PickupPoint,
			Dropoff:     r.DropoffPoint,
		})
	}
	return m, nil
}

func (s *Service) ownedTrip(ctx context.Context, actor types.Actor, tripID types.ID) (*TripRef, error) {
	ref, err := s.store.TripRef(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if ref.DriverID != actor.ID {
		return nil, fmt.Errorf("%w: trip %s belongs to another driver", types.ErrForbidden, tripID)
	}
	return ref, nil
}
