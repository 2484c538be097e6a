// README: Ride request store; status changes run in one transaction holding the trip row lock.
package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"carpool/internal/infra"
	"carpool/internal/modules/trip"
	"carpool/internal/types"
)

const uniqueTripPassenger = "ride_requests_trip_passenger_key"

type Store struct {
	db infra.DB
}

func NewStore(db infra.DB) *Store {
	return &Store{db: db}
}

const requestColumns = `r.id, r.trip_id, r.passenger_id, r.pickup, r.pickup_lat, r.pickup_lng,
       r.dropoff, r.dropoff_lat, r.dropoff_lng, r.distance_km, r.status, r.created_at, r.updated_at`

// TripRef is the slice of a trip that request operations need.
type TripRef struct {
	ID          types.ID
	DriverID    types.ID
	Status      trip.Status
	Origin      *types.Point
	Destination *types.Point
}

func (s *Store) TripRef(ctx context.Context, tripID types.ID) (*TripRef, error) {
	var ref TripRef
	var oLat, oLng, dLat, dLng *float64
	err := s.db.QueryRow(ctx, `
		SELECT id, driver_id, status, origin_lat, origin_lng, destination_lat, destination_lng
		FROM trips
		WHERE id = $1`, string(tripID),
	).Scan(&ref.ID, &ref.DriverID, &ref.Status, &oLat, &oLng, &dLat, &dLng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: trip %s", types.ErrNotFound, tripID)
	}
	if err != nil {
		return nil, err
	}
	ref.Origin = types.PointFrom(oLat, oLng)
	ref.Destination = types.PointFrom(dLat, dLng)
	return &ref, nil
}

func (s *Store) Exists(ctx context.Context, tripID, passengerID types.ID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ride_requests
			WHERE trip_id = $1 AND passenger_id = $2
		)`, string(tripID), string(passengerID),
	).Scan(&exists)
	return exists, err
}

func (s *Store) Create(ctx context.Context, r *Request) error {
	pLat, pLng := r.PickupPoint.LatLng()
	dLat, dLng := r.DropoffPoint.LatLng()
	_, err := s.db.Exec(ctx, `
		INSERT INTO ride_requests (
			id, trip_id, passenger_id, pickup, pickup_lat, pickup_lng,
			dropoff, dropoff_lat, dropoff_lng, distance_km, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(r.ID), string(r.TripID), string(r.PassengerID), r.Pickup, pLat, pLng,
		r.Dropoff, dLat, dLng, r.DistanceKm, string(r.Status), r.CreatedAt, r.UpdatedAt,
	)
	if infra.IsUniqueViolation(err, uniqueTripPassenger) {
		return fmt.Errorf("%w: passenger %s already requested trip %s", types.ErrDuplicateRequest, r.PassengerID, r.TripID)
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Request, error) {
	row := s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM ride_requests r WHERE r.id = $1`, string(id))
	r, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: ride request %s", types.ErrNotFound, id)
	}
	return r, err
}

// SetStatus applies a driver decision. The request and its trip are locked for the whole
// transaction, so two accepts racing for the last seat are serialized and the second sees 0.
func (s *Store) SetStatus(ctx context.Context, actor types.Actor, id types.ID, to Status, at time.Time) (*Transition, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var driverID types.ID
	var tripStatus trip.Status
	var available, total int
	row := tx.QueryRow(ctx, `
		SELECT `+requestColumns+`, t.driver_id, t.status, t.available_seats, t.total_seats
		FROM ride_requests r
		JOIN trips t ON t.id = r.trip_id
		WHERE r.id = $1
		FOR UPDATE OF r, t`, string(id))
	req, err := scanRequest(row, &driverID, &tripStatus, &available, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: ride request %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if driverID != actor.ID {
		return nil, fmt.Errorf("%w: only the trip driver can decide on request %s", types.ErrForbidden, id)
	}
	if !tripStatus.Active() {
		return nil, fmt.Errorf("%w: trip %s is %s", types.ErrInvalidState, req.TripID, tripStatus)
	}

	from := req.Status
	out := &Transition{Request: req, From: from, AvailableSeats: available}
	if from == to {
		return out, tx.Commit(ctx)
	}
	delta, err := SeatDelta(from, to, available)
	if err != nil {
		return nil, err
	}

	if delta != 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE trips
			SET available_seats = available_seats + $2
			WHERE id = $1 AND available_seats + $2 BETWEEN 0 AND total_seats`,
			string(req.TripID), delta,
		)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() != 1 {
			return nil, fmt.Errorf("%w: trip %s seat count out of range", types.ErrCapacityExceeded, req.TripID)
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE ride_requests
		SET status = $2, updated_at = $3
		WHERE id = $1`,
		string(id), string(to), at,
	); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO ride_request_events (request_id, from_status, to_status, actor_id, seat_delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(id), string(from), string(to), string(actor.ID), delta, at,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	req.Status = to
	req.UpdatedAt = at
	out.SeatDelta = delta
	out.AvailableSeats = available + delta
	return out, nil
}

func (s *Store) ListByPassenger(ctx context.Context, passengerID types.ID) ([]*Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+`
		FROM ride_requests r
		WHERE r.passenger_id = $1
		ORDER BY r.created_at DESC`, string(passengerID))
}

// ListByTrip returns every request on the trip, or only those in status when it is set.
func (s *Store) ListByTrip(ctx context.Context, tripID types.ID, status Status) ([]*Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+`
		FROM ride_requests r
		WHERE r.trip_id = $1 AND ($2::text = '' OR r.status = $2)
		ORDER BY r.created_at`, string(tripID), string(status))
}

func (s *Store) ListForDriver(ctx context.Context, driverID types.ID) ([]*Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+`
		FROM ride_requests r
		JOIN trips t ON t.id = r.trip_id
		WHERE t.driver_id = $1
		ORDER BY r.created_at DESC`, string(driverID))
}

// ListHistoryByPassenger returns accepted requests on completed trips.
func (s *Store) ListHistoryByPassenger(ctx context.Context, passengerID types.ID) ([]*Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+`
		FROM ride_requests r
		JOIN trips t ON t.id = r.trip_id
		WHERE r.passenger_id = $1 AND r.status = 'accepted' AND t.status = 'completed'
		ORDER BY t.departure_at DESC`, string(passengerID))
}

func (s *Store) list(ctx context.Context, sql string, args ...any) ([]*Request, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row, extra ...any) (*Request, error) {
	var r Request
	var pLat, pLng, dLat, dLng *float64
	dest := []any{
		&r.ID, &r.TripID, &r.PassengerID, &r.Pickup, &pLat, &pLng,
		&r.Dropoff, &dLat, &dLng, &r.DistanceKm, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.PickupPoint = types.PointFrom(pLat, pLng)
	r.DropoffPoint = types.PointFrom(dLat, dLng)
	return &r, nil
}
