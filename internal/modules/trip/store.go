// README: Trip store backed by PostgreSQL; every status write commits together with its event row.
package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"carpool/internal/infra"
	"carpool/internal/types"
)

type Store struct {
	db infra.DB
}

func NewStore(db infra.DB) *Store {
	return &Store{db: db}
}

const tripColumns = `id, driver_id, origin, origin_lat, origin_lng, destination, destination_lat, destination_lng,
       departure_at, distance_km, total_price, currency, total_seats, available_seats,
       status, status_version, current_lat, current_lng, position_updated_at, created_at`

// Create inserts the trip and its first state event in one transaction.
func (s *Store) Create(ctx context.Context, t *Trip, e *Event) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	oLat, oLng := t.OriginPoint.LatLng()
	dLat, dLng := t.DestinationPoint.LatLng()
	if _, err := tx.Exec(ctx, `
		INSERT INTO trips (
			id, driver_id, origin, origin_lat, origin_lng, destination, destination_lat, destination_lng,
			departure_at, distance_km, total_price, currency, total_seats, available_seats,
			status, status_version, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17
		)`,
		string(t.ID), string(t.DriverID), t.Origin, oLat, oLng, t.Destination, dLat, dLng,
		t.DepartureAt, t.DistanceKm, t.TotalPrice.Amount, t.TotalPrice.Currency, t.TotalSeats, t.AvailableSeats,
		string(t.Status), t.StatusVersion, t.CreatedAt,
	); err != nil {
		return err
	}
	if err := appendEvent(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, string(id))
	t, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: trip %s", types.ErrNotFound, id)
	}
	return t, err
}

type ListFilter struct {
	Status Status
	Limit  int
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE ($1::text = '' OR status = $1)
		ORDER BY departure_at DESC
		LIMIT $2`, string(f.Status), f.Limit)
	if err != nil {
		return nil, err
	}
	return collectTrips(rows)
}

func (s *Store) ListByDriver(ctx context.Context, driverID types.ID, status Status) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE driver_id = $1 AND status = $2
		ORDER BY departure_at DESC`, string(driverID), string(status))
	if err != nil {
		return nil, err
	}
	return collectTrips(rows)
}

// UpdateStatus is a compare-and-swap on (status, status_version) that records e in the same
// transaction; false means another writer won and nothing was written.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, e *Event) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE trips
		SET status = $1,
		    status_version = status_version + 1
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	if err := appendEvent(ctx, tx, e); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func appendEvent(ctx context.Context, tx pgx.Tx, e *Event) error {
	var actor *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actor = &v
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO trip_state_events (trip_id, from_status, to_status, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(e.TripID),
		string(e.FromStatus),
		string(e.ToStatus),
		actor,
		e.CreatedAt,
	)
	return err
}

func scanTrip(row pgx.Row) (*Trip, error) {
	var t Trip
	var oLat, oLng, dLat, dLng, cLat, cLng *float64
	var posAt *time.Time
	err := row.Scan(
		&t.ID, &t.DriverID, &t.Origin, &oLat, &oLng, &t.Destination, &dLat, &dLng,
		&t.DepartureAt, &t.DistanceKm, &t.TotalPrice.Amount, &t.TotalPrice.Currency, &t.TotalSeats, &t.AvailableSeats,
		&t.Status, &t.StatusVersion, &cLat, &cLng, &posAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.OriginPoint = types.PointFrom(oLat, oLng)
	t.DestinationPoint = types.PointFrom(dLat, dLng)
	t.CurrentPosition = types.PointFrom(cLat, cLng)
	t.PositionUpdatedAt = posAt
	return &t, nil
}

func collectTrips(rows pgx.Rows) ([]*Trip, error) {
	defer rows.Close()
	out := []*Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
