// README: Location store: trip row in Postgres is the record, Redis GEO holds the live set.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"carpool/internal/infra"
	"carpool/internal/modules/trip"
	"carpool/internal/types"
)

const liveKey = "trips:live"

type Store struct {
	db    infra.DB
	redis *redis.Client
}

// NewStore accepts a nil redis client; positions are then served from Postgres only.
func NewStore(db infra.DB, redis *redis.Client) *Store {
	return &Store{db: db, redis: redis}
}

func (s *Store) TripOwner(ctx context.Context, tripID types.ID) (types.ID, trip.Status, error) {
	var driverID types.ID
	var status trip.Status
	err := s.db.QueryRow(ctx, `SELECT driver_id, status FROM trips WHERE id = $1`, string(tripID)).
		Scan(&driverID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", fmt.Errorf("%w: trip %s", types.ErrNotFound, tripID)
	}
	return driverID, status, err
}

// UpdatePosition overwrites the current position of an active trip. Last write wins.
// A trip that finished or was cancelled after the owner check is left untouched.
func (s *Store) UpdatePosition(ctx context.Context, p Position) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips
		SET current_lat = $2, current_lng = $3, current_geohash = $4, position_updated_at = $5
		WHERE id = $1 AND status IN ('pending', 'in_progress')`,
		string(p.TripID), p.Point.Lat, p.Point.Lng, p.Geohash, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: trip %s is no longer active", types.ErrInvalidState, p.TripID)
	}
	return nil
}

func (s *Store) Position(ctx context.Context, tripID types.ID) (*Position, error) {
	var lat, lng *float64
	var hash *string
	var at *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT current_lat, current_lng, current_geohash, position_updated_at
		FROM trips
		WHERE id = $1`, string(tripID),
	).Scan(&lat, &lng, &hash, &at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: trip %s", types.ErrNotFound, tripID)
	}
	if err != nil {
		return nil, err
	}
	pt := types.PointFrom(lat, lng)
	if pt == nil {
		return nil, fmt.Errorf("%w: trip %s has no position yet", types.ErrNotFound, tripID)
	}
	p := &Position{TripID: tripID, Point: *pt}
	if hash != nil {
		p.Geohash = *hash
	}
	p.UpdatedAt = at
	return p, nil
}

func (s *Store) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO location_snapshots (trip_id, driver_id, lat, lng, geohash, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(snap.TripID), string(snap.DriverID), snap.Point.Lat, snap.Point.Lng, snap.Geohash, snap.RecordedAt,
	)
	return err
}

func (s *Store) SetLive(ctx context.Context, tripID types.ID, pt types.Point) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.GeoAdd(ctx, liveKey, &redis.GeoLocation{
		Name:      string(tripID),
		Longitude: pt.Lng,
		Latitude:  pt.Lat,
	}).Err()
}

// Live returns the cached point, or nil when the trip is not in the live set.
func (s *Store) Live(ctx context.Context, tripID types.ID) (*types.Point, error) {
	if s.redis == nil {
		return nil, nil
	}
	res, err := s.redis.GeoPos(ctx, liveKey, string(tripID)).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 || res[0] == nil {
		return nil, nil
	}
	return &types.Point{Lat: res[0].Latitude, Lng: res[0].Longitude}, nil
}

// NearbyLive lists trips in the live set within radiusKm of p, closest first.
func (s *Store) NearbyLive(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Nearby, error) {
	if s.redis == nil {
		return []Nearby{}, nil
	}
	res, err := s.redis.GeoRadius(ctx, liveKey, p.Lng, p.Lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Nearby, 0, len(res))
	for _, r := range res {
		out = append(out, Nearby{
			TripID:     types.ID(r.Name),
			Point:      types.Point{Lat: r.Latitude, Lng: r.Longitude},
			DistanceKm: r.Dist,
		})
	}
	return out, nil
}

func (s *Store) ClearLive(ctx context.Context, tripID types.ID) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.ZRem(ctx, liveKey, string(tripID)).Err()
}
