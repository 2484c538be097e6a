// README: Location service: driver position updates for active trips and current position reads.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcloughlin/geohash"

	"carpool/internal/types"
)

type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: time.Now}
}

// UpdateDriverPosition records where the driver of an active trip is.
// The trip row is authoritative; the live set and the snapshot log are best effort
// and only follow a position the trip row accepted.
func (s *Service) UpdateDriverPosition(ctx context.Context, actor types.Actor, tripID types.ID, lat, lng float64) (*Position, error) {
	pt := types.Point{Lat: lat, Lng: lng}
	if !pt.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range (%f, %f)", types.ErrValidation, lat, lng)
	}
	driverID, status, err := s.store.TripOwner(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if driverID != actor.ID {
		return nil, fmt.Errorf("%w: only the trip driver can report its position", types.ErrForbidden)
	}
	if !status.Active() {
		return nil, fmt.Errorf("%w: trip %s is %s", types.ErrInvalidState, tripID, status)
	}

	at := s.now().UTC()
	p := Position{
		TripID:    tripID,
		Point:     pt,
		Geohash:   geohash.EncodeWithPrecision(lat, lng, geohashPrecision),
		UpdatedAt: &at,
	}
	if err := s.store.UpdatePosition(ctx, p); err != nil {
		return nil, err
	}
	if err := s.store.SetLive(ctx, tripID, pt); err != nil {
		slog.WarnContext(ctx, "live position not cached", "trip_id", tripID, "error", err)
	}
	if err := s.store.AppendSnapshot(ctx, Snapshot{
		TripID:     tripID,
		DriverID:   driverID,
		Point:      pt,
		Geohash:    p.Geohash,
		RecordedAt: at,
	}); err != nil {
		slog.WarnContext(ctx, "location snapshot dropped", "trip_id", tripID, "error", err)
	}
	return &p, nil
}

// Current prefers the live set and falls back to the trip row.
func (s *Service) Current(ctx context.Context, tripID types.ID) (*Position, error) {
	pt, err := s.store.Live(ctx, tripID)
	if err != nil {
		slog.WarnContext(ctx, "live position lookup failed", "trip_id", tripID, "error", err)
	}
	if pt != nil {
		return &Position{
			TripID:  tripID,
			Point:   *pt,
			Geohash: geohash.EncodeWithPrecision(pt.Lat, pt.Lng, geohashPrecision),
		}, nil
	}
	return s.store.Position(ctx, tripID)
}

const (
	defaultNearbyRadiusKm = 5.0
	maxNearbyRadiusKm     = 50.0
	nearbyLimit           = 20
)

// Nearby lists active trips whose driver is within radiusKm of p. A zero radius means the default.
func (s *Service) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]Nearby, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range (%f, %f)", types.ErrValidation, p.Lat, p.Lng)
	}
	if radiusKm == 0 {
		radiusKm = defaultNearbyRadiusKm
	}
	if radiusKm < 0 || radiusKm > maxNearbyRadiusKm {
		return nil, fmt.Errorf("%w: radius must be within (0, %.0f] km", types.ErrValidation, maxNearbyRadiusKm)
	}
	return s.store.NearbyLive(ctx, p, radiusKm, nearbyLimit)
}

// Clear drops the trip from the live set once it stops moving.
func (s *Service) Clear(ctx context.Context, tripID types.ID) error {
	return s.store.ClearLive(ctx, tripID)
}
