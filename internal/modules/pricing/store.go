// README: Pricing store reads the split inputs of a trip in one statement.
package pricing

import (
	"context"
	"errors"
	"fmt"

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

// SplitInputs returns the trip's available seats and the distances of its accepted requests,
// both from the same snapshot.
func (s *Store) SplitInputs(ctx context.Context, tripID types.ID) (available int, distances []float64, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT t.available_seats,
		       COALESCE(array_agg(r.distance_km) FILTER (WHERE r.status = 'accepted'), '{}')
		FROM trips t
		LEFT JOIN ride_requests r ON r.trip_id = t.id
		WHERE t.id = $1
		GROUP BY t.id`, string(tripID),
	).Scan(&available, &distances)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, fmt.Errorf("%w: trip %s", types.ErrNotFound, tripID)
	}
	return available, distances, err
}
