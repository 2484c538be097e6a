// README: Pricing service: trip price estimates and the per-passenger quote.
package pricing

import (
	"context"
	"fmt"

	"carpool/internal/types"
)

type Service struct {
	store    *Store
	rate     float64
	currency string
}

func NewService(store *Store, ratePerKm float64, currency string) *Service {
	if ratePerKm <= 0 {
		ratePerKm = DefaultRatePerKm
	}
	return &Service{store: store, rate: ratePerKm, currency: currency}
}

// Estimate is the trip's total price: driven distance times the rate.
func (s *Service) Estimate(_ context.Context, distanceKm float64) (types.Money, error) {
	if distanceKm < 0 {
		return types.Money{}, fmt.Errorf("%w: negative distance %.2f", types.ErrValidation, distanceKm)
	}
	return types.MoneyFromFloat(distanceKm*s.rate, s.currency), nil
}

// PricePerPassenger computes the current share for each accepted passenger. It only reads.
func (s *Service) PricePerPassenger(ctx context.Context, tripID types.ID) (*Quote, error) {
	available, distances, err := s.store.SplitInputs(ctx, tripID)
	if err != nil {
		return nil, err
	}
	res := Split(SplitInput{Distances: distances, AvailableSeats: available, RatePerKm: s.rate})
	return &Quote{
		TripID:    tripID,
		Price:     types.MoneyFromFloat(res.PricePerPassenger, s.currency),
		Breakdown: res,
	}, nil
}
