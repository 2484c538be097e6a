// README: Fare split inputs, breakdown and quote.
package pricing

import "carpool/internal/types"

// DefaultRatePerKm is the trip price per driven km, in whole currency units.
const DefaultRatePerKm = 2000.0

// Unused seats are discounted by 3/5 of their per-seat share of the base price.
const emptySeatDiscount = 3.0 / 5.0

type SplitInput struct {
	Distances      []float64 // distance_km of each accepted request
	AvailableSeats int
	RatePerKm      float64
}

type SplitResult struct {
	Passengers           int     `json:"passengers"`
	DistanceTotalKm      float64 `json:"distance_total_km"`
	BasePrice            float64 `json:"base_price"`
	TotalSeats           int     `json:"total_seats"`
	EmptySeats           int     `json:"empty_seats"`
	DiscountPerEmptySeat float64 `json:"discount_per_empty_seat"`
	AmountToSplit        float64 `json:"amount_to_split"`
	PricePerPassenger    float64 `json:"price_per_passenger"`
}

type Quote struct {
	TripID    types.ID    `json:"trip_id"`
	Price     types.Money `json:"price_per_passenger"`
	Breakdown SplitResult `json:"breakdown"`
}
