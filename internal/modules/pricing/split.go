// README: Fare split engine: per-passenger share from accepted distances and seat utilization.
package pricing

import "math"

// Split charges accepted passengers the base price minus a discount for every seat still empty,
// divided evenly. The seat count is rebuilt as available + accepted so it always agrees with
// the accepted set it was read with. No accepted passengers yields a zero result.
func Split(in SplitInput) SplitResult {
	p := len(in.Distances)
	if p == 0 {
		return SplitResult{TotalSeats: in.AvailableSeats, EmptySeats: in.AvailableSeats}
	}
	rate := in.RatePerKm
	if rate <= 0 {
		rate = DefaultRatePerKm
	}

	var total float64
	for _, d := range in.Distances {
		total += d
	}
	base := total * rate
	seats := in.AvailableSeats + p
	empty := seats - p
	discount := emptySeatDiscount * (base / float64(seats))
	amount := base - float64(empty)*discount

	return SplitResult{
		Passengers:           p,
		DistanceTotalKm:      total,
		BasePrice:            base,
		TotalSeats:           seats,
		EmptySeats:           empty,
		DiscountPerEmptySeat: discount,
		AmountToSplit:        amount,
		PricePerPassenger:    round2(amount / float64(p)),
	}
}

// round2 rounds half away from zero; shares are never negative so this is half-up.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
