// README: Geo lookup contract (geocode, driving distance, route, autocomplete) and degrade helpers.
package geo

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"carpool/internal/types"
)

// ErrLookupFailed wraps every provider failure: network, quota, empty result.
var ErrLookupFailed = errors.New("geo lookup failed")

type Config struct {
	APIKey   string
	Language string
	Region   string
	Timeout  time.Duration
}

// Step is one instruction of a driving route. Coordinates are [lon, lat] pairs.
type Step struct {
	Instruction string       `json:"instruction"`
	DistanceM   int          `json:"distance_m"`
	DurationS   float64      `json:"duration_s"`
	Coordinates [][2]float64 `json:"coordinates"`
	Location    [2]float64   `json:"location"`
}

type Suggestion struct {
	DisplayName string `json:"display_name"`
	PlaceID     string `json:"place_id"`
}

type Lookup interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
	DistanceKm(ctx context.Context, origin, destination types.Point) (float64, error)
	Route(ctx context.Context, origin, destination types.Point) ([]Step, error)
	Autocomplete(ctx context.Context, query string) ([]Suggestion, error)
}

// Resolve returns known when the caller already supplied coordinates, otherwise geocodes address.
// A failed lookup yields nil.
func Resolve(ctx context.Context, l Lookup, address string, known *types.Point) *types.Point {
	if known != nil {
		p := *known
		return &p
	}
	p, err := l.Geocode(ctx, address)
	if err != nil {
		slog.WarnContext(ctx, "geocode degraded", "address", address, "error", err)
		return nil
	}
	return &p
}

// DistanceOrZero is the driving distance in km, or 0 when either end is unknown or the lookup fails.
func DistanceOrZero(ctx context.Context, l Lookup, origin, destination *types.Point) float64 {
	if origin == nil || destination == nil {
		return 0
	}
	km, err := l.DistanceKm(ctx, *origin, *destination)
	if err != nil {
		slog.WarnContext(ctx, "distance degraded", "error", err)
		return 0
	}
	return km
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Unavailable is used when no provider is configured; every call fails with ErrLookupFailed.
type Unavailable struct{}

func (Unavailable) Geocode(context.Context, string) (types.Point, error) {
	return types.Point{}, ErrLookupFailed
}

func (Unavailable) DistanceKm(context.Context, types.Point, types.Point) (float64, error) {
	return 0, ErrLookupFailed
}

func (Unavailable) Route(context.Context, types.Point, types.Point) ([]Step, error) {
	return nil, ErrLookupFailed
}

func (Unavailable) Autocomplete(context.Context, string) ([]Suggestion, error) {
	return nil, ErrLookupFailed
}
