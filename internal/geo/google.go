// README: Google Maps implementation of Lookup (Geocoding, Directions, Place Autocomplete).
package geo

import (
	"context"
	"fmt"
	"strconv"

	"googlemaps.github.io/maps"

	"carpool/internal/types"
)

const maxSuggestions = 5

type Google struct {
	client *maps.Client
	cfg    Config
}

func NewGoogle(cfg Config, opts ...maps.ClientOption) (*Google, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(cfg.APIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Google{client: client, cfg: cfg}, nil
}

func (g *Google) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.cfg.Timeout)
}

func (g *Google) Geocode(ctx context.Context, address string) (types.Point, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Language: g.cfg.Language,
		Region:   g.cfg.Region,
	})
	if err != nil {
		return types.Point{}, fmt.Errorf("%w: geocode %q: %v", ErrLookupFailed, address, err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("%w: geocode %q: no results", ErrLookupFailed, address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

func (g *Google) DistanceKm(ctx context.Context, origin, destination types.Point) (float64, error) {
	leg, err := g.firstLeg(ctx, origin, destination)
	if err != nil {
		return 0, err
	}
	return round2(float64(leg.Distance.Meters) / 1000), nil
}

func (g *Google) Route(ctx context.Context, origin, destination types.Point) ([]Step, error) {
	leg, err := g.firstLeg(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(leg.Steps))
	for _, s := range leg.Steps {
		path, err := s.Polyline.Decode()
		if err != nil {
			return nil, fmt.Errorf("%w: decode polyline: %v", ErrLookupFailed, err)
		}
		coords := make([][2]float64, 0, len(path))
		for _, p := range path {
			coords = append(coords, [2]float64{p.Lng, p.Lat})
		}
		steps = append(steps, Step{
			Instruction: s.HTMLInstructions,
			DistanceM:   s.Distance.Meters,
			DurationS:   s.Duration.Seconds(),
			Coordinates: coords,
			Location:    [2]float64{s.StartLocation.Lng, s.StartLocation.Lat},
		})
	}
	return steps, nil
}

func (g *Google) Autocomplete(ctx context.Context, query string) ([]Suggestion, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{
		Input:    query,
		Language: g.cfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: autocomplete %q: %v", ErrLookupFailed, query, err)
	}
	out := make([]Suggestion, 0, maxSuggestions)
	for _, p := range resp.Predictions {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, Suggestion{DisplayName: p.Description, PlaceID: p.PlaceID})
	}
	return out, nil
}

func (g *Google) firstLeg(ctx context.Context, origin, destination types.Point) (*maps.Leg, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	routes, _, err := g.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        maps.TravelModeDriving,
		Language:    g.cfg.Language,
		Region:      g.cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: directions: %v", ErrLookupFailed, err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, fmt.Errorf("%w: no route found", ErrLookupFailed)
	}
	return routes[0].Legs[0], nil
}

func latLng(p types.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
