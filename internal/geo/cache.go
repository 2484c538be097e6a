// README: Redis cache in front of a Lookup for geocode and distance results.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"carpool/internal/types"
)

const (
	geocodeKeyPrefix  = "geo:geocode:"
	distanceKeyPrefix = "geo:distance:"
)

// Cached serves Geocode and DistanceKm from Redis when possible. Failures are never cached,
// and a Redis outage falls through to the provider.
type Cached struct {
	next  Lookup
	redis *redis.Client
	ttl   time.Duration
}

func NewCached(next Lookup, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{next: next, redis: rdb, ttl: ttl}
}

func (c *Cached) Geocode(ctx context.Context, address string) (types.Point, error) {
	key := geocodeKeyPrefix + strings.ToLower(strings.Join(strings.Fields(address), " "))
	var p types.Point
	if c.get(ctx, key, &p) {
		return p, nil
	}
	p, err := c.next.Geocode(ctx, address)
	if err != nil {
		return types.Point{}, err
	}
	c.set(ctx, key, p)
	return p, nil
}

func (c *Cached) DistanceKm(ctx context.Context, origin, destination types.Point) (float64, error) {
	key := fmt.Sprintf("%s%.5f,%.5f:%.5f,%.5f", distanceKeyPrefix, origin.Lat, origin.Lng, destination.Lat, destination.Lng)
	var km float64
	if c.get(ctx, key, &km) {
		return km, nil
	}
	km, err := c.next.DistanceKm(ctx, origin, destination)
	if err != nil {
		return 0, err
	}
	c.set(ctx, key, km)
	return km, nil
}

func (c *Cached) Route(ctx context.Context, origin, destination types.Point) ([]Step, error) {
	return c.next.Route(ctx, origin, destination)
}

func (c *Cached) Autocomplete(ctx context.Context, query string) ([]Suggestion, error) {
	return c.next.Autocomplete(ctx, query)
}

func (c *Cached) get(ctx context.Context, key string, dst any) bool {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "geo cache read failed", "key", key, "error", err)
		}
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *Cached) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "geo cache write failed", "key", key, "error", err)
	}
}
