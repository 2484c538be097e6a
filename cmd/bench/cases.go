// README: Bench cases: environment checks, the trip/request flow, the last-seat race, fare split and load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"carpool/internal/infra"
	"carpool/internal/modules/pricing"
)

var benchTables = []string{
	"vehicles", "trips", "trip_state_events", "ride_requests", "ride_request_events", "location_snapshots",
}

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	run        string
	driver     string
	tripID     string
	requestIDs []string
	distances  map[string]float64
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	run := fmt.Sprintf("%d", time.Now().Unix())
	return &Runner{
		cfg:       cfg,
		httpc:     &http.Client{Timeout: 10 * time.Second},
		run:       run,
		driver:    "driver-bench-" + run,
		distances: map[string]float64{},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: "SKIP", Note: "db not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: "SKIP", Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Schema: tables exist", Run: checkTables},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			status, lat, err := r.call(ctx, http.MethodGet, "/health", "", nil, nil)
			return expect(status, lat, err, http.StatusOK)
		}},
		{Name: "API: missing token -> 401", Run: func(ctx context.Context, r *Runner) Result {
			status, lat, err := r.call(ctx, http.MethodGet, "/api/trips", "", nil, nil)
			return expect(status, lat, err, http.StatusUnauthorized)
		}},
		{Name: "Flow: driver registers vehicle", Run: registerVehicle},
		{Name: "Flow: driver creates trip", Run: createTrip},
		{Name: "Flow: passengers request seats", Run: requestSeats},
		{Name: "Flow: duplicate request -> 409", Run: duplicateRequest},
		{Name: "Race: concurrent accepts never overbook", Run: concurrentAccept},
		{Name: "Fare: price per passenger matches split", Run: checkFare},
		{Name: "Perf: list trips", Run: perfLoad},
	}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: "SKIP", Note: "db not configured"}
	}
	for _, t := range benchTables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
		if !exists {
			return Result{Status: "FAIL", Note: "missing table: " + t}
		}
	}
	return Result{Status: "PASS"}
}

func registerVehicle(ctx context.Context, r *Runner) Result {
	if r.cfg.JWTSecret == "" {
		return Result{Status: "SKIP", Note: "jwt-secret not set"}
	}
	status, lat, err := r.call(ctx, http.MethodPost, "/api/vehicle", r.driver, map[string]any{
		"make": "Renault", "model": "Logan", "year": 2021, "color": "gris",
		"plate": "BNC" + r.run[len(r.run)-3:], "seats": r.cfg.Seats,
	}, nil)
	return expect(status, lat, err, http.StatusCreated, http.StatusConflict)
}

func createTrip(ctx context.Context, r *Runner) Result {
	if r.cfg.JWTSecret == "" {
		return Result{Status: "SKIP", Note: "jwt-secret not set"}
	}
	var out struct {
		ID string `json:"id"`
	}
	status, lat, err := r.call(ctx, http.MethodPost, "/api/trips", r.driver, map[string]any{
		"origin": "Universidad Nacional, Bogotá", "origin_lat": 4.6381, "origin_lng": -74.0840,
		"destination": "Chía, Cundinamarca", "destination_lat": 4.8617, "destination_lng": -74.0323,
		"departure_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		"seat_count":   r.cfg.Seats,
	}, &out)
	res := expect(status, lat, err, http.StatusCreated)
	if res.Status == "PASS" {
		r.tripID = out.ID
		res.Note = "trip=" + out.ID
	}
	return res
}

func requestSeats(ctx context.Context, r *Runner) Result {
	if r.tripID == "" {
		return Result{Status: "SKIP", Note: "no trip"}
	}
	start := time.Now()
	for i := 0; i < r.cfg.Passengers; i++ {
		var out struct {
			ID         string  `json:"id"`
			DistanceKm float64 `json:"distance_km"`
		}
		status, _, err := r.call(ctx, http.MethodPost, "/api/requests", r.passenger(i), map[string]any{
			"trip_id": r.tripID,
			"pickup":  "Calle 26 #" + fmt.Sprint(30+i), "pickup_lat": 4.63 + float64(i)/1000, "pickup_lng": -74.08,
			"dropoff": "Chía centro", "dropoff_lat": 4.86, "dropoff_lng": -74.05,
		}, &out)
		if err != nil || status != http.StatusCreated {
			return Result{Status: "FAIL", Note: fmt.Sprintf("passenger %d: status=%d err=%v", i, status, err)}
		}
		r.requestIDs = append(r.requestIDs, out.ID)
		r.distances[out.ID] = out.DistanceKm
	}
	return Result{Status: "PASS", Latency: time.Since(start), Note: fmt.Sprintf("requests=%d", len(r.requestIDs))}
}

func duplicateRequest(ctx context.Context, r *Runner) Result {
	if r.tripID == "" {
		return Result{Status: "SKIP", Note: "no trip"}
	}
	status, lat, err := r.call(ctx, http.MethodPost, "/api/requests", r.passenger(0), map[string]any{
		"trip_id": r.tripID, "pickup": "otra vez", "dropoff": "Chía centro",
	}, nil)
	return expect(status, lat, err, http.StatusConflict)
}

// concurrentAccept accepts every request at once; exactly Seats must win.
func concurrentAccept(ctx context.Context, r *Runner) Result {
	if len(r.requestIDs) == 0 {
		return Result{Status: "SKIP", Note: "no requests"}
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	codes := map[int]int{}
	start := time.Now()
	for _, id := range r.requestIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			status, _, err := r.call(ctx, http.MethodPatch, "/api/requests/"+id+"/accept", r.driver, nil, nil)
			if err != nil {
				status = -1
			}
			mu.Lock()
			codes[status]++
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	want := min(r.cfg.Seats, len(r.requestIDs))
	note := fmt.Sprintf("accepted=%d full=%d other=%d", codes[http.StatusOK], codes[http.StatusConflict],
		len(r.requestIDs)-codes[http.StatusOK]-codes[http.StatusConflict])
	if codes[http.StatusOK] != want || codes[http.StatusOK]+codes[http.StatusConflict] != len(r.requestIDs) {
		return Result{Status: "FAIL", Latency: time.Since(start), Note: note}
	}

	var trip struct {
		AvailableSeats int `json:"available_seats"`
	}
	if _, _, err := r.call(ctx, http.MethodGet, "/api/trips/"+r.tripID, r.driver, nil, &trip); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if trip.AvailableSeats != r.cfg.Seats-want {
		return Result{Status: "FAIL", Note: fmt.Sprintf("%s available_seats=%d", note, trip.AvailableSeats)}
	}
	return Result{Status: "PASS", Latency: time.Since(start), Note: note}
}

func checkFare(ctx context.Context, r *Runner) Result {
	if r.tripID == "" {
		return Result{Status: "SKIP", Note: "no trip"}
	}
	var passengers struct {
		Passengers []struct {
			ID string `json:"id"`
		} `json:"passengers"`
	}
	if _, _, err := r.call(ctx, http.MethodGet, "/api/trips/"+r.tripID+"/passengers", r.driver, nil, &passengers); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	var trip struct {
		AvailableSeats int `json:"available_seats"`
	}
	if _, _, err := r.call(ctx, http.MethodGet, "/api/trips/"+r.tripID, r.driver, nil, &trip); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	distances := make([]float64, 0, len(passengers.Passengers))
	for _, p := range passengers.Passengers {
		distances = append(distances, r.distances[p.ID])
	}
	want := pricing.Split(pricing.SplitInput{Distances: distances, AvailableSeats: trip.AvailableSeats, RatePerKm: r.cfg.RatePerKm})

	var quote pricing.Quote
	status, lat, err := r.call(ctx, http.MethodGet, "/api/trips/"+r.tripID+"/price-per-passenger", r.passenger(0), nil, &quote)
	if res := expect(status, lat, err, http.StatusOK); res.Status != "PASS" {
		return res
	}
	if math.Abs(quote.Breakdown.PricePerPassenger-want.PricePerPassenger) > 0.005 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("got %.2f want %.2f", quote.Breakdown.PricePerPassenger, want.PricePerPassenger)}
	}
	return Result{Status: "PASS", Latency: lat, Note: fmt.Sprintf("price=%.2f", want.PricePerPassenger)}
}

func perfLoad(ctx context.Context, r *Runner) Result {
	if r.cfg.JWTSecret == "" {
		return Result{Status: "SKIP", Note: "jwt-secret not set"}
	}
	end := time.Now().Add(r.cfg.Duration)
	var mu sync.Mutex
	var latencies []time.Duration
	var errCount int
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, lat, err := r.call(ctx, http.MethodGet, "/api/trips?status=pending&limit=20", r.passenger(i), nil, nil)
				mu.Lock()
				if err != nil || status != http.StatusOK {
					errCount++
				} else {
					latencies = append(latencies, lat)
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p95 := latencies[len(latencies)*95/100]
	rps := float64(len(latencies)) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f p95=%s errors=%d", rps, p95, errCount)}
}

func (r *Runner) passenger(i int) string {
	return fmt.Sprintf("passenger-bench-%s-%d", r.run, i)
}

// token signs a short-lived HS256 token; uids starting with "driver" carry the driver role.
func (r *Runner) token(uid string) (string, error) {
	claims := infra.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	if len(uid) >= 6 && uid[:6] == "driver" {
		claims.Role = "driver"
	}
	return infra.SignJWT(r.cfg.JWTSecret, claims)
}

// call sends one request as uid (no auth when uid is empty) and decodes a 2xx body into out.
func (r *Runner) call(ctx context.Context, method, path, uid string, body, out any) (int, time.Duration, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, &buf)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		tok, err := r.token(uid)
		if err != nil {
			return 0, 0, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	lat := time.Since(start)
	if out != nil && resp.StatusCode/100 == 2 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, lat, err
		}
		return resp.StatusCode, lat, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, lat, nil
}

func expect(status int, lat time.Duration, err error, ok ...int) Result {
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	for _, s := range ok {
		if status == s {
			return Result{Status: "PASS", Latency: lat, Note: fmt.Sprintf("status=%d", status)}
		}
	}
	return Result{Status: "FAIL", Latency: lat, Note: fmt.Sprintf("status=%d", status)}
}
