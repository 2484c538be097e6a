// README: Route-level tests: auth gate, binding, error mapping and CORS over pgxmock-backed services.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v3"

	"carpool/internal/geo"
	httptransport "carpool/internal/http"
	"carpool/internal/infra"
	"carpool/internal/modules/location"
	"carpool/internal/modules/pricing"
	"carpool/internal/modules/request"
	"carpool/internal/modules/trip"
	"carpool/internal/modules/vehicle"
	"carpool/internal/types"
)

const (
	tripID = "7b0c3c1e-3f0a-4c59-9a57-4d0c8f0f6a01"
	reqID  = "7b0c3c1e-3f0a-4c59-9a57-4d0c8f0f6a02"
)

// tokenAsUID treats the bearer token as the caller uid; uids starting with "driver" get the driver role.
type tokenAsUID struct{}

func (tokenAsUID) VerifyIDToken(_ context.Context, raw string) (*infra.Token, error) {
	if raw == "bad" {
		return nil, errors.New("bad token")
	}
	claims := map[string]interface{}{}
	if strings.HasPrefix(raw, "driver") {
		claims["role"] = "driver"
	}
	return &infra.Token{UID: raw, Claims: claims}, nil
}

type suggestGeo struct{ geo.Unavailable }

func (suggestGeo) Autocomplete(_ context.Context, q string) ([]geo.Suggestion, error) {
	return []geo.Suggestion{{DisplayName: q + ", Bogotá", PlaceID: "place-1"}}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	r := httptransport.NewRouter(httptransport.ServerDeps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Verifier: tokenAsUID{},
		Geo:      suggestGeo{},
		Trips:    trip.NewService(trip.NewStore(mock), trip.Deps{}),
		Requests: request.NewService(request.NewStore(mock), nil, nil),
		Pricing:  pricing.NewService(pricing.NewStore(mock), 2000, "COP"),
		Location: location.NewService(location.NewStore(mock, nil)),
		Vehicles: vehicle.NewService(vehicle.NewStore(mock)),
	})
	return r, mock
}

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func lockedRow(available int) *pgxmock.Rows {
	lat, lng := 4.68, -74.04
	created := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	return pgxmock.NewRows([]string{
		"id", "trip_id", "passenger_id", "pickup", "pickup_lat", "pickup_lng",
		"dropoff", "dropoff_lat", "dropoff_lng", "distance_km", "status", "created_at", "updated_at",
		"driver_id", "trip_status", "available_seats", "total_seats",
	}).AddRow(
		types.ID(reqID), types.ID(tripID), types.ID("passenger-1"), "Calle 100", &lat, &lng,
		"Calle 72", nil, nil, 4.2, request.StatusPending, created, created,
		types.ID("driver-1"), trip.StatusPending, available, 3,
	)
}

func TestHealthAndAuthGate(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/trips", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/requests/mine", "bad", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", w.Code)
	}
}

func TestAutocompleteIsPublic(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := do(r, http.MethodGet, "/api/autocomplete", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing query: expected 400, got %d", w.Code)
	}
	w := do(r, http.MethodGet, "/api/autocomplete?query=Calle+26", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Calle 26, Bogotá") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestRejectsMalformedInput(t *testing.T) {
	r, mock := newTestRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"bad trip id", http.MethodGet, "/api/trips/not-a-uuid", nil},
		{"unknown action", http.MethodPatch, "/api/requests/" + reqID + "/approve", nil},
		{"non numeric latitude", http.MethodPut, "/api/trips/" + tripID + "/position", `{"lat":"north","lng":-74.1}`},
		{"missing longitude", http.MethodPut, "/api/trips/" + tripID + "/position", `{"lat":4.6}`},
		{"request without dropoff", http.MethodPost, "/api/requests", map[string]any{"trip_id": tripID, "pickup": "Calle 100"}},
		{"nearby without longitude", http.MethodGet, "/api/trips/nearby?lat=4.6", nil},
		{"negative limit", http.MethodGet, "/api/trips?limit=-1", nil},
		{"trip latitude out of range", http.MethodPost, "/api/trips", map[string]any{
			"origin": "A", "destination": "B", "origin_lat": 120.0, "origin_lng": 0.0,
			"departure_at": "2026-03-02T07:00:00Z",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.method, tc.path, "driver-1", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("malformed input must not reach the database: %v", err)
	}
}

func TestAcceptRequest(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF r, t`).WithArgs(reqID).WillReturnRows(lockedRow(1))
	mock.ExpectExec(`UPDATE trips`).WithArgs(tripID, -1).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE ride_requests`).
		WithArgs(reqID, "accepted", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO ride_request_events`).
		WithArgs(reqID, "pending", "accepted", "driver-1", -1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	w := do(r, http.MethodPatch, "/api/requests/"+reqID+"/accept", "driver-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Request        request.Request `json:"request"`
		Changed        bool            `json:"changed"`
		AvailableSeats int             `json:"available_seats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Request.Status != request.StatusAccepted || !resp.Changed || resp.AvailableSeats != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAcceptOnFullTripIsConflict(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF r, t`).WithArgs(reqID).WillReturnRows(lockedRow(0))
	mock.ExpectRollback()

	w := do(r, http.MethodPatch, "/api/requests/"+reqID+"/accept", "driver-1", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAcceptByOtherUserIsForbidden(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF r, t`).WithArgs(reqID).WillReturnRows(lockedRow(2))
	mock.ExpectRollback()

	w := do(r, http.MethodPatch, "/api/requests/"+reqID+"/reject", "passenger-1", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPricePerPassengerRoute(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`array_agg`).WithArgs(tripID).
		WillReturnRows(pgxmock.NewRows([]string{"available_seats", "distances"}).AddRow(0, []float64{2, 3, 4, 5}))

	w := do(r, http.MethodGet, "/api/trips/"+tripID+"/price-per-passenger", "passenger-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var q pricing.Quote
	if err := json.Unmarshal(w.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Price.Amount != 700000 || q.Breakdown.Passengers != 4 || q.Breakdown.BasePrice != 28000 {
		t.Errorf("unexpected quote %+v", q)
	}
}

func TestUnknownTripIsNotFound(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`array_agg`).WithArgs(tripID).WillReturnRows(pgxmock.NewRows([]string{"available_seats", "distances"}))

	if w := do(r, http.MethodGet, "/api/trips/"+tripID+"/price-per-passenger", "passenger-1", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouteLookupFailureIsBadGateway(t *testing.T) {
	r, mock := newTestRouter(t)

	oLat, oLng, dLat, dLng := 4.69, -74.03, 4.64, -74.06
	at := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM trips WHERE id`).WithArgs(tripID).WillReturnRows(pgxmock.NewRows([]string{
		"id", "driver_id", "origin", "origin_lat", "origin_lng", "destination", "destination_lat", "destination_lng",
		"departure_at", "distance_km", "total_price", "currency", "total_seats", "available_seats",
		"status", "status_version", "current_lat", "current_lng", "position_updated_at", "created_at",
	}).AddRow(
		types.ID(tripID), types.ID("driver-1"), "Usaquen", &oLat, &oLng, "Chapinero", &dLat, &dLng,
		at, 7.5, int64(1500000), "COP", 3, 3,
		trip.StatusPending, 0, nil, nil, nil, at,
	))

	w := do(r, http.MethodGet, "/api/trips/"+tripID+"/route", "passenger-1", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
}

func TestNearbyWithoutLiveSet(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/trips/nearby?lat=4.67&lng=-74.05", "passenger-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"trips":[]`) {
		t.Errorf("expected empty list, got %s", w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := httptransport.NewServer(httptransport.ServerDeps{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Verifier:       tokenAsUID{},
		AllowedOrigins: []string{"https://app.example"},
	})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("expected allowed origin header, got %q", got)
	}
}
