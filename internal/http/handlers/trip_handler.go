// README: Trip handlers: create, list, detail, status changes, fare quote and route.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/geo"
	"carpool/internal/http/middleware"
	"carpool/internal/modules/pricing"
	"carpool/internal/modules/trip"
)

type TripHandler struct {
	trips   *trip.Service
	pricing *pricing.Service
	geo     geo.Lookup
}

func NewTripHandler(trips *trip.Service, pricingSvc *pricing.Service, lookup geo.Lookup) *TripHandler {
	if lookup == nil {
		lookup = geo.Unavailable{}
	}
	return &TripHandler{trips: trips, pricing: pricingSvc, geo: lookup}
}

type createTripReq struct {
	Origin         string    `json:"origin" binding:"required"`
	Destination    string    `json:"destination" binding:"required"`
	OriginLat      *float64  `json:"origin_lat" binding:"omitempty,min=-90,max=90"`
	OriginLng      *float64  `json:"origin_lng" binding:"omitempty,min=-180,max=180"`
	DestinationLat *float64  `json:"destination_lat" binding:"omitempty,min=-90,max=90"`
	DestinationLng *float64  `json:"destination_lng" binding:"omitempty,min=-180,max=180"`
	DepartureAt    time.Time `json:"departure_at" binding:"required"`
	SeatCount      int       `json:"seat_count" binding:"gte=0"`
}

type setTripStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *TripHandler) Create(c *gin.Context) {
	var req createTripReq
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.trips.Create(c.Request.Context(), trip.CreateCommand{
		Actor:            middleware.Actor(c),
		Origin:           req.Origin,
		Destination:      req.Destination,
		OriginPoint:      point(req.OriginLat, req.OriginLng),
		DestinationPoint: point(req.DestinationLat, req.DestinationLng),
		DepartureAt:      req.DepartureAt,
		SeatCount:        req.SeatCount,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

func (h *TripHandler) List(c *gin.Context) {
	f := trip.ListFilter{Status: trip.Status(c.Query("status"))}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	trips, err := h.trips.List(c.Request.Context(), f)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": trips})
}

func (h *TripHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.trips.Detail(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *TripHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setTripStatusReq
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.trips.SetStatus(c.Request.Context(), middleware.Actor(c), id, trip.Status(req.Status))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) PricePerPassenger(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	q, err := h.pricing.PricePerPassenger(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

// Route returns turn-by-turn steps between the trip's endpoints.
func (h *TripHandler) Route(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.trips.Get(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	if t.OriginPoint == nil || t.DestinationPoint == nil {
		writeError(c, http.StatusBadRequest, "trip has no coordinates")
		return
	}
	steps, err := h.geo.Route(c.Request.Context(), *t.OriginPoint, *t.DestinationPoint)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trip_id": t.ID, "steps": steps})
}
