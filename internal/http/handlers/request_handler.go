// README: Ride request handlers: create, driver decisions, passenger and driver views.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/request"
	"carpool/internal/types"
)

type RequestHandler struct {
	requests *request.Service
}

func NewRequestHandler(svc *request.Service) *RequestHandler {
	return &RequestHandler{requests: svc}
}

type createRequestReq struct {
	TripID     string   `json:"trip_id" binding:"required,uuid"`
	Pickup     string   `json:"pickup" binding:"required"`
	Dropoff    string   `json:"dropoff" binding:"required"`
	PickupLat  *float64 `json:"pickup_lat" binding:"omitempty,min=-90,max=90"`
	PickupLng  *float64 `json:"pickup_lng" binding:"omitempty,min=-180,max=180"`
	DropoffLat *float64 `json:"dropoff_lat" binding:"omitempty,min=-90,max=90"`
	DropoffLng *float64 `json:"dropoff_lng" binding:"omitempty,min=-180,max=180"`
}

type setRequestStatusResp struct {
	Request        *request.Request `json:"request"`
	Changed        bool             `json:"changed"`
	AvailableSeats int              `json:"available_seats"`
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.requests.Create(c.Request.Context(), request.CreateCommand{
		Actor:        middleware.Actor(c),
		TripID:       types.ID(req.TripID),
		Pickup:       req.Pickup,
		Dropoff:      req.Dropoff,
		PickupPoint:  point(req.PickupLat, req.PickupLng),
		DropoffPoint: point(req.DropoffLat, req.DropoffLng),
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.requests.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// SetStatus handles PATCH /requests/:id/:action with action accept or reject.
func (h *RequestHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	action := request.Action(c.Param("action"))
	if _, ok := action.Target(); !ok {
		writeError(c, http.StatusBadRequest, "action must be accept or reject")
		return
	}
	tr, err := h.requests.SetStatus(c.Request.Context(), middleware.Actor(c), id, action)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, setRequestStatusResp{
		Request:        tr.Request,
		Changed:        tr.Changed(),
		AvailableSeats: tr.AvailableSeats,
	})
}

func (h *RequestHandler) Mine(c *gin.Context) {
	rs, err := h.requests.ListMine(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": rs})
}

func (h *RequestHandler) ForDriver(c *gin.Context) {
	rs, err := h.requests.ListForDriver(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": rs})
}

func (h *RequestHandler) ByTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rs, err := h.requests.ListByTrip(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": rs})
}

func (h *RequestHandler) Passengers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rs, err := h.requests.ListAccepted(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"passengers": rs})
}

func (h *RequestHandler) Map(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.requests.TripMap(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, m)
}
