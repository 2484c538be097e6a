// README: Location handlers: driver position reports and current position reads.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/location"
	"carpool/internal/types"
)

type LocationHandler struct {
	location *location.Service
}

func NewLocationHandler(svc *location.Service) *LocationHandler {
	return &LocationHandler{location: svc}
}

// Range checks happen in the service so out-of-range values get the domain error message.
type updatePositionReq struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (h *LocationHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updatePositionReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.location.UpdateDriverPosition(c.Request.Context(), middleware.Actor(c), id, *req.Lat, *req.Lng)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (h *LocationHandler) Current(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.location.Current(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

type nearbyReq struct {
	Lat      *float64 `form:"lat" binding:"required"`
	Lng      *float64 `form:"lng" binding:"required"`
	RadiusKm float64  `form:"radius_km"`
}

// Nearby lists active trips whose driver is close to the given point.
func (h *LocationHandler) Nearby(c *gin.Context) {
	var req nearbyReq
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	trips, err := h.location.Nearby(c.Request.Context(), types.Point{Lat: *req.Lat, Lng: *req.Lng}, req.RadiusKm)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": trips})
}
