// README: Ride history for drivers (completed trips) and passengers (accepted requests on completed trips).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/request"
	"carpool/internal/modules/trip"
)

type HistoryHandler struct {
	trips    *trip.Service
	requests *request.Service
}

func NewHistoryHandler(trips *trip.Service, requests *request.Service) *HistoryHandler {
	return &HistoryHandler{trips: trips, requests: requests}
}

func (h *HistoryHandler) Driver(c *gin.Context) {
	trips, err := h.trips.History(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": trips})
}

func (h *HistoryHandler) Passenger(c *gin.Context) {
	rs, err := h.requests.History(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": rs})
}
