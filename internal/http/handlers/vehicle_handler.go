// README: Vehicle handlers for the caller's own vehicle.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/vehicle"
)

type VehicleHandler struct {
	vehicles *vehicle.Service
}

func NewVehicleHandler(svc *vehicle.Service) *VehicleHandler {
	return &VehicleHandler{vehicles: svc}
}

type registerVehicleReq struct {
	Make  string `json:"make" binding:"required"`
	Model string `json:"model" binding:"required"`
	Year  int    `json:"year" binding:"required"`
	Color string `json:"color"`
	Plate string `json:"plate" binding:"required"`
	Seats int    `json:"seats" binding:"required,gt=0"`
}

type updateVehicleReq struct {
	Make  *string `json:"make"`
	Model *string `json:"model"`
	Year  *int    `json:"year"`
	Color *string `json:"color"`
	Plate *string `json:"plate"`
	Seats *int    `json:"seats" binding:"omitempty,gt=0"`
}

func (h *VehicleHandler) Get(c *gin.Context) {
	v, err := h.vehicles.Get(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *VehicleHandler) Register(c *gin.Context) {
	var req registerVehicleReq
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.vehicles.Register(c.Request.Context(), middleware.Actor(c), vehicle.RegisterCommand{
		Make:  req.Make,
		Model: req.Model,
		Year:  req.Year,
		Color: req.Color,
		Plate: req.Plate,
		Seats: req.Seats,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, v)
}

func (h *VehicleHandler) Update(c *gin.Context) {
	var req updateVehicleReq
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.vehicles.Update(c.Request.Context(), middleware.Actor(c), vehicle.UpdateCommand{
		Make:  req.Make,
		Model: req.Model,
		Year:  req.Year,
		Color: req.Color,
		Plate: req.Plate,
		Seats: req.Seats,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}
