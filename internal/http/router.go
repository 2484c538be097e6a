// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/geo"
	"carpool/internal/http/handlers"
	"carpool/internal/http/middleware"
	"carpool/internal/infra"
	"carpool/internal/modules/location"
	"carpool/internal/modules/pricing"
	"carpool/internal/modules/request"
	"carpool/internal/modules/trip"
	"carpool/internal/modules/vehicle"
)

type ServerDeps struct {
	Logger   *slog.Logger
	Verifier infra.TokenVerifier
	Geo      geo.Lookup
	Trips    *trip.Service
	Requests *request.Service
	Pricing  *pricing.Service
	Location *location.Service
	Vehicles *vehicle.Service
	// AllowedOrigins feeds CORS; empty means any origin.
	AllowedOrigins []string
}

func NewRouter(deps ServerDeps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	geoHandler := handlers.NewGeoHandler(deps.Geo)
	r.GET("/api/autocomplete", geoHandler.Autocomplete)

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	tripHandler := handlers.NewTripHandler(deps.Trips, deps.Pricing, deps.Geo)
	requestHandler := handlers.NewRequestHandler(deps.Requests)
	locationHandler := handlers.NewLocationHandler(deps.Location)

	api.POST("/trips", tripHandler.Create)
	api.GET("/trips", tripHandler.List)
	api.GET("/trips/nearby", locationHandler.Nearby)
	api.GET("/trips/:id", tripHandler.Get)
	api.PATCH("/trips/:id/status", tripHandler.SetStatus)
	api.GET("/trips/:id/price-per-passenger", tripHandler.PricePerPassenger)
	api.GET("/trips/:id/route", tripHandler.Route)
	api.GET("/trips/:id/map", requestHandler.Map)
	api.GET("/trips/:id/requests", requestHandler.ByTrip)
	api.GET("/trips/:id/passengers", requestHandler.Passengers)
	api.PUT("/trips/:id/position", locationHandler.Update)
	api.GET("/trips/:id/position", locationHandler.Current)

	api.POST("/requests", requestHandler.Create)
	api.GET("/requests/mine", requestHandler.Mine)
	api.GET("/requests/driver", requestHandler.ForDriver)
	api.GET("/requests/:id", requestHandler.Get)
	api.PATCH("/requests/:id/:action", requestHandler.SetStatus)

	historyHandler := handlers.NewHistoryHandler(deps.Trips, deps.Requests)
	api.GET("/history/driver", historyHandler.Driver)
	api.GET("/history/passenger", historyHandler.Passenger)

	vehicleHandler := handlers.NewVehicleHandler(deps.Vehicles)
	api.GET("/vehicle", vehicleHandler.Get)
	api.POST("/vehicle", vehicleHandler.Register)
	api.PATCH("/vehicle", vehicleHandler.Update)

	return r
}
