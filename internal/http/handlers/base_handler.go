// README: Base handler utilities (JSON helpers, binding, error mapping).
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carpool/internal/geo"
	"carpool/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeAppError maps domain errors onto status codes. Unknown errors are logged and hidden.
func writeAppError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, types.ErrCapacityExceeded),
		errors.Is(err, types.ErrInvalidState),
		errors.Is(err, types.ErrDuplicateRequest),
		errors.Is(err, types.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, geo.ErrLookupFailed):
		writeError(c, http.StatusBadGateway, "geo lookup unavailable")
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// bindJSON binds and validates the body; on failure it has already answered 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

// pathID reads a uuid path parameter; on failure it has already answered 400.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	v := c.Param(name)
	if _, err := uuid.Parse(v); err != nil || len(v) != 36 {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return types.ID(v), true
}

// point builds an optional point from a pair of optional coordinates; a lone coordinate is ignored.
func point(lat, lng *float64) *types.Point {
	return types.PointFrom(lat, lng)
}
