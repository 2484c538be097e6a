// README: Address autocomplete handler.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carpool/internal/geo"
)

type GeoHandler struct {
	geo geo.Lookup
}

func NewGeoHandler(lookup geo.Lookup) *GeoHandler {
	if lookup == nil {
		lookup = geo.Unavailable{}
	}
	return &GeoHandler{geo: lookup}
}

func (h *GeoHandler) Autocomplete(c *gin.Context) {
	q := strings.TrimSpace(c.Query("query"))
	if q == "" {
		writeError(c, http.StatusBadRequest, "missing query")
		return
	}
	s, err := h.geo.Autocomplete(c.Request.Context(), q)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"suggestions": s})
}
