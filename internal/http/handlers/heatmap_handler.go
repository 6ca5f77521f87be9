// Heatmap and zone status HTTP handlers.
//
// This file exposes the read side of the aggregation engine:
//   - GET /status-heatmap          (GeoJSON features for map rendering)
//   - GET /zones/:id/status        (latest consensus for one zone)
//
// Both are pure reads over the zone status log and the static zone index;
// they never trigger recomputes.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/repo"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/services"
)

// ZoneStatusResponse is the JSON envelope for one zone's consensus.
type ZoneStatusResponse struct {
	Status *domain.ZoneStatus `json:"status"`
}

// GetHeatmap godoc
// @ID          getHeatmap
// @Summary     Zone status heatmap
// @Description Returns a GeoJSON FeatureCollection of zones tagged with their
// @Description current consensus status and confidence for the given service.
// @Description Zones with unknown status are excluded unless include_unknown=true.
// @Tags        Heatmap
// @Produce     json
// @Param       service          query  string  true  "Service type"  Enums(electricity, water)
// @Param       bbox             query  string  false "minLng,minLat,maxLng,maxLat"
// @Param       include_unknown  query  bool    false "Also emit unknown zones"
// @Success     200  {object}  map[string]any               "GeoJSON FeatureCollection"
// @Failure     400  {object}  handlers.ErrorResponse       "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse       "Internal error"
// @Router      /status-heatmap [get]
func (h *Handlers) GetHeatmap(c *gin.Context) {
	ctx := c.Request.Context()

	q := services.HeatmapQuery{
		ServiceType:    c.Query("service"),
		IncludeUnknown: strings.EqualFold(c.Query("include_unknown"), "true"),
	}

	if raw := c.Query("bbox"); raw != "" {
		bound, err := parseBBox(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "bbox must be minLng,minLat,maxLng,maxLat")
			return
		}
		q.BBox = bound
	}

	fc, err := h.heatmap.Build(ctx, q)
	if err != nil {
		if errors.Is(err, services.ErrInvalidServiceType) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "service must be electricity or water")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, fc)
}

// GetZoneStatus godoc
// @ID          getZoneStatus
// @Summary     Latest consensus for one zone
// @Tags        Heatmap
// @Produce     json
// @Param       id       path   string  true  "Zone ID"
// @Param       service  query  string  true  "Service type"  Enums(electricity, water)
// @Success     200  {object}  handlers.ZoneStatusResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Zone unknown or never computed"
// @Router      /zones/{id}/status [get]
func (h *Handlers) GetZoneStatus(c *gin.Context) {
	ctx := c.Request.Context()
	zoneID := c.Param("id")

	serviceType := c.Query("service")
	if !domain.ValidServiceType(serviceType) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "service must be electricity or water")
		return
	}
	if h.heatmap.Zones.Zone(zoneID) == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "zone not found")
		return
	}

	zs, err := repo.LatestZoneStatus(ctx, h.heatmap.DB, zoneID, serviceType)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeStatusUnknown, "status never computed for zone")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, ZoneStatusResponse{Status: zs})
}

// parseBBox parses "minLng,minLat,maxLng,maxLat" into an orb.Bound.
func parseBBox(raw string) (*orb.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, errors.New("bbox needs 4 values")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = f
	}
	if vals[0] >= vals[2] || vals[1] >= vals[3] {
		return nil, errors.New("bbox is empty")
	}
	b := orb.Bound{
		Min: orb.Point{vals[0], vals[1]},
		Max: orb.Point{vals[2], vals[3]},
	}
	return &b, nil
}
