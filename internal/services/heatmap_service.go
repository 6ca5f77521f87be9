// Package services – HeatmapService
//
// This file implements the read-side heatmap builder: it joins the latest
// consensus row per zone with the static zone geometry and emits a GeoJSON
// FeatureCollection for map clients. It never mutates state and is safe to
// call concurrently and repeatedly.
package services

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/geo"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/repo"
)

// HeatmapService builds map-renderable views of the current zone statuses.
type HeatmapService struct {
	DB    *gorm.DB
	Zones *geo.Index
}

// HeatmapQuery selects what the builder returns.
type HeatmapQuery struct {
	// ServiceType is required: electricity or water.
	ServiceType string
	// BBox optionally restricts output to zones whose bounds intersect it.
	BBox *orb.Bound
	// IncludeUnknown also emits zones whose consensus is unknown (and zones
	// the aggregator has never touched). Off by default.
	IncludeUnknown bool
}

// Build assembles the feature collection for q. Each feature carries the
// zone geometry and {zone_id, status, confidence, supporting_report_count,
// computed_at} properties.
func (s *HeatmapService) Build(ctx context.Context, q HeatmapQuery) (*geojson.FeatureCollection, error) {
	tr := otel.Tracer("services/HeatmapService")
	ctx, span := tr.Start(ctx, "Build",
		trace.WithAttributes(attribute.String("service.type", q.ServiceType)),
	)
	defer span.End()

	if !domain.ValidServiceType(q.ServiceType) {
		return nil, ErrInvalidServiceType
	}

	statuses, err := repo.LatestZoneStatuses(ctx, s.DB, q.ServiceType)
	if err != nil {
		return nil, err
	}
	byZone := make(map[string]*domain.ZoneStatus, len(statuses))
	for i := range statuses {
		byZone[statuses[i].ZoneID] = &statuses[i]
	}

	fc := geojson.NewFeatureCollection()
	for _, z := range s.Zones.Zones() {
		if q.BBox != nil && !q.BBox.Intersects(z.Bound) {
			continue
		}

		zs, computed := byZone[z.ID]
		status := domain.StatusUnknown
		confidence := 0.0
		supporting := 0
		if computed {
			status = zs.ConsensusStatus
			confidence = zs.Confidence
			supporting = zs.SupportingReportCount
		}
		if status == domain.StatusUnknown && !q.IncludeUnknown {
			continue
		}

		f := geojson.NewFeature(z.Geometry)
		f.Properties["zone_id"] = z.ID
		if z.Name != "" {
			f.Properties["name"] = z.Name
		}
		f.Properties["status"] = status
		f.Properties["confidence"] = confidence
		f.Properties["supporting_report_count"] = supporting
		if computed {
			f.Properties["computed_at"] = zs.ComputedAt
		}
		fc.Append(f)
	}
	return fc, nil
}
