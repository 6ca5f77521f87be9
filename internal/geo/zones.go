// Package geo provides the static zone geometry lookup used by ingestion and
// the heatmap builder. Zones are geofenced sub-areas of the municipality,
// loaded once at startup from a GeoJSON FeatureCollection; the index is
// immutable afterwards and safe for concurrent use.
package geo

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrNoZone is returned by Resolve when a point inside the municipal bounds
// does not fall inside any zone polygon (e.g. a gap between zones).
var ErrNoZone = errors.New("no zone contains point")

// Zone is one geofenced sub-area with its geometry.
type Zone struct {
	ID       string
	Name     string
	Geometry orb.Geometry
	Bound    orb.Bound
}

// Index resolves coordinates to zones and answers geometry lookups.
type Index struct {
	zones  []Zone
	byID   map[string]*Zone
	bounds orb.Bound // union of all zone bounds
}

// LoadIndex reads a GeoJSON FeatureCollection from path. Each feature must
// carry an "id" property (string) and a Polygon or MultiPolygon geometry;
// a "name" property is optional.
func LoadIndex(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("parse zones: %w", err)
	}
	return NewIndex(fc)
}

// NewIndex builds an Index from an already parsed FeatureCollection.
func NewIndex(fc *geojson.FeatureCollection) (*Index, error) {
	idx := &Index{byID: make(map[string]*Zone, len(fc.Features))}
	for i, f := range fc.Features {
		id, _ := f.Properties["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("zone feature %d has no id property", i)
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			return nil, fmt.Errorf("zone %s: geometry must be Polygon or MultiPolygon", id)
		}
		if _, dup := idx.byID[id]; dup {
			return nil, fmt.Errorf("duplicate zone id %s", id)
		}
		name, _ := f.Properties["name"].(string)
		z := Zone{
			ID:       id,
			Name:     name,
			Geometry: f.Geometry,
			Bound:    f.Geometry.Bound(),
		}
		idx.zones = append(idx.zones, z)
	}
	for i := range idx.zones {
		z := &idx.zones[i]
		idx.byID[z.ID] = z
		if i == 0 {
			idx.bounds = z.Bound
		} else {
			idx.bounds = idx.bounds.Union(z.Bound)
		}
	}
	return idx, nil
}

// Resolve maps a WGS84 coordinate to the ID of the zone containing it.
// Zones are checked in file order; the first hit wins (zone geometries are
// not expected to overlap).
func (x *Index) Resolve(lat, lng float64) (string, error) {
	p := orb.Point{lng, lat}
	for i := range x.zones {
		z := &x.zones[i]
		if !z.Bound.Contains(p) {
			continue
		}
		if geometryContains(z.Geometry, p) {
			return z.ID, nil
		}
	}
	return "", ErrNoZone
}

// Zone returns the zone with the given ID, or nil.
func (x *Index) Zone(id string) *Zone {
	return x.byID[id]
}

// Zones returns all zones in file order. Callers must not mutate the slice.
func (x *Index) Zones() []Zone {
	return x.zones
}

// Len returns the number of zones in the index.
func (x *Index) Len() int { return len(x.zones) }

func geometryContains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	}
	return false
}
