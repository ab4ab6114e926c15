// Package region wraps the polygon a pipeline run is restricted to.
package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Region is an immutable polygon or multipolygon with a CRS.
type Region struct {
	shape orb.MultiPolygon
	crs   string
}

// New builds a region from a polygon, multipolygon or bound.
func New(g orb.Geometry, crs string) (*Region, error) {
	if crs == "" {
		crs = schema.GeographicCRS
	}
	var mp orb.MultiPolygon
	switch v := orb.Clone(g).(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		mp = v
	case orb.Bound:
		mp = orb.MultiPolygon{v.ToPolygon()}
	case orb.Ring:
		mp = orb.MultiPolygon{orb.Polygon{v}}
	default:
		return nil, fmt.Errorf("region must be a polygon or multipolygon, got %s", g.GeoJSONType())
	}
	if len(mp) == 0 || len(mp[0]) == 0 || len(mp[0][0]) < 4 {
		return nil, errors.New("region polygon is empty")
	}
	return &Region{shape: mp, crs: crs}, nil
}

// FromBBox builds a rectangular region from minx, miny, maxx, maxy.
func FromBBox(bbox []float64) (*Region, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox needs 4 values, got %d", len(bbox))
	}
	if bbox[0] >= bbox[2] || bbox[1] >= bbox[3] {
		return nil, fmt.Errorf("bbox %v has no area", bbox)
	}
	return New(orb.Bound{Min: orb.Point{bbox[0], bbox[1]}, Max: orb.Point{bbox[2], bbox[3]}}, schema.GeographicCRS)
}

// Parse reads a GeoJSON FeatureCollection, Feature or bare geometry. Every
// polygonal member of a collection is merged into one multipolygon.
func Parse(data []byte) (*Region, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read GeoJSON: %w", err)
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature collection: %w", err)
		}
		var mp orb.MultiPolygon
		for _, f := range fc.Features {
			mp = appendPolygonal(mp, f.Geometry)
		}
		if len(mp) == 0 {
			return nil, errors.New("feature collection has no polygons")
		}
		return New(mp, schema.GeographicCRS)
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature: %w", err)
		}
		return New(f.Geometry, schema.GeographicCRS)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse geometry: %w", err)
		}
		return New(g.Geometry(), schema.GeographicCRS)
	}
}

// Load reads a GeoJSON file.
func Load(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region %s: %w", path, err)
	}
	return Parse(data)
}

func appendPolygonal(mp orb.MultiPolygon, g orb.Geometry) orb.MultiPolygon {
	switch v := g.(type) {
	case orb.Polygon:
		return append(mp, v)
	case orb.MultiPolygon:
		return append(mp, v...)
	case orb.Collection:
		for _, member := range v {
			mp = appendPolygonal(mp, member)
		}
	}
	return mp
}

// CRS returns the coordinate reference system of the region.
func (r *Region) CRS() string { return r.crs }

// Bound returns the bounding box.
func (r *Region) Bound() orb.Bound { return r.shape.Bound() }

// Geometry returns a copy of the underlying multipolygon.
func (r *Region) Geometry() orb.MultiPolygon {
	return orb.Clone(r.shape).(orb.MultiPolygon)
}

// Contains reports whether a point lies inside the region.
func (r *Region) Contains(x, y float64) bool {
	return planar.MultiPolygonContains(r.shape, orb.Point{x, y})
}

// Area returns the planar area in CRS units squared.
func (r *Region) Area() float64 { return planar.Area(r.shape) }

// SameCRS reports whether the region shares a CRS with a grid.
func (r *Region) SameCRS(crs string) bool { return strings.EqualFold(r.crs, crs) }

// GeoJSON encodes the region as a GeoJSON geometry.
func (r *Region) GeoJSON() ([]byte, error) {
	return geojson.NewGeometry(r.shape).MarshalJSON()
}

func (r *Region) String() string {
	b := r.Bound()
	return fmt.Sprintf("%d polygon(s) within [%g %g %g %g] %s", len(r.shape), b.Min[0], b.Min[1], b.Max[0], b.Max[1], r.crs)
}
