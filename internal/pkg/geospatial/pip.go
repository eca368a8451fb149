package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PointInRing runs the standard even-odd ray-casting test against a single
// ring. Holes are not subtracted; callers test outer rings only.
//
// Points exactly on an edge follow the half-open crossing rule (an edge
// counts only when its lower endpoint is strictly below the ray), which is
// deterministic across repeated calls.
func PointInRing(p orb.Point, ring orb.Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > p[1]) != (yj > p[1]) &&
			p[0] < (xj-xi)*(p[1]-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PointInRegion reports whether (lng, lat) lies inside any feature of the
// collection, testing only outer rings of Polygon and MultiPolygon parts.
func PointInRegion(lng, lat float64, fc *geojson.FeatureCollection) bool {
	if fc == nil {
		return false
	}
	p := orb.Point{lng, lat}
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if len(g) > 0 && PointInRing(p, g[0]) {
				return true
			}
		case orb.MultiPolygon:
			for _, part := range g {
				if len(part) > 0 && PointInRing(p, part[0]) {
					return true
				}
			}
		default:
			// point/line features cannot contain a point
		}
	}
	return false
}
