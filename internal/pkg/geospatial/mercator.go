package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// originShift is half the Web-Mercator circumference in meters (EPSG:3857).
const originShift = 20037508.34

// MercatorToGeographic converts a Web-Mercator coordinate to WGS 84
// longitude/latitude degrees.
func MercatorToGeographic(x, y float64) (lng, lat float64) {
	lng = x / originShift * 180
	t := y / originShift * 180
	lat = math.Atan(math.Exp(t*math.Pi/180))*360/math.Pi - 90
	return
}

// DetectAndReproject inspects the first coordinate of the first feature:
// when it falls outside geographic range (|x| > 180 or |y| > 90) the whole
// collection is treated as Web-Mercator and every coordinate is
// reprojected into a fresh copy. Collections already in geographic
// coordinates are returned unchanged.
func DetectAndReproject(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	if fc == nil || len(fc.Features) == 0 {
		return fc
	}
	first, ok := firstCoordinate(fc.Features[0].Geometry)
	if !ok {
		return fc
	}
	if math.Abs(first[0]) <= 180 && math.Abs(first[1]) <= 90 {
		return fc
	}

	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		nf := geojson.NewFeature(reprojectGeometry(f.Geometry))
		nf.ID = f.ID
		nf.Properties = f.Properties.Clone()
		out.Append(nf)
	}
	return out
}

func firstCoordinate(g orb.Geometry) (orb.Point, bool) {
	switch g := g.(type) {
	case orb.Point:
		return g, true
	case orb.MultiPoint:
		if len(g) > 0 {
			return g[0], true
		}
	case orb.LineString:
		if len(g) > 0 {
			return g[0], true
		}
	case orb.MultiLineString:
		if len(g) > 0 && len(g[0]) > 0 {
			return g[0][0], true
		}
	case orb.Ring:
		if len(g) > 0 {
			return g[0], true
		}
	case orb.Polygon:
		if len(g) > 0 && len(g[0]) > 0 {
			return g[0][0], true
		}
	case orb.MultiPolygon:
		if len(g) > 0 && len(g[0]) > 0 && len(g[0][0]) > 0 {
			return g[0][0][0], true
		}
	case orb.Collection:
		for _, sub := range g {
			if p, ok := firstCoordinate(sub); ok {
				return p, true
			}
		}
	}
	return orb.Point{}, false
}

// reprojectGeometry rebuilds the geometry with every coordinate converted,
// leaving the input untouched.
func reprojectGeometry(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Point:
		return reprojectPoint(g)
	case orb.MultiPoint:
		out := make(orb.MultiPoint, len(g))
		for i, p := range g {
			out[i] = reprojectPoint(p)
		}
		return out
	case orb.LineString:
		out := make(orb.LineString, len(g))
		for i, p := range g {
			out[i] = reprojectPoint(p)
		}
		return out
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = reprojectGeometry(ls).(orb.LineString)
		}
		return out
	case orb.Ring:
		out := make(orb.Ring, len(g))
		for i, p := range g {
			out[i] = reprojectPoint(p)
		}
		return out
	case orb.Polygon:
		out := make(orb.Polygon, len(g))
		for i, r := range g {
			out[i] = reprojectGeometry(r).(orb.Ring)
		}
		return out
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, poly := range g {
			out[i] = reprojectGeometry(poly).(orb.Polygon)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, len(g))
		for i, sub := range g {
			out[i] = reprojectGeometry(sub)
		}
		return out
	}
	return g
}

func reprojectPoint(p orb.Point) orb.Point {
	lng, lat := MercatorToGeographic(p[0], p[1])
	return orb.Point{lng, lat}
}
