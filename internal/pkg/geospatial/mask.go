package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// worldRing is the full-globe outer boundary of an inverse mask,
// counter-clockwise per the polygon-with-holes convention.
func worldRing() orb.Ring {
	return orb.Ring{
		{-180, -90},
		{180, -90},
		{180, 90},
		{-180, 90},
		{-180, -90},
	}
}

// BuildInverseMask constructs a polygon covering the whole globe with one
// clockwise hole per region part, used to visually de-emphasize everything
// outside a region of interest. Only the outer ring of each Polygon or
// MultiPolygon part becomes a hole; inner rings of the input are ignored.
func BuildInverseMask(fc *geojson.FeatureCollection) orb.Polygon {
	mask := orb.Polygon{worldRing()}
	if fc == nil {
		return mask
	}
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if len(g) > 0 {
				mask = append(mask, EnsureWinding(g[0], true))
			}
		case orb.MultiPolygon:
			for _, part := range g {
				if len(part) > 0 {
					mask = append(mask, EnsureWinding(part[0], true))
				}
			}
		default:
		}
	}
	return mask
}
