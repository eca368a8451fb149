package geospatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestBuildInverseMask(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Polygon{
		unitSquareCCW(),
		// inner ring must be ignored
		orb.Ring{{0.2, 0.2}, {0.8, 0.2}, {0.8, 0.8}, {0.2, 0.8}, {0.2, 0.2}},
	}))
	fc.Append(geojson.NewFeature(orb.MultiPolygon{
		{orb.Ring{{10, 10}, {12, 10}, {12, 12}, {10, 12}, {10, 10}}},
		{orb.Ring{{20, 20}, {22, 20}, {22, 22}, {20, 22}, {20, 20}}},
	}))

	mask := BuildInverseMask(fc)

	// outer world ring plus one hole per part (inner input rings dropped)
	if len(mask) != 4 {
		t.Fatalf("expected 4 rings (outer + 3 holes), got %d", len(mask))
	}
	if SignedArea(mask[0]) <= 0 {
		t.Error("outer ring must be counter-clockwise")
	}
	for i, hole := range mask[1:] {
		if SignedArea(hole) >= 0 {
			t.Errorf("hole %d must be clockwise, area %v", i, SignedArea(hole))
		}
	}
}

func TestBuildInverseMask_Empty(t *testing.T) {
	mask := BuildInverseMask(geojson.NewFeatureCollection())
	if len(mask) != 1 {
		t.Fatalf("expected bare world rectangle, got %d rings", len(mask))
	}
	r := mask[0]
	if r[0] != (orb.Point{-180, -90}) || r[len(r)-1] != (orb.Point{-180, -90}) {
		t.Error("world ring must start and close at (-180,-90)")
	}
	// Full globe, counter-clockwise: 360 * 180.
	if got := SignedArea(r); got != 64800 {
		t.Errorf("world ring signed area = %v, want 64800", got)
	}
}
