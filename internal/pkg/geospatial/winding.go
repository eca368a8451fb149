// Package geospatial holds the pure coordinate and polygon algorithms the
// layer engine depends on for correct placement and interaction.
package geospatial

import "github.com/paulmach/orb"

// SignedArea computes the shoelace sum over a ring. The first point may or
// may not be repeated as the last; both forms are handled by iterating
// consecutive pairs and closing the ring explicitly when needed.
// Positive area means counter-clockwise traversal.
//
// A ring with fewer than 3 points yields area 0; winding of such a ring is
// undefined.
func SignedArea(ring orb.Ring) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	if ring[0] != ring[n-1] {
		sum += ring[n-1][0]*ring[0][1] - ring[0][0]*ring[n-1][1]
	}
	return sum / 2
}

// EnsureWinding returns ring traversed in the requested direction,
// reversing it when its signed-area sign does not match. The input is not
// modified; when no reversal is needed the input slice is returned as-is,
// which makes the operation idempotent.
func EnsureWinding(ring orb.Ring, clockwise bool) orb.Ring {
	ccw := SignedArea(ring) > 0
	if ccw == !clockwise {
		return ring
	}
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}
