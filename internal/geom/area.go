// Package geom implements planar geometry over WGS84 lng/lat coordinates.
//
// Coordinates are treated as plain X/Y values on a flat plane. Areas are
// in squared degrees and only ever compared against each other, so no
// projection correction is applied.
package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// RingArea returns the signed shoelace area of a ring. The sign follows
// winding order: counter-clockwise positive, clockwise negative. The ring
// may be open or closed, the wrap-around edge is always included.
func RingArea(r orb.Ring) float64 {
	if len(r) < 3 {
		return 0
	}

	sum := 0.0
	for i, p := range r {
		q := r[(i+1)%len(r)]
		sum += p[0]*q[1] - q[0]*p[1]
	}

	return sum / 2
}

// PolygonArea returns the unsigned area of a polygon: the outer ring
// minus all holes, floored at zero so a malformed hole set can never
// produce a negative area.
func PolygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}

	area := math.Abs(RingArea(p[0]))
	for _, hole := range p[1:] {
		area -= math.Abs(RingArea(hole))
	}

	if area < 0 {
		return 0
	}
	return area
}

// Area returns the total area of a multipolygon.
func Area(mp orb.MultiPolygon) float64 {
	total := 0.0
	for _, p := range mp {
		total += PolygonArea(p)
	}
	return total
}

// CloseRing appends the first point to the end if the ring is not
// already closed. Closing is idempotent.
func CloseRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r[0] == r[len(r)-1] {
		return r
	}
	return append(r, r[0])
}

// UsableRing reports whether a ring still describes an area: at least
// three vertices, i.e. four points once closed.
func UsableRing(r orb.Ring) bool {
	n := len(r)
	if n == 0 {
		return false
	}
	if r[0] == r[n-1] {
		return n >= 4
	}
	return n >= 3
}

// DistinctPoints counts the unique vertices of a ring. The closing
// point does not count twice.
func DistinctPoints(r orb.Ring) int {
	seen := make(map[orb.Point]struct{}, len(r))
	for _, p := range r {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// BoundOf returns the bounding box of a multipolygon, or nil when it
// has no polygons.
func BoundOf(mp orb.MultiPolygon) *orb.Bound {
	if len(mp) == 0 {
		return nil
	}
	b := mp.Bound()
	return &b
}
