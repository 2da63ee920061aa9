package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
)

// ErrClipFailed wraps panics raised by the clipping backend on
// numerically degenerate input.
var ErrClipFailed = errors.New("clip failed")

// Union returns the combined area of a and b.
func Union(a, b orb.MultiPolygon) (orb.MultiPolygon, error) {
	if len(a) == 0 {
		return b, nil
	}
	if len(b) == 0 {
		return a, nil
	}

	return construct(polyclip.UNION, a, b)
}

// UnionAll folds a list of multipolygons into one by repeated union.
func UnionAll(mps ...orb.MultiPolygon) (orb.MultiPolygon, error) {
	var out orb.MultiPolygon
	for _, mp := range mps {
		u, err := Union(out, mp)
		if err != nil {
			return nil, err
		}
		out = u
	}

	return out, nil
}

// Difference returns the area of a not covered by b.
func Difference(a, b orb.MultiPolygon) (orb.MultiPolygon, error) {
	if len(a) == 0 {
		return nil, nil
	}
	if len(b) == 0 {
		return a, nil
	}

	return construct(polyclip.DIFFERENCE, a, b)
}

// Intersects reports whether a and b share interior area. Touching
// edges or single points do not count: the intersection must contain a
// ring with at least three distinct vertices.
func Intersects(a, b orb.MultiPolygon) (bool, error) {
	if len(a) == 0 || len(b) == 0 {
		return false, nil
	}

	inter, err := construct(polyclip.INTERSECTION, a, b)
	if err != nil {
		return false, err
	}

	for _, p := range inter {
		for _, r := range p {
			if DistinctPoints(r) >= 3 && math.Abs(RingArea(r)) > 0 {
				return true, nil
			}
		}
	}

	return false, nil
}

// construct runs one boolean clipping operation. The backend panics on
// some degenerate inputs, so the call is isolated behind a recover and
// a panic surfaces as ErrClipFailed.
func construct(op polyclip.Op, a, b orb.MultiPolygon) (out orb.MultiPolygon, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrClipFailed, r)
		}
	}()

	return fromClip(toClip(a).Construct(op, toClip(b))), nil
}

// toClip converts orb rings to polyclip contours. Contours are
// implicitly closed, so the duplicate closing point is dropped.
func toClip(mp orb.MultiPolygon) polyclip.Polygon {
	var out polyclip.Polygon
	for _, p := range mp {
		for _, r := range p {
			if len(r) > 1 && r[0] == r[len(r)-1] {
				r = r[:len(r)-1]
			}
			if len(r) < 3 {
				continue
			}

			c := make(polyclip.Contour, len(r))
			for i, pt := range r {
				c[i] = polyclip.Point{X: pt[0], Y: pt[1]}
			}
			out = append(out, c)
		}
	}

	return out
}

// fromClip regroups the flat contour list returned by the backend into
// polygons with holes. Containment depth decides the role of each
// contour: even depth is a shell, odd depth a hole attached to its
// tightest enclosing shell. Rings are re-closed per the GeoJSON
// convention.
func fromClip(p polyclip.Polygon) orb.MultiPolygon {
	conts := make([]polyclip.Contour, 0, len(p))
	for _, c := range p {
		if len(c) >= 3 {
			conts = append(conts, c)
		}
	}
	if len(conts) == 0 {
		return nil
	}

	rings := make([]orb.Ring, len(conts))
	boxes := make([]polyclip.Rectangle, len(conts))
	for i, c := range conts {
		rings[i] = closeContour(c)
		boxes[i] = c.BoundingBox()
	}

	depth := make([]int, len(conts))
	parents := make([][]int, len(conts))
	for i := range conts {
		for j := range conts {
			if i == j || !rectWithin(boxes[j], boxes[i]) {
				continue
			}
			if contourWithin(conts[i], conts[j]) {
				depth[i]++
				parents[i] = append(parents[i], j)
			}
		}
	}

	shellIdx := make(map[int]int, len(conts))
	var out orb.MultiPolygon
	for i := range conts {
		if depth[i]%2 != 0 {
			continue
		}
		shellIdx[i] = len(out)
		out = append(out, orb.Polygon{rings[i]})
	}

	for i := range conts {
		if depth[i]%2 == 0 {
			continue
		}

		parent, best := -1, math.Inf(1)
		for _, j := range parents[i] {
			if depth[j] != depth[i]-1 {
				continue
			}
			if a := math.Abs(RingArea(rings[j])); a < best {
				parent, best = j, a
			}
		}
		if parent < 0 {
			continue
		}

		pi := shellIdx[parent]
		out[pi] = append(out[pi], rings[i])
	}

	return out
}

func closeContour(c polyclip.Contour) orb.Ring {
	r := make(orb.Ring, len(c)+1)
	for i, pt := range c {
		r[i] = orb.Point{pt.X, pt.Y}
	}
	r[len(c)] = r[0]

	return r
}

// contourWithin reports whether inner lies inside outer. Clip results
// may share vertices between contours, so a majority vote over the
// vertices decides instead of requiring every point to pass.
func contourWithin(inner, outer polyclip.Contour) bool {
	in := 0
	for _, pt := range inner {
		if outer.Contains(pt) {
			in++
		}
	}

	return in*2 > len(inner)
}

func rectWithin(big, small polyclip.Rectangle) bool {
	return big.Min.X <= small.Min.X && big.Max.X >= small.Max.X &&
		big.Min.Y <= small.Min.Y && big.Max.Y >= small.Max.Y
}
