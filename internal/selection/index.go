// Package selection matches user-drawn rings and clicked points
// against a resolved region set.
package selection

import (
	"math"
	"sort"

	"github.com/shandutta/homematch-v2-sub002/internal/geom"
	"github.com/shandutta/homematch-v2-sub002/internal/region"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog/log"
)

// rectEpsilon pads degenerate extents: the R-tree rejects rectangles
// with zero-length sides.
const rectEpsilon = 1e-9

// Index is an immutable spatial index over disjoint regions.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// entry adapts a region to the rtreego.Spatial interface.
type entry struct {
	region *region.Region
	rect   rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// NewIndex bulk-loads the regions into a 2-D R-tree keyed by their
// bounding boxes. Regions without a bound (no polygons) are not
// indexed.
func NewIndex(regions []*region.Region) *Index {
	objs := make([]rtreego.Spatial, 0, len(regions))
	for _, r := range regions {
		if r.Bound == nil {
			continue
		}

		rect, err := boundRect(*r.Bound)
		if err != nil {
			log.Warn().Err(err).Str("id", r.ID).Msg("Skipping region: unindexable bound")
			continue
		}
		objs = append(objs, &entry{region: r, rect: rect})
	}

	return &Index{tree: rtreego.NewTree(2, 25, 50, objs...), size: len(objs)}
}

// Len returns the number of indexed regions.
func (ix *Index) Len() int { return ix.size }

// MatchRing returns every region whose geometry intersects the drawn
// ring. Rings with fewer than three distinct points match nothing.
// Candidates come from a bounding-box pre-filter and the exact
// intersection test decides; a clip failure on a candidate counts as a
// non-match. Results are sorted by ID.
func (ix *Index) MatchRing(ring orb.Ring) []*region.Region {
	if geom.DistinctPoints(ring) < 3 {
		return nil
	}

	query := orb.MultiPolygon{{geom.CloseRing(ring)}}

	var out []*region.Region
	for _, c := range ix.candidates(query.Bound()) {
		hit, err := geom.Intersects(query, c.Geometry)
		if err != nil {
			log.Warn().
				Err(err).
				Str("id", c.ID).
				Msg("Intersection test failed, treating as no match")

			continue
		}
		if hit {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// MatchPoint returns the region containing the point, or nil. Holes
// are honored: a point inside a hole is outside the region. Candidates
// are tried smallest first so the answer stays deterministic when
// resolved geometries touch at a shared boundary.
func (ix *Index) MatchPoint(pt orb.Point) *region.Region {
	cands := ix.candidates(orb.Bound{Min: pt, Max: pt})

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Area != cands[j].Area {
			return cands[i].Area < cands[j].Area
		}
		return cands[i].ID < cands[j].ID
	})

	for _, c := range cands {
		if planar.MultiPolygonContains(c.Geometry, pt) {
			return c
		}
	}

	return nil
}

// candidates collects regions whose bounding boxes intersect b.
func (ix *Index) candidates(b orb.Bound) []*region.Region {
	rect, err := boundRect(b)
	if err != nil {
		return nil
	}

	found := ix.tree.SearchIntersect(rect)
	out := make([]*region.Region, 0, len(found))
	for _, s := range found {
		out = append(out, s.(*entry).region)
	}

	return out
}

// boundRect converts an orb bound to an R-tree rectangle, padding
// degenerate extents.
func boundRect(b orb.Bound) (rtreego.Rect, error) {
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w <= 0 {
		w = rectEpsilon
	}
	if h <= 0 {
		h = rectEpsilon
	}

	return rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
}

// RectRing converts two dragged corner points into a four-point
// selection ring: NW, NE, SE, SW.
func RectRing(a, b orb.Point) orb.Ring {
	minX, maxX := math.Min(a[0], b[0]), math.Max(a[0], b[0])
	minY, maxY := math.Min(a[1], b[1]), math.Max(a[1], b[1])

	return orb.Ring{
		{minX, maxY},
		{maxX, maxY},
		{maxX, minY},
		{minX, minY},
	}
}
