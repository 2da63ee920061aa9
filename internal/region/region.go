// Package region models named boundary regions and the pipeline that
// turns raw boundary entries into a disjoint partition: normalize,
// group into coarser regions, resolve overlaps.
package region

import (
	"strings"

	"github.com/shandutta/homematch-v2-sub002/internal/geom"

	"github.com/paulmach/orb"
)

// Region is a named boundary with derived fields kept in sync with its
// geometry. Bound is nil while the geometry has no polygons.
type Region struct {
	Bound    *orb.Bound
	ID       string
	Name     string
	City     string
	State    string
	Geometry orb.MultiPolygon
	Area     float64
}

// RawEntry is one boundary as delivered by a source. The geometry may
// still contain degenerate rings.
type RawEntry struct {
	ID       string
	Name     string
	City     string
	State    string
	Geometry orb.MultiPolygon
}

// SetGeometry replaces the geometry and recomputes Bound and Area.
func (r *Region) SetGeometry(mp orb.MultiPolygon) {
	r.Geometry = mp
	r.Bound = geom.BoundOf(mp)
	r.Area = geom.Area(mp)
}

// CityKey is the default grouping key: the lowercased, trimmed
// "city|state" pair.
func CityKey(r *Region) string {
	city := strings.ToLower(strings.TrimSpace(r.City))
	state := strings.ToLower(strings.TrimSpace(r.State))

	return city + "|" + state
}
