package region

import (
	"strings"

	"github.com/shandutta/homematch-v2-sub002/internal/geom"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// Group partitions fine regions by key and unions each group's
// geometry into one coarser region. A union failure falls back to
// keeping the group's polygons side by side un-merged and never aborts
// the remaining groups. Groups ending with zero polygons are dropped.
// Output keeps first-appearance order of the keys.
func Group(fine []*Region, keyFn func(*Region) string) []*Region {
	keys := make([]string, 0)
	groups := make(map[string][]*Region)
	for _, r := range fine {
		k := keyFn(r)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}

	out := make([]*Region, 0, len(keys))
	for _, k := range keys {
		members := groups[k]

		geoms := make([]orb.MultiPolygon, len(members))
		for i, m := range members {
			geoms[i] = m.Geometry
		}

		merged, err := geom.UnionAll(geoms...)
		if err != nil {
			log.Warn().
				Err(err).
				Str("key", k).
				Int("members", len(members)).
				Msg("Group union failed, keeping polygons unmerged")

			merged = nil
			for _, g := range geoms {
				merged = append(merged, g...)
			}
		}
		if len(merged) == 0 {
			continue
		}

		first := members[0]
		name := strings.TrimSpace(first.City)
		state := strings.TrimSpace(first.State)
		switch {
		case name != "" && state != "":
			name = name + ", " + state
		case name == "":
			name = k
		}

		g := &Region{
			ID:    k,
			Name:  name,
			City:  strings.TrimSpace(first.City),
			State: state,
		}
		g.SetGeometry(merged)
		out = append(out, g)
	}

	return out
}
