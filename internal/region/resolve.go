package region

import (
	"sort"

	"github.com/shandutta/homematch-v2-sub002/internal/geom"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// ResolveStats counts the outcome of one overlap resolution pass.
type ResolveStats struct {
	Input        int     `json:"input"`
	Survived     int     `json:"survived"`
	Dropped      int     `json:"dropped"`
	ClipFailures int     `json:"clip_failures"`
	RawArea      float64 `json:"raw_area"`
	ResolvedArea float64 `json:"resolved_area"`
}

// Report bundles the pipeline diagnostics of one region set.
type Report struct {
	Normalize NormalizeStats `json:"normalize"`
	Resolve   ResolveStats   `json:"resolve"`
}

// Resolve carves a possibly-overlapping region set into a disjoint
// partition. Regions are processed ascending by area with ties broken
// by ID, so smaller regions keep their full extent and equal inputs
// resolve identically regardless of input order. A region whose entire
// area is already claimed by smaller siblings is dropped from the
// output. Inputs are not mutated.
func Resolve(regions []*Region) ([]*Region, ResolveStats) {
	stats := ResolveStats{Input: len(regions)}

	ordered := make([]*Region, len(regions))
	copy(ordered, regions)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Area != ordered[j].Area {
			return ordered[i].Area < ordered[j].Area
		}
		return ordered[i].ID < ordered[j].ID
	})

	var occupied orb.MultiPolygon
	out := make([]*Region, 0, len(ordered))

	for _, r := range ordered {
		stats.RawArea += r.Area

		exclusive, err := geom.Difference(r.Geometry, occupied)
		if err != nil {
			stats.ClipFailures++
			log.Warn().
				Err(err).
				Str("id", r.ID).
				Str("name", r.Name).
				Msg("Overlap removal failed, keeping region as-is")

			exclusive = r.Geometry
		}

		if len(exclusive) == 0 {
			stats.Dropped++
			log.Debug().
				Str("id", r.ID).
				Str("name", r.Name).
				Msg("Region fully covered by smaller siblings, dropped")

			continue
		}

		kept := &Region{
			ID:    r.ID,
			Name:  r.Name,
			City:  r.City,
			State: r.State,
		}
		kept.SetGeometry(exclusive)
		out = append(out, kept)

		merged, err := geom.Union(occupied, exclusive)
		if err != nil {
			stats.ClipFailures++
			log.Warn().
				Err(err).
				Str("id", r.ID).
				Msg("Occupied-area union failed, accumulator unchanged")
		} else {
			occupied = merged
		}

		stats.ResolvedArea += kept.Area
	}

	stats.Survived = len(out)

	return out, stats
}
