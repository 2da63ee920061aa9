package region

import (
	"runtime"
	"sync"

	"github.com/shandutta/homematch-v2-sub002/internal/geom"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// NormalizeStats counts what happened to the raw entries of one run.
type NormalizeStats struct {
	Input   int `json:"input"`
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
}

// Normalize turns raw entries into regions with clean geometry: rings
// closed, rings with fewer than four closed points dropped, polygons
// left without rings dropped. Entries ending with zero polygons are
// skipped and counted. Entries are independent, so the work runs on a
// worker pool; output keeps input order.
func Normalize(entries []RawEntry) ([]*Region, NormalizeStats) {
	stats := NormalizeStats{Input: len(entries)}
	if len(entries) == 0 {
		return nil, stats
	}

	out := make([]*Region, len(entries))

	workers := runtime.NumCPU()
	if workers > len(entries) {
		workers = len(entries)
	}

	jobs := make(chan int, len(entries))
	go func() {
		for i := range entries {
			jobs <- i
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = normalizeEntry(entries[i])
			}
		}()
	}
	wg.Wait()

	regions := make([]*Region, 0, len(entries))
	for i, r := range out {
		if r == nil {
			stats.Skipped++
			log.Warn().
				Str("id", entries[i].ID).
				Str("name", entries[i].Name).
				Msg("Skipping entry: no usable rings")

			continue
		}
		regions = append(regions, r)
	}
	stats.Parsed = len(regions)

	return regions, stats
}

// normalizeEntry cleans one entry, returning nil when nothing usable
// remains.
func normalizeEntry(e RawEntry) *Region {
	var mp orb.MultiPolygon
	for _, poly := range e.Geometry {
		var clean orb.Polygon
		for _, ring := range poly {
			if !geom.UsableRing(ring) {
				continue
			}
			clean = append(clean, geom.CloseRing(ring))
		}
		if len(clean) == 0 {
			continue
		}
		mp = append(mp, clean)
	}
	if len(mp) == 0 {
		return nil
	}

	r := &Region{
		ID:    e.ID,
		Name:  e.Name,
		City:  e.City,
		State: e.State,
	}
	r.SetGeometry(mp)

	return r
}
