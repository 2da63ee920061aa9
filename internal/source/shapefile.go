package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shandutta/homematch-v2-sub002/internal/config"
	"github.com/shandutta/homematch-v2-sub002/internal/geom"
	"github.com/shandutta/homematch-v2-sub002/internal/region"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// FromShapefile reads polygon records from an ESRI shapefile and maps
// DBF attributes to raw entries using the configured field names.
// Non-polygon records are skipped; records whose rings are all
// degenerate still produce an entry so the normalizer can count them.
func FromShapefile(path string, fields config.Fields) ([]region.RawEntry, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range r.Fields() {
		fieldIdx[strings.ToLower(strings.TrimSpace(f.String()))] = i
	}

	attr := func(row int, name string) string {
		idx, ok := fieldIdx[strings.ToLower(name)]
		if !ok {
			return ""
		}

		return strings.TrimSpace(r.ReadAttribute(row, idx))
	}

	var entries []region.RawEntry
	for idx := 0; r.Next(); idx++ {
		_, shape := r.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			log.Warn().
				Int("record", idx).
				Str("path", path).
				Msg("Skipping record: not a polygon")

			continue
		}

		id := attr(idx, fields.ID)
		if id == "" {
			id = strconv.Itoa(idx)
		}

		entries = append(entries, region.RawEntry{
			ID:       id,
			Name:     attr(idx, fields.Name),
			City:     attr(idx, fields.City),
			State:    attr(idx, fields.State),
			Geometry: assembleRings(splitParts(poly)),
		})
	}

	return entries, r.Err()
}

// splitParts cuts a shapefile polygon's flat point list into its
// component rings.
func splitParts(poly *shp.Polygon) []orb.Ring {
	rings := make([]orb.Ring, 0, len(poly.Parts))
	for partIdx := range poly.Parts {
		start := poly.Parts[partIdx]
		end := int32(len(poly.Points))
		if partIdx+1 < len(poly.Parts) {
			end = poly.Parts[partIdx+1]
		}

		ring := make(orb.Ring, 0, end-start)
		for _, pt := range poly.Points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}

		rings = append(rings, ring)
	}

	return rings
}

// assembleRings groups shapefile rings into polygons. ESRI winding
// puts outer rings clockwise, which reads as negative area in our
// convention, and holes counter-clockwise. A leading hole-wound ring
// still opens a polygon so its points are not lost.
func assembleRings(rings []orb.Ring) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for _, ring := range rings {
		if geom.RingArea(ring) < 0 || len(mp) == 0 {
			mp = append(mp, orb.Polygon{ring})
			continue
		}

		mp[len(mp)-1] = append(mp[len(mp)-1], ring)
	}

	return mp
}
