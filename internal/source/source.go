// Package source fetches raw boundary entries from the formats a
// dataset can live in: GeoJSON files or URLs, ESRI shapefiles and
// Postgres tables.
package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shandutta/homematch-v2-sub002/internal/config"
	"github.com/shandutta/homematch-v2-sub002/internal/region"

	"github.com/paulmach/orb"
)

// Fetch loads the raw entries of one dataset according to its
// configured source kind.
func Fetch(ctx context.Context, client *http.Client, d config.Dataset) ([]region.RawEntry, error) {
	switch d.Source {
	case config.SourceGeoJSON:
		return FromGeoJSON(client, d.Path, d.Fields)
	case config.SourceShapefile:
		return FromShapefile(d.Path, d.Fields)
	case config.SourcePostgres:
		return FromPostgres(ctx, d.DSN, d.Table, d.GeometryCol, d.Fields)
	default:
		return nil, fmt.Errorf("unknown source %q", d.Source)
	}
}

// asMultiPolygon widens polygonal geometry to a multipolygon.
func asMultiPolygon(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch t := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{t}, true
	case orb.MultiPolygon:
		return t, true
	default:
		return nil, false
	}
}
