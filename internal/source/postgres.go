package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shandutta/homematch-v2-sub002/internal/config"
	"github.com/shandutta/homematch-v2-sub002/internal/region"

	_ "github.com/lib/pq"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

const queryTimeout = 30 * time.Second

// FromPostgres reads boundary rows from a PostGIS table, serializing
// the geometry column through ST_AsGeoJSON. Rows whose geometry fails
// to parse are kept with empty geometry so the normalizer can count
// them.
func FromPostgres(ctx context.Context, dsn, table, geometryCol string, fields config.Fields) ([]region.RawEntry, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	// Identifiers come from the operator's config, not request input.
	query := fmt.Sprintf(
		`SELECT %s::text, COALESCE(%s::text, ''), COALESCE(%s::text, ''), COALESCE(%s::text, ''), ST_AsGeoJSON(%s) FROM %s`,
		quoteIdent(fields.ID),
		quoteIdent(fields.Name),
		quoteIdent(fields.City),
		quoteIdent(fields.State),
		quoteIdent(geometryCol),
		quoteIdent(table),
	)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []region.RawEntry
	for rows.Next() {
		var (
			entry   region.RawEntry
			rawGeom sql.NullString
		)

		if err := rows.Scan(&entry.ID, &entry.Name, &entry.City, &entry.State, &rawGeom); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if rawGeom.Valid {
			g, err := geojson.UnmarshalGeometry([]byte(rawGeom.String))
			if err != nil {
				log.Warn().
					Err(err).
					Str("id", entry.ID).
					Msg("Keeping row with empty geometry: bad geometry")
			} else if mp, ok := asMultiPolygon(g.Geometry()); ok {
				entry.Geometry = mp
			} else {
				log.Warn().
					Str("id", entry.ID).
					Str("type", g.Type).
					Msg("Keeping row with empty geometry: not a polygon")
			}
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// quoteIdent double-quotes a SQL identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
