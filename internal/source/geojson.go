package source

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/shandutta/homematch-v2-sub002/internal/config"
	"github.com/shandutta/homematch-v2-sub002/internal/region"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// FromGeoJSON reads a feature collection from a local file or an
// http(s) URL and maps features to raw entries using the configured
// property names. Features without an id property fall back to their
// index.
func FromGeoJSON(client *http.Client, path string, fields config.Fields) ([]region.RawEntry, error) {
	data, err := readAll(client, path)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	entries := make([]region.RawEntry, 0, len(fc.Features))
	for i, f := range fc.Features {
		mp, ok := asMultiPolygon(f.Geometry)
		if !ok {
			log.Warn().
				Int("feature", i).
				Str("path", path).
				Msg("Skipping feature: not a polygon")

			continue
		}

		entries = append(entries, region.RawEntry{
			ID:       f.Properties.MustString(fields.ID, strconv.Itoa(i)),
			Name:     f.Properties.MustString(fields.Name, ""),
			City:     f.Properties.MustString(fields.City, ""),
			State:    f.Properties.MustString(fields.State, ""),
			Geometry: mp,
		})
	}

	return entries, nil
}

// readAll loads raw bytes from a URL or a local path, mirroring how
// dataset sources are referenced in the config.
func readAll(client *http.Client, path string) ([]byte, error) {
	if strings.HasPrefix(path, "http") {
		resp, err := client.Get(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("download failed: %d", resp.StatusCode)
		}

		return io.ReadAll(resp.Body)
	}

	return os.ReadFile(path)
}
