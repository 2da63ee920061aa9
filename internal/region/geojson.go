package region

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// ToFeatureCollection renders regions as a GeoJSON feature collection
// with id, name, city and state properties.
func ToFeatureCollection(regions []*Region) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range regions {
		f := geojson.NewFeature(r.Geometry)
		f.Properties["id"] = r.ID
		f.Properties["name"] = r.Name
		f.Properties["city"] = r.City
		f.Properties["state"] = r.State
		fc.Append(f)
	}

	return fc
}

// FromFeatureCollection rebuilds regions from a feature collection
// written by ToFeatureCollection. Derived fields are recomputed rather
// than trusted from the file. Non-polygonal features are skipped.
func FromFeatureCollection(fc *geojson.FeatureCollection) []*Region {
	out := make([]*Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			log.Warn().Int("feature", i).Msg("Skipping feature: not a polygon")
			continue
		}

		r := &Region{
			ID:    f.Properties.MustString("id", strconv.Itoa(i)),
			Name:  f.Properties.MustString("name", ""),
			City:  f.Properties.MustString("city", ""),
			State: f.Properties.MustString("state", ""),
		}
		r.SetGeometry(mp)
		out = append(out, r)
	}

	return out
}

// WriteFile saves regions as GeoJSON, creating the directory first.
func WriteFile(path string, regions []*Region) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return json.NewEncoder(f).Encode(ToFeatureCollection(regions))
}

// ReadFile loads regions from a GeoJSON file.
func ReadFile(path string) ([]*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return FromFeatureCollection(fc), nil
}
