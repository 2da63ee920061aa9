package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"sort"

	"github.com/shandutta/homematch-v2-sub002/assets"
	"github.com/shandutta/homematch-v2-sub002/internal/config"
	"github.com/shandutta/homematch-v2-sub002/internal/metrics"
	"github.com/shandutta/homematch-v2-sub002/internal/region"
	"github.com/shandutta/homematch-v2-sub002/internal/selection"

	"github.com/rs/zerolog/log"
)

// Level is one resolved partition level ready to serve: the disjoint
// regions, their spatial index, the pre-marshaled GeoJSON and the
// pipeline diagnostics.
type Level struct {
	Index   *selection.Index
	Regions []*region.Region
	GeoJSON []byte
	ETag    string
	Report  region.Report
}

// Dataset bundles everything the handlers need for one dataset.
type Dataset struct {
	Levels      map[string]*Level
	Attribution string
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config       *config.Config
	NameResolver map[string]string
	Datasets     map[string]*Dataset
	Names        []string
	IndexHTML    []byte
	Favicon      []byte
}

// NewServerContext initializes the context from the cached data dir.
// It resolves overlaps and builds a spatial index per level, filters
// out datasets with no cached levels and sets up the name resolver.
func NewServerContext(cfg *config.Config) (*ServerContext, error) {
	log.Info().Int("config_datasets_count", len(cfg.Datasets)).Msg("Initializing server context")

	resolver := make(map[string]string)
	datasets := make(map[string]*Dataset)
	names := make([]string, 0, len(cfg.Datasets))

	for i := range cfg.Datasets {
		d := &cfg.Datasets[i]

		if d.Attribution == "" {
			d.Attribution = cfg.Attribution
		}

		baseDir := filepath.Join(cfg.DataDir, d.Name)

		// Normalization stats are written by the loader; an older data
		// dir without them still serves, with zeroed normalize counts.
		stats, err := region.ReadStats(filepath.Join(baseDir, "stats.json"))
		if err != nil {
			log.Trace().
				Err(err).
				Str("dataset", d.Name).
				Msg("No loader stats found")
		}

		levels := make(map[string]*Level)
		for _, name := range region.Levels {
			path := filepath.Join(baseDir, name+".geojson")

			regions, err := region.ReadFile(path)
			if err != nil {
				log.Trace().
					Err(err).
					Str("dataset", d.Name).
					Str("level", name).
					Msg("Level skipped: no cached file")

				continue
			}

			lvl, err := newLevel(regions, stats[name])
			if err != nil {
				log.Warn().
					Err(err).
					Str("dataset", d.Name).
					Str("level", name).
					Msg("Level skipped: cannot marshal regions")

				continue
			}
			levels[name] = lvl

			metrics.RegionsLoaded.WithLabelValues(d.Name, name).Set(float64(len(lvl.Regions)))
			metrics.ClipFailuresTotal.WithLabelValues(d.Name, name).Add(float64(lvl.Report.Resolve.ClipFailures))

			log.Debug().
				Str("dataset", d.Name).
				Str("level", name).
				Int("regions", len(lvl.Regions)).
				Int("dropped", lvl.Report.Resolve.Dropped).
				Msg("Level resolved and indexed")
		}

		if len(levels) == 0 {
			log.Warn().
				Str("dataset", d.Name).
				Msg("Skipping dataset: no cached levels found (run the loader first)")
			continue
		}

		// Setup Resolver
		resolver[d.Name] = d.Name
		for _, alias := range d.Aliases {
			resolver[alias] = d.Name
		}

		datasets[d.Name] = &Dataset{
			Levels:      levels,
			Attribution: d.Attribution,
		}
		names = append(names, d.Name)

		log.Debug().
			Str("dataset", d.Name).
			Int("levels", len(levels)).
			Msg("Dataset validated and added to context")
	}

	if len(datasets) == 0 {
		return nil, errors.New("no datasets with cached levels, run the loader first")
	}

	sort.Strings(names)

	log.Info().
		Int("valid_datasets_count", len(datasets)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:       cfg,
		NameResolver: resolver,
		Datasets:     datasets,
		Names:        names,
		IndexHTML:    assets.Index,
		Favicon:      assets.Favicon,
	}, nil
}

// newLevel resolves overlaps in the cached regions and prepares the
// level for serving.
func newLevel(regions []*region.Region, normStats region.NormalizeStats) (*Level, error) {
	resolved, resolveStats := region.Resolve(regions)

	data, err := json.Marshal(region.ToFeatureCollection(resolved))
	if err != nil {
		return nil, err
	}

	h := fnv.New32a()
	_, _ = h.Write(data)

	return &Level{
		Index:   selection.NewIndex(resolved),
		Regions: resolved,
		GeoJSON: data,
		ETag:    fmt.Sprintf(`"%x"`, h.Sum32()),
		Report: region.Report{
			Normalize: normStats,
			Resolve:   resolveStats,
		},
	}, nil
}

// level resolves a dataset name or alias plus level name to the loaded
// data, returning the canonical dataset name.
func (s *ServerContext) level(dataset, level string) (string, *Level) {
	name, ok := s.NameResolver[dataset]
	if !ok {
		return "", nil
	}

	lvl, ok := s.Datasets[name].Levels[level]
	if !ok {
		return "", nil
	}

	return name, lvl
}
