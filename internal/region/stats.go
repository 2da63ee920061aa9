package region

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"
)

// Partition levels a dataset is cached at, fine to coarse.
const (
	LevelNeighborhoods = "neighborhoods"
	LevelCities        = "cities"
)

// Levels lists the partition levels in fine-to-coarse order.
var Levels = []string{LevelNeighborhoods, LevelCities}

// WriteStats saves per-level normalization stats next to the cached
// GeoJSON so the server can include them in diagnostics.
func WriteStats(path string, stats map[string]NormalizeStats) error {
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

	return json.NewEncoder(f).Encode(stats)
}

// ReadStats loads stats written by WriteStats.
func ReadStats(path string) (map[string]NormalizeStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var stats map[string]NormalizeStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}

	return stats, nil
}
