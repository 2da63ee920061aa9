package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shandutta/homematch-v2-sub002/internal/config"
	"github.com/shandutta/homematch-v2-sub002/internal/logger"
	"github.com/shandutta/homematch-v2-sub002/internal/region"
	"github.com/shandutta/homematch-v2-sub002/internal/source"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string   `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Limit      []string `short:"l" long:"limit"  env:"LIMIT_NAMES" description:"Limit processing to specific dataset names"`
	Force      bool     `short:"f" long:"force"  description:"Force overwrite of existing files"`
}

func main() {
	// A .env may carry the credentials the config DSNs expand.
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 15 * time.Second,
	}

	// Filter datasets if limit is set
	datasets := cfg.Datasets
	if len(opts.Limit) > 0 {
		datasets = make([]config.Dataset, 0)
		available := make(map[string]config.Dataset)
		for _, d := range cfg.Datasets {
			available[d.Name] = d
		}

		seen := make(map[string]bool)

		for _, limitName := range opts.Limit {
			if seen[limitName] {
				continue
			}
			seen[limitName] = true

			if d, ok := available[limitName]; ok {
				datasets = append(datasets, d)
			} else {
				log.Error().
					Str("name", limitName).
					Msg("Dataset specified in --limit not found in configuration")
			}
		}
	}

	log.Info().
		Int("datasets_total", len(cfg.Datasets)).
		Int("datasets_queued", len(datasets)).
		Msg("Starting loader")

	ctx := context.Background()
	for _, d := range datasets {
		if err := load(ctx, client, cfg.DataDir, d, opts.Force); err != nil {
			log.Error().Err(err).Str("dataset", d.Name).Msg("Failed to load dataset")
		}
	}

	log.Info().Msg("Loader finished successfully")
}

// load runs one dataset through the pipeline: fetch raw entries,
// normalize into neighborhoods, group into cities, write both levels
// plus the stats file into the data dir.
func load(ctx context.Context, client *http.Client, dataDir string, d config.Dataset, force bool) error {
	baseDir := filepath.Join(dataDir, d.Name)
	finePath := filepath.Join(baseDir, region.LevelNeighborhoods+".geojson")
	coarsePath := filepath.Join(baseDir, region.LevelCities+".geojson")

	// Check for cache existence
	if !force {
		if _, err := os.Stat(finePath); err == nil {
			log.Info().
				Str("dataset", d.Name).
				Msg("Skipping dataset: output exists (use --force to rebuild)")
			return nil
		}
	}

	entries, err := source.Fetch(ctx, client, d)
	if err != nil {
		return err
	}

	fine, stats := region.Normalize(entries)
	coarse := region.Group(fine, region.CityKey)

	if err := region.WriteFile(finePath, fine); err != nil {
		return err
	}
	if err := region.WriteFile(coarsePath, coarse); err != nil {
		return err
	}

	allStats := map[string]region.NormalizeStats{
		region.LevelNeighborhoods: stats,
		region.LevelCities: {
			Input:  len(fine),
			Parsed: len(coarse),
		},
	}
	if err := region.WriteStats(filepath.Join(baseDir, "stats.json"), allStats); err != nil {
		return err
	}

	log.Info().
		Str("dataset", d.Name).
		Int("input", stats.Input).
		Int("parsed", stats.Parsed).
		Int("skipped", stats.Skipped).
		Int("grouped", len(coarse)).
		Msg("Dataset loaded")

	return nil
}
