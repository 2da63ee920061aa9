package main

import (
	"os"
	"path/filepath"

	"github.com/shandutta/homematch-v2-sub002/internal/config"
	"github.com/shandutta/homematch-v2-sub002/internal/logger"
	"github.com/shandutta/homematch-v2-sub002/internal/overlay"
	"github.com/shandutta/homematch-v2-sub002/internal/region"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"  env:"CONFIG_FILE"   description:"Path to configuration file" default:"config.yaml"`
	Dataset    string `short:"d" long:"dataset" env:"DATASET"       description:"Render only the named dataset"`
	Width      int    `short:"w" long:"width"   env:"OVERLAY_WIDTH" description:"Overlay width in pixels"    default:"2048"`
}

func main() {
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

	rendered := 0
	for _, d := range cfg.Datasets {
		if opts.Dataset != "" && d.Name != opts.Dataset {
			continue
		}

		baseDir := filepath.Join(cfg.DataDir, d.Name)
		for _, level := range region.Levels {
			regions, err := region.ReadFile(filepath.Join(baseDir, level+".geojson"))
			if err != nil {
				log.Warn().
					Err(err).
					Str("dataset", d.Name).
					Str("level", level).
					Msg("Level skipped: no cached file (run the loader first)")
				continue
			}

			resolved, stats := region.Resolve(regions)

			outPath := filepath.Join(baseDir, "overlay-"+level+".webp")
			if err := overlay.WriteFile(outPath, resolved, opts.Width); err != nil {
				log.Error().
					Err(err).
					Str("dataset", d.Name).
					Str("level", level).
					Msg("Failed to render overlay")
				continue
			}

			rendered++
			log.Info().
				Str("dataset", d.Name).
				Str("level", level).
				Str("path", outPath).
				Int("regions", stats.Survived).
				Msg("Overlay rendered")
		}
	}

	if rendered == 0 {
		log.Warn().Msg("Nothing rendered")
	}
}
