package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shandutta/homematch-v2-sub002/internal/config"
	"github.com/shandutta/homematch-v2-sub002/internal/logger"
	"github.com/shandutta/homematch-v2-sub002/internal/metrics"
	"github.com/shandutta/homematch-v2-sub002/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"   env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"   env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
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

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	srvCtx, err := server.NewServerContext(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server context")
	}

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets", srvCtx.HandleDatasetsList)
	mux.HandleFunc("/api/regions/", srvCtx.HandleRegions)
	mux.HandleFunc("/api/select/", srvCtx.HandleSelect)
	mux.HandleFunc("/api/diagnostics/", srvCtx.HandleDiagnostics)
	mux.HandleFunc("/overlays/", srvCtx.HandleOverlay)
	mux.HandleFunc("/favicon.svg", srvCtx.HandleFavicon)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", srvCtx.HandleIndex)

	handler := server.RequestLogger(mux)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{Addr: listenAddr, Handler: handler}

	go func() {
		log.Info().
			Str("addr", listenAddr).
			Int("datasets_loaded", len(srvCtx.Datasets)).
			Msg("Web server started")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
}
