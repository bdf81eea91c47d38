package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-twinkle/internal/app"
	"github.com/coreman2200/funtimes-twinkle/internal/config"
)

func main() {
	// ---- Flags (explicitly set flags win over config.yaml) ----
	var (
		configPath  = flag.String("config", "config.yaml", "path to config.yaml")
		driver      = flag.String("driver", "spi", "driver: spi | console | sim")
		tickMs      = flag.Int("tick-ms", 10, "animation tick in milliseconds")
		addr        = flag.String("addr", ":8080", "monitor HTTP listen address (empty disables)")
		selftest    = flag.String("selftest", "", "run a self-test first: index_sweep | rgb_channels")
		seed        = flag.Uint64("seed", 0, "random seed (0 = time based)")
		fixed       = flag.Bool("fixed", false, "fixed-count mode: ignore the buttons")
		simOnly     = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		logLevel    = flag.String("log-level", "info", "log level: debug | info | warn | error")
		writeConfig = flag.Bool("write-config", false, "write the default config to -config and exit")
	)
	flag.Parse()

	// ---- Logging ----
	// stderr keeps the console driver's line on stdout readable.
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if *writeConfig {
		if err := config.Save(*configPath, config.Default()); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("write config failed")
		}
		log.Info().Str("path", *configPath).Msg("default config written")
		return
	}

	// ---- Load config.yaml (optional) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults and flags")
		cfg = config.Default()
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = *driver
		case "tick-ms":
			cfg.TickMs = *tickMs
		case "addr":
			cfg.Addr = *addr
		case "seed":
			cfg.Animation.Seed = *seed
		case "fixed":
			cfg.Animation.Adjustable = !*fixed
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if *simOnly {
		cfg.Driver = "sim"
	}
	if cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
			log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level; using info")
		} else {
			zerolog.SetGlobalLevel(lvl)
		}
	}

	// ---- Host drivers (GPIO, SPI) ----
	if _, err := host.Init(); err != nil {
		log.Warn().Err(err).Msg("periph host init failed; hardware drivers unavailable")
	}

	// ---- Core (engine, strip, buttons, monitor) ----
	core, err := app.InitCore(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid animation config")
	}
	runner := core.Runner

	if *selftest != "" {
		if err := runner.RunTest(*selftest); err != nil {
			log.Warn().Err(err).Msg("self-test skipped")
		}
	}

	var srv *http.Server
	if cfg.Addr != "" {
		mux := http.NewServeMux()
		core.Hub.Routes(mux)
		srv = &http.Server{
			Addr:         cfg.Addr,
			Handler:      withCORS(mux),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Addr).Str("driver", core.Driver).Msg("HTTP server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("http server crashed")
			}
		}()
	}

	// ---- Run ----
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	<-done
	if srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(sctx)
		scancel()
	}
	if err := core.Close(); err != nil {
		log.Warn().Err(err).Msg("strip shutdown failed")
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
