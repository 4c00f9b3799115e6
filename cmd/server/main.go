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

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/GonnyTech/canDrive-Pro/internal/config"
	"github.com/GonnyTech/canDrive-Pro/internal/labels"
	"github.com/GonnyTech/canDrive-Pro/internal/logging"
	"github.com/GonnyTech/canDrive-Pro/internal/metrics"
	"github.com/GonnyTech/canDrive-Pro/internal/realtime"
	"github.com/GonnyTech/canDrive-Pro/internal/session"
	"github.com/GonnyTech/canDrive-Pro/internal/transport"
	"github.com/GonnyTech/canDrive-Pro/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

func loadConfig(args []string) (config.Config, error) {
	fs := pflag.NewFlagSet("candrive", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", os.Getenv("CANDRIVE_CONFIG"), "TOML config file")
	applyFlags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv(os.Getenv)
	applyFlags(&cfg)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "candrive: %v\n", err)
		os.Exit(2)
	}

	logging.Configure(cfg.LogLevel, cfg.LogPretty)
	metrics.Register()

	var opener transport.Opener = transport.Serial{}
	if cfg.Simulate {
		opener = transport.NewSim(true, "sim0")
		log.Info().Msg("using simulated loopback adapter sim0")
	}

	mgr := session.NewManager(opener, session.Config{
		ReadTimeout:      cfg.ReadTimeout,
		RingCapacity:     cfg.RingCapacity,
		SubscriberBuffer: cfg.SubscriberBuffer,
		OutboxSize:       cfg.OutboxSize,
	})

	// Label table: initial load, then live reload.
	var labelWatch *watcher.LabelWatcher
	if cfg.LabelFile != "" {
		if table, err := labels.Load(cfg.LabelFile); err != nil {
			log.Warn().Err(err).Str("file", cfg.LabelFile).Msg("labels not loaded")
		} else {
			mgr.SetLabels(table)
			log.Info().Str("file", cfg.LabelFile).Int("labels", len(table)).Msg("labels loaded")
		}

		if cfg.WatchLabels {
			labelWatch = watcher.New(cfg.LabelFile, mgr.SetLabels)
			if err := labelWatch.Start(); err != nil {
				log.Warn().Err(err).Str("file", cfg.LabelFile).Msg("label watcher not started")
				labelWatch = nil
			}
		}
	}

	if cfg.AutoConnect || cfg.AutoSniff {
		port := cfg.Port
		if cfg.Simulate && port == "" {
			port = "sim0"
		}
		if err := mgr.Connect(port, cfg.Baud); err != nil {
			log.Error().Err(err).Str("port", port).Msg("startup connect failed")
		} else if cfg.AutoSniff {
			if err := mgr.StartSniffing(); err != nil {
				log.Error().Err(err).Msg("startup sniffing failed")
			}
		}
	}

	rtServer := realtime.New(mgr, cfg.StaticDir)

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           rtServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		if labelWatch != nil {
			labelWatch.Close()
		}
		if err := mgr.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("manager shutdown")
		}
		rtServer.Close()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			httpServer.Close()
		}
	}()

	log.Info().Str("listen", cfg.Listen).Msg("canDrive server running")
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("HTTP server error")
	}
}
