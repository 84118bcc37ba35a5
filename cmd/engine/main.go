// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command engine runs the engine headless from a configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/config"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "TOML or YAML config file (defaults when empty)")
		frames      = flag.Uint64("frames", 0, "stop after this many frames (overrides engine.max_frames)")
		backend     = flag.String("backend", "", "software, noop or vulkan (overrides engine.backend)")
		verbose     = flag.Bool("v", false, "debug logging")
		metricsAddr = flag.String("metrics", "", "serve prometheus metrics on this address, e.g. :9090")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *frames > 0 {
		cfg.Engine.MaxFrames = *frames
	}
	if *backend != "" {
		cfg.Engine.Backend = *backend
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := cfg.Logging.NewLogger(os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	engine.SetLogger(logger)

	opts := []engine.Option{engine.WithApp(engine.AppFunc(func(*engine.Engine, float64) error { return nil }))}
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, engine.WithRegisterer(reg))
		go serveMetrics(*metricsAddr, reg, logger)
	}

	e, err := engine.New(cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := e.Run(ctx); err != nil {
		if engine.IsFatal(err) {
			log.Printf("Fatal: %v", err)
			os.Exit(1)
		}
		log.Printf("Engine stopped with error: %v", err)
		os.Exit(2)
	}

	s := e.Stats()
	log.Printf("Ran %d frames (%d updates, %d dropped steps) on %s backend\n",
		s.Frames, s.Updates, s.DroppedSteps, cfg.Engine.Backend)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "addr", addr, "err", err)
	}
}
