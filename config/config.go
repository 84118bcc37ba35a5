// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads the engine configuration from TOML or YAML.
//
// Values are decoded on top of the defaults, so a file only needs to name
// the keys it changes. The format is chosen by file extension.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/engine/gpucore"
)

var (
	// ErrUnknownFormat is returned for a file extension other than .toml,
	// .yaml or .yml.
	ErrUnknownFormat = errors.New("config: unknown file format")

	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("config: invalid")
)

// Backends accepted by engine.backend.
var Backends = []string{"software", "noop", "vulkan"}

type Config struct {
	Engine  EngineConfig  `toml:"engine" yaml:"engine"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Editor  EditorConfig  `toml:"editor" yaml:"editor"`
	Pools   []PoolConfig  `toml:"pools" yaml:"pools"`
}

type EngineConfig struct {
	Title          string   `toml:"title" yaml:"title"`
	Width          int      `toml:"width" yaml:"width"`
	Height         int      `toml:"height" yaml:"height"`
	MaxFrames      uint64   `toml:"max_frames" yaml:"max_frames"` // 0 = run until closed
	TickHz         float64  `toml:"tick_hz" yaml:"tick_hz"`
	MaxSteps       int      `toml:"max_steps" yaml:"max_steps"` // fixed updates per frame before dropping time
	FramesInFlight int      `toml:"frames_in_flight" yaml:"frames_in_flight"`
	Backend        string   `toml:"backend" yaml:"backend"`
	IdleTimeout    Duration `toml:"idle_timeout" yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "text" or "json"
}

type EditorConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	Hidden  bool     `toml:"hidden" yaml:"hidden"`
	Panels  []string `toml:"panels" yaml:"panels"`
}

// PoolConfig sizes the allocator pool of one command list type.
type PoolConfig struct {
	ListType     gpucore.ListType `toml:"list_type" yaml:"list_type"`
	InitialCount int              `toml:"initial_counts" yaml:"initial_counts"`
	MaxCount     int              `toml:"max_counts" yaml:"max_counts"`
	BlockMaxTime Duration         `toml:"block_max_time" yaml:"block_max_time"`
}

// Default returns the built-in configuration.
func Default() *Config { return defaults() }

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Title:          "gogpu engine",
			Width:          1280,
			Height:         720,
			TickHz:         60,
			MaxSteps:       10,
			FramesInFlight: 2,
			Backend:        "software",
			IdleTimeout:    Duration(gpucore.DefaultWaitTimeout),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Editor: EditorConfig{
			Enabled: true,
			Panels:  []string{"overlay"},
		},
		Pools: []PoolConfig{
			{ListType: gpucore.ListTypeDirect, InitialCount: 2, MaxCount: 4, BlockMaxTime: Duration(gpucore.DefaultWaitTimeout)},
			{ListType: gpucore.ListTypeCopy, InitialCount: 1, MaxCount: 2, BlockMaxTime: Duration(gpucore.DefaultWaitTimeout)},
		},
	}
}

// Load reads path, decodes it over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format (".toml", ".yaml", ".yml", with
// or without the dot) over the defaults and validates the result. A
// [[pools]] section replaces the default pools as a whole.
func Parse(data []byte, format string) (*Config, error) {
	cfg := defaults()
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "toml":
		cfg.Pools = nil
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	case "yaml", "yml":
		cfg.Pools = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if len(cfg.Pools) == 0 {
		cfg.Pools = defaults().Pools
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found, combined into one error.
func (c *Config) Validate() error {
	var errs error
	bad := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	e := c.Engine
	if e.Width <= 0 || e.Height <= 0 {
		bad("engine size %dx%d", e.Width, e.Height)
	}
	if e.TickHz <= 0 {
		bad("engine.tick_hz %v must be positive", e.TickHz)
	}
	if e.MaxSteps < 1 {
		bad("engine.max_steps %d < 1", e.MaxSteps)
	}
	if e.FramesInFlight < 1 {
		bad("engine.frames_in_flight %d < 1", e.FramesInFlight)
	}
	if e.IdleTimeout < 0 {
		bad("engine.idle_timeout %v is negative", e.IdleTimeout)
	}
	if !knownBackend(e.Backend) {
		bad("engine.backend %q not one of %v", e.Backend, Backends)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if f := c.Logging.Format; f != "text" && f != "json" {
		bad("logging.format %q not text or json", f)
	}

	seen := make(map[gpucore.ListType]bool, len(c.Pools))
	for i, p := range c.Pools {
		if !p.ListType.Valid() {
			bad("pools[%d].list_type %v", i, p.ListType)
			continue
		}
		if seen[p.ListType] {
			bad("pools[%d]: duplicate list type %s", i, p.ListType)
		}
		seen[p.ListType] = true
		if p.MaxCount < 1 {
			bad("pools[%d].max_counts %d < 1", i, p.MaxCount)
		}
		if p.InitialCount < 0 || p.InitialCount > p.MaxCount {
			bad("pools[%d].initial_counts %d outside [0, %d]", i, p.InitialCount, p.MaxCount)
		}
		if p.BlockMaxTime < 0 {
			bad("pools[%d].block_max_time %v is negative", i, p.BlockMaxTime)
		}
	}
	return errs
}

func knownBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}

// TickInterval returns the fixed update step.
func (e EngineConfig) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / e.TickHz)
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: logging.level %q", ErrInvalid, l.Level)
	}
	return lvl, nil
}

// NewLogger builds a slog.Logger writing to w in the configured format
// and level.
func (l LoggingConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: logging.format %q", ErrInvalid, l.Format)
	}
}
