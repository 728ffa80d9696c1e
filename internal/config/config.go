// Package config holds the engine's runtime settings, read from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fussion/engine/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Log       LogConfig       `yaml:"log"`
	App       AppConfig       `yaml:"app"`
	Assets    AssetsConfig    `yaml:"assets"`
	Inspector InspectorConfig `yaml:"inspector"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type AppConfig struct {
	// FixedDelta is the simulated time step of one frame.
	FixedDelta time.Duration `yaml:"fixed_delta"`
	// MaxFrames stops the loop after that many frames; 0 runs until cancelled.
	MaxFrames int `yaml:"max_frames"`
	// AbortOnFault stops the loop at the first component hook failure.
	AbortOnFault bool `yaml:"abort_on_fault"`
	// Scene is loaded at startup, relative to the asset root.
	Scene string `yaml:"scene"`
}

type AssetsConfig struct {
	Root     string `yaml:"root"`
	Registry string `yaml:"registry"`
	Watch    bool   `yaml:"watch"`
	Workers  int    `yaml:"workers"`
	// SaveOnExit writes every modified scene file when the app closes.
	SaveOnExit bool `yaml:"save_on_exit"`
}

type InspectorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	// Interval forces a snapshot every that many frames even when the scene
	// is clean; 0 sends dirty frames only.
	Interval int `yaml:"interval"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		App: AppConfig{
			FixedDelta: time.Second / 60,
		},
		Assets: AssetsConfig{
			Root:     "assets",
			Registry: "assets.yaml",
			Watch:    true,
		},
		Inspector: InspectorConfig{
			Address:  "127.0.0.1:7070",
			Interval: 60,
		},
	}
}

// Load reads path on top of the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (Config, error) {
	c := Default()
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.encoding %q", ErrInvalidConfig, c.Log.Encoding)
	}
	if c.App.FixedDelta <= 0 {
		return fmt.Errorf("%w: app.fixed_delta must be positive", ErrInvalidConfig)
	}
	if c.App.MaxFrames < 0 {
		return fmt.Errorf("%w: app.max_frames is negative", ErrInvalidConfig)
	}
	if c.Assets.Root == "" {
		return fmt.Errorf("%w: assets.root is empty", ErrInvalidConfig)
	}
	if c.Assets.Workers < 0 {
		return fmt.Errorf("%w: assets.workers is negative", ErrInvalidConfig)
	}
	if c.Inspector.Enabled && c.Inspector.Address == "" {
		return fmt.Errorf("%w: inspector.address is empty", ErrInvalidConfig)
	}
	if c.Inspector.Interval < 0 {
		return fmt.Errorf("%w: inspector.interval is negative", ErrInvalidConfig)
	}
	return nil
}

// LoggerOptions maps the log section onto logger options.
func (c Config) LoggerOptions() log.Options {
	return log.Options{
		Level:    log.ParseLevel(c.Log.Level),
		Encoding: c.Log.Encoding,
	}
}
