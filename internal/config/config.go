// Package config loads finder parameters from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"cell-tracker/pkg/roierr"

	"gopkg.in/yaml.v3"
)

const (
	defaultThresholdMargin = 10
	defaultThresholdStep   = 1
	defaultProfilePadding  = 5
	defaultLogLevel        = "info"
)

// Config holds runtime parameters for the region finders.
type Config struct {
	CellBody   CellBody   `yaml:"cellbody"`
	Background Background `yaml:"background"`
	LogLevel   string     `yaml:"log_level"`
}

// CellBody configures the region grower.
type CellBody struct {
	// ThresholdMargin is subtracted from the seed intensity to get the first threshold.
	ThresholdMargin int `yaml:"threshold_margin"`
	// ThresholdStep is the threshold change per resize iteration.
	ThresholdStep int `yaml:"threshold_step"`
	// ProfileAnglesDeg lists the directions of the intensity profiles through the seed.
	ProfileAnglesDeg []float64 `yaml:"profile_angles_deg"`
	// ProfilePadding extends each profile beyond the region's bounding box.
	ProfilePadding int `yaml:"profile_padding"`
}

// Background configures the background tracker.
type Background struct {
	// DefaultTheta is the orientation, in radians, used when none is supplied.
	DefaultTheta float64 `yaml:"default_theta"`
}

// Default returns a Config populated with standard defaults.
func Default() Config {
	return Config{
		CellBody: CellBody{
			ThresholdMargin:  defaultThresholdMargin,
			ThresholdStep:    defaultThresholdStep,
			ProfileAnglesDeg: []float64{0, 45, 90, 135},
			ProfilePadding:   defaultProfilePadding,
		},
		LogLevel: defaultLogLevel,
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range parameter.
func (c Config) Validate() error {
	if c.CellBody.ThresholdMargin < 0 || c.CellBody.ThresholdMargin > 255 {
		return fmt.Errorf("cellbody.threshold_margin must be 0-255, got %d: %w", c.CellBody.ThresholdMargin, roierr.ErrArgument)
	}
	if c.CellBody.ThresholdStep <= 0 || c.CellBody.ThresholdStep > 255 {
		return fmt.Errorf("cellbody.threshold_step must be 1-255, got %d: %w", c.CellBody.ThresholdStep, roierr.ErrArgument)
	}
	for _, a := range c.CellBody.ProfileAnglesDeg {
		if a < 0 || a >= 180 {
			return fmt.Errorf("cellbody.profile_angles_deg must be in [0,180), got %v: %w", a, roierr.ErrArgument)
		}
	}
	if c.CellBody.ProfilePadding < 0 {
		return fmt.Errorf("cellbody.profile_padding must be >= 0, got %d: %w", c.CellBody.ProfilePadding, roierr.ErrArgument)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level.
func (c Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q: %w", s, roierr.ErrArgument)
	}
}
