package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/tailgate.report/internal/tailgate"
	"github.com/banshee-data/tailgate.report/internal/units"
)

// DefaultConfigPath is the path to the canonical detector defaults file.
const DefaultConfigPath = "config/tailgate.defaults.json"

// TailgateConfig holds the detector thresholds and run settings. Every
// field is optional in the JSON; the Get* methods supply defaults, except
// for the lane threshold which has none.
type TailgateConfig struct {
	LaneThresholdM      *float64 `json:"lane_threshold_m,omitempty"`
	AngularThresholdRad *float64 `json:"angular_threshold_rad,omitempty"`
	PairingPolicy       *string  `json:"pairing_policy,omitempty"` // "adjacent" or "nearest"
	Workers             *int     `json:"workers,omitempty"`
	SpeedUnits          *string  `json:"speed_units,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// LoadConfig reads a TailgateConfig from a JSON file. The file must have a
// .json extension and be at most 1MB.
func LoadConfig(path string) (*TailgateConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TailgateConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, looking in the current
// directory and its parents. It panics when the file cannot be loaded and
// is meant for tests and the CLI's fallback.
func MustLoadDefaultConfig() *TailgateConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks the values that are set.
func (c *TailgateConfig) Validate() error {
	if c.LaneThresholdM != nil {
		if v := *c.LaneThresholdM; math.IsNaN(v) || v < 0 {
			return fmt.Errorf("lane_threshold_m must be non-negative, got %v", v)
		}
	}
	if c.AngularThresholdRad != nil {
		if v := *c.AngularThresholdRad; math.IsNaN(v) || v < 0 || v > math.Pi {
			return fmt.Errorf("angular_threshold_rad must be between 0 and pi, got %v", v)
		}
	}
	if c.PairingPolicy != nil {
		if _, err := tailgate.ParsePairingPolicy(*c.PairingPolicy); err != nil {
			return err
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}
	return nil
}

// GetAngularThreshold returns angular_threshold_rad or π/4.
func (c *TailgateConfig) GetAngularThreshold() float64 {
	if c.AngularThresholdRad == nil {
		return tailgate.DefaultAngularThreshold
	}
	return *c.AngularThresholdRad
}

// GetPairingPolicy returns the parsed pairing_policy, adjacent by default.
func (c *TailgateConfig) GetPairingPolicy() tailgate.PairingPolicy {
	if c.PairingPolicy == nil {
		return tailgate.PolicyAdjacent
	}
	p, err := tailgate.ParsePairingPolicy(*c.PairingPolicy)
	if err != nil {
		return tailgate.PolicyAdjacent
	}
	return p
}

// GetWorkers returns workers, or the number of CPUs when unset or zero.
func (c *TailgateConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetSpeedUnits returns speed_units or kmph.
func (c *TailgateConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil || *c.SpeedUnits == "" {
		return units.KMPH
	}
	return *c.SpeedUnits
}

// Options builds detector options. The lane threshold must be configured.
func (c *TailgateConfig) Options() (tailgate.Options, error) {
	if c.LaneThresholdM == nil {
		return tailgate.Options{}, fmt.Errorf("lane_threshold_m is required")
	}
	if err := c.Validate(); err != nil {
		return tailgate.Options{}, err
	}
	return tailgate.Options{
		LaneThreshold:    *c.LaneThresholdM,
		AngularThreshold: ptrFloat64(c.GetAngularThreshold()),
		Policy:           c.GetPairingPolicy(),
		Workers:          c.GetWorkers(),
	}, nil
}

// WithOverrides returns a copy of c with the non-nil fields of o applied.
func (c *TailgateConfig) WithOverrides(o *TailgateConfig) *TailgateConfig {
	out := *c
	if o == nil {
		return &out
	}
	if o.LaneThresholdM != nil {
		out.LaneThresholdM = ptrFloat64(*o.LaneThresholdM)
	}
	if o.AngularThresholdRad != nil {
		out.AngularThresholdRad = ptrFloat64(*o.AngularThresholdRad)
	}
	if o.PairingPolicy != nil {
		out.PairingPolicy = ptrString(*o.PairingPolicy)
	}
	if o.Workers != nil {
		out.Workers = ptrInt(*o.Workers)
	}
	if o.SpeedUnits != nil {
		out.SpeedUnits = ptrString(*o.SpeedUnits)
	}
	return &out
}
