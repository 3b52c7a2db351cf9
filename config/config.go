// Package config loads the vehicle description and planner tuning from
// YAML, fills defaults, and validates the combination before the planner
// ever runs.
package config

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"pathd.dev/pathd/geom"
	"pathd.dev/pathd/planner"
)

// Config pairs the vehicle with the planner tuning. Fields left out of the
// YAML keep their defaults.
type Config struct {
	Vehicle geom.VehicleInfo `yaml:"vehicle"`
	Planner planner.Param    `yaml:"planner"`
}

// Default returns a mid-size vehicle and the stock planner tuning.
func Default() Config {
	cfg := defaults()
	cfg.applyDerived()
	return cfg
}

func defaults() Config {
	return Config{
		Vehicle: geom.VehicleInfo{
			WheelBase:     2.79,
			FrontOverhang: 1.0,
			RearOverhang:  1.1,
			Width:         1.9,
			Length:        4.89,
			MaxSteerAngle: 0.7,
		},
		Planner: planner.DefaultParam(),
	}
}

// Load reads the YAML file at path on top of the defaults. Derived values
// are filled after the overrides so they follow the loaded vehicle.
func Load(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "could not read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "could not parse config file")
	}

	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "could not marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "could not write config file")
	}
	return nil
}

// applyDerived fills values that follow from the vehicle when the YAML
// leaves them unset. The optimization center sits ahead of the rear axle at
// a fixed fraction of the wheelbase.
func (c *Config) applyDerived() {
	if c.Planner.MPT.OptimizationCenterOffset == 0 {
		c.Planner.MPT.OptimizationCenterOffset = 0.8 * c.Vehicle.WheelBase
	}
	if c.Planner.MPT.MaxSteer > c.Vehicle.MaxSteerAngle && c.Vehicle.MaxSteerAngle > 0 {
		c.Planner.MPT.MaxSteer = c.Vehicle.MaxSteerAngle
	}
}

func (c Config) Validate() error {
	if c.Vehicle.WheelBase <= 0 {
		return errors.New("vehicle wheel_base must be positive")
	}
	if c.Vehicle.Width <= 0 {
		return errors.New("vehicle width must be positive")
	}
	mpt := c.Planner.MPT
	if mpt.NumPoints < 3 {
		return errors.New("mpt num_points must be at least 3")
	}
	if mpt.DeltaArcLength <= 0 {
		return errors.New("mpt delta_arc_length must be positive")
	}
	if mpt.EpsAbs <= 0 {
		return errors.New("mpt eps_abs must be positive")
	}
	if mpt.MaxSteer <= 0 || mpt.MaxSteer >= math.Pi/2 {
		return errors.New("mpt max_steer must be in (0, pi/2)")
	}
	if mpt.MaxSteerRate <= 0 {
		return errors.New("mpt max_steer_rate must be positive")
	}
	if c.Planner.Trajectory.OutputDeltaArcLength <= 0 {
		return errors.New("trajectory output_delta_arc_length must be positive")
	}
	return nil
}
