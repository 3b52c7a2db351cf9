package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDerivedValues(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	// The optimization center is derived from the wheelbase.
	assert.InDelta(t, 0.8*2.79, cfg.Planner.MPT.OptimizationCenterOffset, 1e-9)
	// The steer limit never exceeds what the vehicle can do.
	assert.LessOrEqual(t, cfg.Planner.MPT.MaxSteer, cfg.Vehicle.MaxSteerAngle)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
vehicle:
  wheel_base: 3.0
  width: 2.1
  max_steer_angle: 0.5
planner:
  trajectory:
    output_delta_arc_length: 0.25
  mpt:
    num_points: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3.0, cfg.Vehicle.WheelBase)
	assert.Equal(t, 2.1, cfg.Vehicle.Width)
	assert.Equal(t, 0.25, cfg.Planner.Trajectory.OutputDeltaArcLength)
	assert.Equal(t, 50, cfg.Planner.MPT.NumPoints)
	// Untouched fields keep their defaults.
	assert.Equal(t, 1.0, cfg.Planner.MPT.DeltaArcLength)
	// Derived values follow the overridden vehicle.
	assert.InDelta(t, 0.8*3.0, cfg.Planner.MPT.OptimizationCenterOffset, 1e-9)
	assert.InDelta(t, 0.5, cfg.Planner.MPT.MaxSteer, 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vehicle:\n  wheel_base: -1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Vehicle.WheelBase = 3.1
	cfg.Planner.MPT.NumPoints = 42

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3.1, loaded.Vehicle.WheelBase)
	assert.Equal(t, 42, loaded.Planner.MPT.NumPoints)
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero wheelbase", func(c *Config) { c.Vehicle.WheelBase = 0 }},
		{"zero width", func(c *Config) { c.Vehicle.Width = 0 }},
		{"too few points", func(c *Config) { c.Planner.MPT.NumPoints = 2 }},
		{"bad arc length", func(c *Config) { c.Planner.MPT.DeltaArcLength = 0 }},
		{"bad eps", func(c *Config) { c.Planner.MPT.EpsAbs = 0 }},
		{"bad steer limit", func(c *Config) { c.Planner.MPT.MaxSteer = 2.0 }},
		{"bad steer rate", func(c *Config) { c.Planner.MPT.MaxSteerRate = 0 }},
		{"bad output spacing", func(c *Config) { c.Planner.Trajectory.OutputDeltaArcLength = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
