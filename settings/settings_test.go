package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathd.dev/pathd/params"
	"pathd.dev/pathd/planner"
)

func useTempParams(t *testing.T) {
	t.Helper()
	oldPath := params.ParamsPath
	oldSettings := params.PATHD_SETTINGS
	params.ParamsPath = filepath.Join(t.TempDir(), "d")
	params.PATHD_SETTINGS = params.ParamPath("PathdSettings")
	t.Cleanup(func() {
		params.ParamsPath = oldPath
		params.PATHD_SETTINGS = oldSettings
	})
	params.EnsureParamDirectories()
}

func TestDefaultMirrorsPlannerParam(t *testing.T) {
	var s PathdSettings
	s.Default()

	p := planner.DefaultParam()
	assert.Equal(t, p.MPT.LatErrorWeight, s.LatErrorWeight)
	assert.Equal(t, p.MPT.EnableAvoidance, s.EnableAvoidance)
	assert.Equal(t, p.Trajectory.OutputDeltaArcLength, s.OutputDeltaArcLength)
	assert.Equal(t, "error", s.LogLevel)
}

func TestLoadWithoutParamFallsBackToDefaults(t *testing.T) {
	useTempParams(t)

	var s PathdSettings
	assert.False(t, s.Load())
	assert.Equal(t, planner.DefaultParam().MPT.LatErrorWeight, s.LatErrorWeight)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	useTempParams(t)

	var s PathdSettings
	s.Default()
	s.LatErrorWeight = 123.0
	s.EnableSkipOptimization = true
	s.Save()

	var loaded PathdSettings
	require.True(t, loaded.Load())
	assert.Equal(t, 123.0, loaded.LatErrorWeight)
	assert.True(t, loaded.EnableSkipOptimization)
	// Fields absent from older persisted settings keep their defaults.
	assert.Equal(t, planner.DefaultParam().MPT.SteerRateWeight, loaded.SteerRateWeight)
}

func TestApplyTo(t *testing.T) {
	var s PathdSettings
	s.Default()
	s.LatErrorWeight = 7.5
	s.ReplanMaxDeltaTimeSec = 9.0
	s.EnableDrivableAreaStop = false

	p := planner.DefaultParam()
	s.ApplyTo(&p)

	assert.Equal(t, 7.5, p.MPT.LatErrorWeight)
	assert.Equal(t, 9.0, p.Replan.MaxDeltaTimeSec)
	assert.False(t, p.EnableOutsideDrivableAreaStop)
}
