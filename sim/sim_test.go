package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathd.dev/pathd/geom"
	"pathd.dev/pathd/planner"
	"pathd.dev/pathd/scenario"
)

func testVehicle() geom.VehicleInfo {
	return geom.VehicleInfo{
		WheelBase:     2.79,
		FrontOverhang: 1.0,
		RearOverhang:  1.1,
		Width:         1.9,
		Length:        4.89,
		MaxSteerAngle: 0.7,
	}
}

func testPlannerParam() planner.Param {
	p := planner.DefaultParam()
	p.MPT.MaxOptimizationTimeMS = 5000
	return p
}

func TestStepAdvancesEgo(t *testing.T) {
	scen := scenario.Straight(60, scenario.DefaultGenerateParam())
	r := NewRunner(scen, testPlannerParam(), testVehicle())

	tr := r.Step(0.5)
	require.True(t, tr.Result.Success, tr.Result.ErrorMessage)
	assert.Equal(t, 0, tr.Tick)
	// The reported ego is the pose the tick planned from.
	assert.Equal(t, scen.Ego.Pose.Position, tr.Ego.Position)

	// Afterwards the ego has moved v*dt = 4 m down the straight.
	assert.InDelta(t, 4.0, r.Ego().Position.X, 0.1)
	assert.InDelta(t, 0.0, r.Ego().Position.Y, 0.05)
}

func TestStepAccumulatesOverTicks(t *testing.T) {
	scen := scenario.Straight(100, scenario.DefaultGenerateParam())
	r := NewRunner(scen, testPlannerParam(), testVehicle())

	for i := 0; i < 5; i++ {
		tr := r.Step(0.25)
		assert.Equal(t, i, tr.Tick)
		require.True(t, tr.Result.Success, tr.Result.ErrorMessage)
	}
	// Five ticks of 8 m/s * 0.25 s each.
	assert.InDelta(t, 10.0, r.Ego().Position.X, 0.3)
}

func TestRunReportsEveryTick(t *testing.T) {
	scen := scenario.Straight(100, scenario.DefaultGenerateParam())
	r := NewRunner(scen, testPlannerParam(), testVehicle())

	var ticks []int
	err := r.Run(context.Background(), 3, 0, func(tr TickResult) {
		ticks = append(ticks, tr.Tick)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ticks)
}

func TestRunStopsOnCancel(t *testing.T) {
	scen := scenario.Straight(100, scenario.DefaultGenerateParam())
	r := NewRunner(scen, testPlannerParam(), testVehicle())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, 10, 0, nil)
	require.Error(t, err)
}
