package mpt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathd.dev/pathd/geom"
)

func TestOptimizeStraightCorridor(t *testing.T) {
	o := testOptimizer()
	traj := straightTraj(40, 1.0, 8.0)
	left := offsetBound(traj, 2.0)
	right := offsetBound(traj, -2.0)
	ego := geom.PoseFromXYYaw(0, 0, 0)

	out, err := o.Optimize(traj, left, right, ego, 8.0)
	require.NoError(t, err)
	require.Len(t, out, 41)

	for i, p := range out {
		assert.InDelta(t, 0.0, p.Pose.Position.Y, 1e-3, "y at %d", i)
		assert.InDelta(t, 0.0, p.FrontWheelAngle, 1e-3, "steer at %d", i)
	}
	for _, r := range o.ReferencePoints() {
		assert.InDelta(t, 0.0, r.OptimizedKinematicState.Lat, 1e-3)
	}
	assert.Equal(t, "solved", o.LastDiagnostics().Status)
}

func TestOptimizeArcSteadyStateSteer(t *testing.T) {
	o := testOptimizer()
	radius := 50.0
	traj := arcTraj(radius, 1.2, 1.0, 8.0)
	left := offsetBound(traj, 2.0)
	right := offsetBound(traj, -2.0)
	ego := traj[0].Pose

	out, err := o.Optimize(traj, left, right, ego, 8.0)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	want := math.Atan(testVehicle().WheelBase / radius)
	refs := o.ReferencePoints()
	sum := 0.0
	count := 0
	for i := 5; i < len(refs)-5; i++ {
		sum += refs[i].OptimizedInput
		count++
	}
	mean := sum / float64(count)
	assert.InDelta(t, want, mean, 0.01)
	for i := 5; i < len(refs)-5; i++ {
		assert.InDelta(t, want, refs[i].OptimizedInput, 0.02, "steer at %d", i)
	}
}

func TestOptimizeOffsetRecovery(t *testing.T) {
	o := testOptimizer()
	traj := straightTraj(40, 1.0, 8.0)
	left := offsetBound(traj, 2.0)
	right := offsetBound(traj, -2.0)
	ego := geom.PoseFromXYYaw(0, 0.5, 0)

	_, err := o.Optimize(traj, left, right, ego, 8.0)
	require.NoError(t, err)

	refs := o.ReferencePoints()
	// The anchored point carries the full ego offset.
	assert.InDelta(t, 0.5, refs[0].OptimizedKinematicState.Lat, 1e-3)
	// The error decays along the horizon and ends inside the terminal
	// tolerance.
	assert.Less(t, math.Abs(refs[20].OptimizedKinematicState.Lat), 0.1)
	last := refs[len(refs)-1].OptimizedKinematicState
	assert.Less(t, math.Abs(last.Lat), DefaultParam().TerminalLatErrorThreshold)
}

func TestOptimizeShiftedCorridorPushesOffCenter(t *testing.T) {
	param := testParam()
	param.EnableTerminalConstraint = false
	param.TerminalLatErrorWeight = 1
	param.GoalLatErrorWeight = 1
	o := NewOptimizer(param, DefaultEgoNearestParam(), testVehicle())

	traj := straightTraj(40, 1.0, 8.0)
	// The drivable corridor sits entirely to the left of the path.
	left := offsetBound(traj, 3.0)
	right := offsetBound(traj, 1.0)

	_, err := o.Optimize(traj, left, right, geom.PoseFromXYYaw(0, 1.8, 0), 8.0)
	require.NoError(t, err)

	refs := o.ReferencePoints()
	half := testVehicle().Width / 2
	lower := 1.0 + half
	for i := 10; i < len(refs)-5; i++ {
		lat := refs[i].OptimizedKinematicState.Lat
		assert.Greater(t, lat, lower-0.2, "lat at %d", i)
		assert.Less(t, lat, 3.0-half+0.2, "lat at %d", i)
	}
}

func TestOptimizeRespectsSteerLimit(t *testing.T) {
	param := testParam()
	param.MaxSteer = 0.02
	param.EnableTerminalConstraint = false
	o := NewOptimizer(param, DefaultEgoNearestParam(), testVehicle())

	traj := arcTraj(20, 1.0, 1.0, 8.0)
	_, err := o.Optimize(traj, nil, nil, traj[0].Pose, 8.0)
	require.NoError(t, err)

	for i, r := range o.ReferencePoints() {
		assert.LessOrEqual(t, math.Abs(r.OptimizedInput), 0.02+1e-4, "steer at %d", i)
	}
}

func TestOptimizeWarmStartsSecondTick(t *testing.T) {
	o := testOptimizer()
	traj := straightTraj(40, 1.0, 8.0)
	left := offsetBound(traj, 2.0)
	right := offsetBound(traj, -2.0)
	ego := geom.PoseFromXYYaw(0, 0, 0)

	_, err := o.Optimize(traj, left, right, ego, 8.0)
	require.NoError(t, err)
	assert.False(t, o.LastDiagnostics().WarmStarted)

	_, err = o.Optimize(traj, left, right, ego, 8.0)
	require.NoError(t, err)
	assert.True(t, o.LastDiagnostics().WarmStarted)
	assert.Equal(t, "solved", o.LastDiagnostics().Status)
}

func TestOptimizeResetWarmStart(t *testing.T) {
	o := testOptimizer()
	traj := straightTraj(40, 1.0, 8.0)
	ego := geom.PoseFromXYYaw(0, 0, 0)

	_, err := o.Optimize(traj, nil, nil, ego, 8.0)
	require.NoError(t, err)

	o.ResetWarmStart()
	_, err = o.Optimize(traj, nil, nil, ego, 8.0)
	require.NoError(t, err)
	assert.False(t, o.LastDiagnostics().WarmStarted)
}

func TestOptimizeRejectsShortInput(t *testing.T) {
	o := testOptimizer()
	_, err := o.Optimize(straightTraj(0.5, 1.0, 8.0), nil, nil, geom.Pose{}, 8.0)
	require.Error(t, err)
}

func TestOptimizeWithoutAnchor(t *testing.T) {
	// An ego far from the path disables the anchor; the solve still runs.
	o := testOptimizer()
	traj := straightTraj(40, 1.0, 8.0)

	out, err := o.Optimize(traj, nil, nil, geom.PoseFromXYYaw(0, 50, 0), 8.0)
	require.NoError(t, err)
	require.Len(t, out, 41)
	for _, r := range o.ReferencePoints() {
		assert.Nil(t, r.FixedKinematicState)
		assert.InDelta(t, 0.0, r.OptimizedKinematicState.Lat, 1e-3)
	}
}

func TestConvertToTrajectoryAppliesLateralOffset(t *testing.T) {
	o := testOptimizer()
	refs := []ReferencePoint{
		{
			Pose:                 geom.PoseFromXYYaw(0, 0, 0),
			LongitudinalVelocity: 5,
			OptimizedKinematicState: KinematicState{Lat: 0.4, Yaw: 0.05},
			OptimizedInput:          0.02,
		},
	}
	out := o.convertToTrajectory(refs)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.0, out[0].Pose.Position.X, 1e-12)
	assert.InDelta(t, 0.4, out[0].Pose.Position.Y, 1e-12)
	assert.InDelta(t, 0.05, out[0].Pose.Yaw(), 1e-12)
	assert.InDelta(t, 5.0, out[0].LongitudinalVelocity, 1e-12)
	assert.InDelta(t, 0.02, out[0].FrontWheelAngle, 1e-12)
}
