package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYawRoundTrip(t *testing.T) {
	for _, yaw := range []float64{0, 0.5, -0.5, 1.5, -3.0, 3.1} {
		q := QuaternionFromYaw(yaw)
		assert.InDelta(t, yaw, q.Yaw(), 1e-12, "yaw %f", yaw)
	}
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, 0.0, NormalizeAngle(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, NormalizeAngle(math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, NormalizeAngle(3*math.Pi/2), 1e-12)
	assert.InDelta(t, 0.1, NormalizeAngle(0.1+4*math.Pi), 1e-12)
	assert.InDelta(t, -0.1, NormalizeAngle(-0.1-4*math.Pi), 1e-12)
}

func TestLateralOffsetSign(t *testing.T) {
	pose := PoseFromXYYaw(0, 0, 0)
	// Left of the +x heading is +y.
	assert.InDelta(t, 2.0, pose.LateralOffset(Point{X: 5, Y: 2}), 1e-12)
	assert.InDelta(t, -2.0, pose.LateralOffset(Point{X: 5, Y: -2}), 1e-12)

	rotated := PoseFromXYYaw(1, 1, math.Pi/2)
	assert.InDelta(t, -3.0, rotated.LateralOffset(Point{X: 4, Y: 1}), 1e-12)
}

func TestOffsetPose(t *testing.T) {
	pose := PoseFromXYYaw(1, 2, math.Pi/2)
	shifted := pose.OffsetPose(3, 1)
	assert.InDelta(t, 0.0, shifted.Position.X, 1e-12)
	assert.InDelta(t, 5.0, shifted.Position.Y, 1e-12)
	assert.InDelta(t, pose.Yaw(), shifted.Yaw(), 1e-12)
}

func TestOffsetPoseRoundTripWithLateralOffset(t *testing.T) {
	pose := PoseFromXYYaw(3, -2, 0.7)
	target := pose.OffsetPose(0, 1.25)
	assert.InDelta(t, 1.25, pose.LateralOffset(target.Position), 1e-12)
}

func TestArcLengths(t *testing.T) {
	pts := []Point{{X: 0}, {X: 3}, {X: 3, Y: 4}}
	s := ArcLengths(pts)
	require.Len(t, s, 3)
	assert.Equal(t, 0.0, s[0])
	assert.InDelta(t, 3.0, s[1], 1e-12)
	assert.InDelta(t, 7.0, s[2], 1e-12)
}

func TestNearestIndex(t *testing.T) {
	poses := []Pose{
		PoseFromXYYaw(0, 0, 0),
		PoseFromXYYaw(1, 0, 0),
		PoseFromXYYaw(2, 0, 0),
	}
	assert.Equal(t, 1, NearestIndex(poses, PoseFromXYYaw(1.2, 0.5, 0)))
	assert.Equal(t, 2, NearestIndex(poses, PoseFromXYYaw(10, 0, 0)))
}

func TestNearestIndexWithThresholds(t *testing.T) {
	poses := []Pose{
		PoseFromXYYaw(0, 0, 0),
		PoseFromXYYaw(1, 0, 0),
		PoseFromXYYaw(2, 0, 0),
	}

	idx, ok := NearestIndexWithThresholds(poses, PoseFromXYYaw(1.1, 0.2, 0.1), 1.0, 0.5)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	// Too far away.
	_, ok = NearestIndexWithThresholds(poses, PoseFromXYYaw(1, 5, 0), 1.0, 0.5)
	assert.False(t, ok)

	// Heading disagrees everywhere.
	_, ok = NearestIndexWithThresholds(poses, PoseFromXYYaw(1, 0, 2.0), 1.0, 0.5)
	assert.False(t, ok)
}

func TestPointToPolylineDistance(t *testing.T) {
	poly := []Point{{X: 0}, {X: 10}}
	assert.InDelta(t, 2.0, PointToPolylineDistance(poly, Point{X: 5, Y: 2}), 1e-12)
	// Beyond the end the distance is to the endpoint.
	assert.InDelta(t, 5.0, PointToPolylineDistance(poly, Point{X: 13, Y: 4}), 1e-12)
}

func TestIntersectLineSegment(t *testing.T) {
	// Ray along +y from origin crossing a horizontal segment at y=2.
	tVal, ok := IntersectLineSegment(Point{}, Point{Y: 1}, Point{X: -1, Y: 2}, Point{X: 1, Y: 2})
	require.True(t, ok)
	assert.InDelta(t, 2.0, tVal, 1e-12)

	// Crossing behind the origin yields a negative offset.
	tVal, ok = IntersectLineSegment(Point{}, Point{Y: 1}, Point{X: -1, Y: -3}, Point{X: 1, Y: -3})
	require.True(t, ok)
	assert.InDelta(t, -3.0, tVal, 1e-12)

	// Segment off to the side does not cross the ray's line within [0,1].
	_, ok = IntersectLineSegment(Point{}, Point{Y: 1}, Point{X: 2, Y: 2}, Point{X: 4, Y: 2})
	assert.False(t, ok)

	// Parallel segment never crosses.
	_, ok = IntersectLineSegment(Point{}, Point{Y: 1}, Point{Y: 5}, Point{Y: 9})
	assert.False(t, ok)
}
