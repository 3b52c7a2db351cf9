package planner

import (
	"pathd.dev/pathd/geom"
)

// ReplanChecker decides per tick whether the previous trajectory is still
// valid or the optimizer must run again. With no previous data it always
// asks for a replan.
type ReplanChecker struct {
	param ReplanParam

	prevTrajPoints    []geom.TrajectoryPoint
	prevEgoPose       *geom.Pose
	prevReplannedTime *float64
}

func NewReplanChecker(param ReplanParam) *ReplanChecker {
	return &ReplanChecker{param: param}
}

// IsReplanRequired reports whether the input trajectory, ego pose, or
// elapsed time have drifted past the configured limits since the last
// replan.
func (c *ReplanChecker) IsReplanRequired(trajPoints []geom.TrajectoryPoint, egoPose geom.Pose, nowSec float64) bool {
	if c.prevTrajPoints == nil || c.prevEgoPose == nil || c.prevReplannedTime == nil {
		return true
	}
	if nowSec-*c.prevReplannedTime > c.param.MaxDeltaTimeSec {
		return true
	}
	if egoPose.Position.DistanceTo(c.prevEgoPose.Position) > c.param.MaxEgoMovingDist {
		return true
	}
	if pathShapeChange(trajPoints, c.prevTrajPoints) > c.param.MaxPathShapeChangeDist {
		return true
	}
	return false
}

// UpdatePreviousData records the inputs of a completed replan.
func (c *ReplanChecker) UpdatePreviousData(trajPoints []geom.TrajectoryPoint, egoPose geom.Pose, nowSec float64) {
	c.prevTrajPoints = trajPoints
	pose := egoPose
	c.prevEgoPose = &pose
	now := nowSec
	c.prevReplannedTime = &now
}

// Reset drops the previous data; the next check asks for a replan.
func (c *ReplanChecker) Reset() {
	c.prevTrajPoints = nil
	c.prevEgoPose = nil
	c.prevReplannedTime = nil
}

// pathShapeChange is the largest distance from any point of the current
// trajectory to the previous trajectory's polyline.
func pathShapeChange(current, prev []geom.TrajectoryPoint) float64 {
	prevPoly := positions(prev)
	maxDist := 0.0
	for _, p := range positions(current) {
		if d := geom.PointToPolylineDistance(prevPoly, p); d > maxDist {
			maxDist = d
		}
	}
	return maxDist
}

func positions(traj []geom.TrajectoryPoint) []geom.Point {
	pts := make([]geom.Point, len(traj))
	for i, p := range traj {
		pts[i] = p.Pose.Position
	}
	return pts
}
