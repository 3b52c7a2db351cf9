package scenario

import (
	"math"

	"pathd.dev/pathd/geom"
)

// GenerateParam shapes the built-in generators.
type GenerateParam struct {
	Step       float64 // centerline sample spacing in meters
	Velocity   float64 // constant speed profile
	LaneWidth  float64 // corridor width, bounds at +-LaneWidth/2
	EgoLatOffset float64 // ego start offset from the centerline
}

// DefaultGenerateParam is a 1 m sampled lane at city speed.
func DefaultGenerateParam() GenerateParam {
	return GenerateParam{
		Step:      1.0,
		Velocity:  8.0,
		LaneWidth: 4.0,
	}
}

// Straight builds a straight corridor of the given length along +x.
func Straight(length float64, p GenerateParam) Scenario {
	n := int(length/p.Step) + 1
	center := make([]geom.Pose, n)
	for i := range center {
		center[i] = geom.PoseFromXYYaw(float64(i)*p.Step, 0, 0)
	}
	return fromCenterline("straight", center, p)
}

// Arc builds a constant-radius left turn sweeping the given angle. Negative
// radius turns right.
func Arc(radius, sweep float64, p GenerateParam) Scenario {
	sign := 1.0
	r := radius
	if r < 0 {
		sign = -1.0
		r = -r
	}
	n := int(r*sweep/p.Step) + 1
	center := make([]geom.Pose, n)
	for i := range center {
		theta := float64(i) * p.Step / r
		x := r * math.Sin(theta)
		y := sign * r * (1 - math.Cos(theta))
		center[i] = geom.PoseFromXYYaw(x, y, sign*theta)
	}
	return fromCenterline("arc", center, p)
}

// fromCenterline attaches the speed profile, the corridor bounds, and the
// ego start state to a sampled centerline.
func fromCenterline(name string, center []geom.Pose, p GenerateParam) Scenario {
	s := Scenario{Name: name}
	s.PathPoints = make([]geom.PathPoint, len(center))
	s.LeftBound = make([]geom.Point, len(center))
	s.RightBound = make([]geom.Point, len(center))
	half := p.LaneWidth / 2
	for i, pose := range center {
		s.PathPoints[i] = geom.PathPoint{
			Pose:                 pose,
			LongitudinalVelocity: p.Velocity,
		}
		s.LeftBound[i] = pose.OffsetPose(0, half).Position
		s.RightBound[i] = pose.OffsetPose(0, -half).Position
	}
	ego := center[0]
	if p.EgoLatOffset != 0 {
		ego = center[0].OffsetPose(0, p.EgoLatOffset)
	}
	s.Ego = EgoState{Pose: ego, Velocity: p.Velocity}
	return s
}
