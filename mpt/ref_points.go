package mpt

import (
	m "math"

	"github.com/pkg/errors"
	"pathd.dev/pathd/geom"
	"pathd.dev/pathd/spline"
)

// minKnotSpacing filters input points that are too close together to serve
// as spline knots.
const minKnotSpacing = 1e-3

// generateReferencePoints resamples the input trajectory to uniform arc
// length via cubic splines of x(s) and y(s), truncates to the horizon, and
// annotates curvature, alpha and velocity. goalReached reports whether the
// final reference point lands on the end of the input path.
func (o *Optimizer) generateReferencePoints(trajPoints []geom.TrajectoryPoint) ([]ReferencePoint, bool, error) {
	xs := make([]float64, 0, len(trajPoints))
	ys := make([]float64, 0, len(trajPoints))
	vs := make([]float64, 0, len(trajPoints))
	ss := make([]float64, 0, len(trajPoints))

	arc := 0.0
	for i, p := range trajPoints {
		if i > 0 {
			d := trajPoints[i-1].Pose.Position.DistanceTo(p.Pose.Position)
			if d < minKnotSpacing {
				continue
			}
			arc += d
		}
		ss = append(ss, arc)
		xs = append(xs, p.Pose.Position.X)
		ys = append(ys, p.Pose.Position.Y)
		vs = append(vs, p.LongitudinalVelocity)
	}
	if len(ss) < 2 {
		return nil, false, errors.New("could not generate reference points: fewer than two distinct path points")
	}

	sx, err := spline.New(ss, xs)
	if err != nil {
		return nil, false, errors.Wrap(err, "could not fit x spline")
	}
	sy, err := spline.New(ss, ys)
	if err != nil {
		return nil, false, errors.Wrap(err, "could not fit y spline")
	}
	sv, err := spline.New(ss, vs)
	if err != nil {
		return nil, false, errors.Wrap(err, "could not fit velocity spline")
	}

	total := ss[len(ss)-1]
	step := o.param.DeltaArcLength
	count := int(m.Floor(total/step)) + 1
	if count > o.param.NumPoints {
		count = o.param.NumPoints
	}
	if count < 2 {
		return nil, false, errors.New("could not generate reference points: path shorter than one sampling step")
	}

	refs := make([]ReferencePoint, count)
	for i := 0; i < count; i++ {
		s := float64(i) * step
		dx := sx.Derivative(s)
		dy := sy.Derivative(s)
		ddx := sx.SecondDerivative(s)
		ddy := sy.SecondDerivative(s)

		yaw := m.Atan2(dy, dx)
		den := m.Pow(dx*dx+dy*dy, 1.5)
		curvature := 0.0
		if den > 1e-12 {
			curvature = (dx*ddy - dy*ddx) / den
		}

		refs[i] = ReferencePoint{
			Pose: geom.Pose{
				Position:    geom.Point{X: sx.Interpolate(s), Y: sy.Interpolate(s)},
				Orientation: geom.QuaternionFromYaw(yaw),
			},
			LongitudinalVelocity: sv.Interpolate(s),
			Curvature:            curvature,
			Alpha:                m.Atan(o.param.OptimizationCenterOffset * curvature),
		}
		if i > 0 {
			refs[i].DeltaArcLength = step
		}
	}

	goalReached := float64(count-1)*step >= total-step/2
	return refs, goalReached, nil
}

// updateFixedPoint anchors the reference point nearest the ego pose, within
// the distance and yaw gates, to the ego's projected kinematic state. The
// anchor index is returned, or -1 when no point passes the gates.
func (o *Optimizer) updateFixedPoint(refs []ReferencePoint, egoPose geom.Pose) int {
	poses := make([]geom.Pose, len(refs))
	for i, r := range refs {
		poses[i] = r.Pose
	}
	idx, ok := geom.NearestIndexWithThresholds(poses, egoPose, o.egoNearest.DistThreshold, o.egoNearest.YawThreshold)
	if !ok {
		return -1
	}

	ref := refs[idx]
	lat := ref.Pose.LateralOffset(egoPose.Position)
	yaw := geom.NormalizeAngle(egoPose.Yaw() - ref.Pose.Yaw() - ref.Alpha)
	refs[idx].FixedKinematicState = &KinematicState{Lat: lat, Yaw: yaw}
	return idx
}

// updateAvoidanceCost grades each point by how much the corridor pinches.
// Bounds are already inset by half the vehicle width, so the remaining free
// width is compared against the avoidance precision margin on both sides: 0
// in a wide corridor, approaching 1 as free width vanishes.
func (o *Optimizer) updateAvoidanceCost(refs []ReferencePoint) {
	if !o.param.EnableAvoidance {
		return
	}
	comfortable := 2 * o.param.AvoidancePrecision
	for i := range refs {
		b := refs[i].Bounds
		if m.IsInf(b.Upper, 0) || m.IsInf(b.Lower, 0) {
			refs[i].NormalizedAvoidanceCost = 0
			continue
		}
		free := b.Upper - b.Lower
		cost := 1 - free/comfortable
		if cost < 0 {
			cost = 0
		}
		if cost > 1 {
			cost = 1
		}
		refs[i].NormalizedAvoidanceCost = cost
	}
}
