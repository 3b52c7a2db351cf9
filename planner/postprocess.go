package planner

import (
	"math"

	"log/slog"

	"pathd.dev/pathd/geom"
	"pathd.dev/pathd/spline"
)

const minResampleSpacing = 1e-3

// postprocess turns an optimized (or pass-through) trajectory into the
// final output: resampled to the output spacing, velocities restored from
// the input path, trimmed behind the ego, control fields filled in, and a
// stop inserted if the footprint leaves the drivable area.
func (p *PathOptimizer) postprocess(
	traj []geom.TrajectoryPoint,
	pathPoints []geom.PathPoint,
	leftBound, rightBound []geom.Point,
	egoPose geom.Pose,
) []geom.TrajectoryPoint {
	out := p.resampleTrajectory(traj)
	applyInputVelocity(out, pathPoints)
	out = p.trimBackward(out, egoPose)
	p.calcControlFields(out)
	if p.param.EnableOutsideDrivableAreaStop {
		p.insertStopOutsideDrivableArea(out, leftBound, rightBound)
	}
	return out
}

// resampleTrajectory refits the trajectory onto arc-length splines and
// samples it at the output spacing. Steering is carried over from the
// nearest source point.
func (p *PathOptimizer) resampleTrajectory(traj []geom.TrajectoryPoint) []geom.TrajectoryPoint {
	if len(traj) < 2 {
		return append([]geom.TrajectoryPoint(nil), traj...)
	}

	xs := make([]float64, 0, len(traj))
	ys := make([]float64, 0, len(traj))
	ss := make([]float64, 0, len(traj))
	srcIdx := make([]int, 0, len(traj))
	s := 0.0
	for i, pt := range traj {
		if i > 0 {
			d := pt.Pose.Position.DistanceTo(traj[srcIdx[len(srcIdx)-1]].Pose.Position)
			if d < minResampleSpacing {
				continue
			}
			s += d
		}
		xs = append(xs, pt.Pose.Position.X)
		ys = append(ys, pt.Pose.Position.Y)
		ss = append(ss, s)
		srcIdx = append(srcIdx, i)
	}
	if len(ss) < 2 {
		return append([]geom.TrajectoryPoint(nil), traj...)
	}

	splineX, err := spline.New(ss, xs)
	if err != nil {
		slog.Warn("could not fit resampling spline", "error", err)
		return append([]geom.TrajectoryPoint(nil), traj...)
	}
	splineY, _ := spline.New(ss, ys)

	total := ss[len(ss)-1]
	step := p.param.Trajectory.OutputDeltaArcLength
	n := int(total/step) + 1
	if max := p.param.Trajectory.NumSamplingPoints; max > 0 && n > max {
		n = max
	}

	out := make([]geom.TrajectoryPoint, 0, n+1)
	src := 0
	for i := 0; i <= n; i++ {
		si := float64(i) * step
		if si > total {
			si = total
		}
		dx := splineX.Derivative(si)
		dy := splineY.Derivative(si)
		pose := geom.PoseFromXYYaw(splineX.Interpolate(si), splineY.Interpolate(si), math.Atan2(dy, dx))

		for src < len(ss)-1 && ss[src+1] < si {
			src++
		}
		nearest := traj[srcIdx[src]]
		if src+1 < len(ss) && si-ss[src] > ss[src+1]-si {
			nearest = traj[srcIdx[src+1]]
		}

		out = append(out, geom.TrajectoryPoint{
			Pose:                 pose,
			LongitudinalVelocity: nearest.LongitudinalVelocity,
			FrontWheelAngle:      nearest.FrontWheelAngle,
		})
		if si >= total {
			break
		}
	}
	return out
}

// applyInputVelocity restores the speed profile from the input path: the
// optimizer moves points laterally, so each output point takes the velocity
// of the nearest input point.
func applyInputVelocity(traj []geom.TrajectoryPoint, pathPoints []geom.PathPoint) {
	if len(pathPoints) == 0 {
		return
	}
	for i := range traj {
		best := 0
		bestDist := math.Inf(1)
		for j, pp := range pathPoints {
			if d := traj[i].Pose.Position.DistanceTo(pp.Pose.Position); d < bestDist {
				bestDist = d
				best = j
			}
		}
		traj[i].LongitudinalVelocity = pathPoints[best].LongitudinalVelocity
	}
}

// trimBackward drops points more than the configured backward length behind
// the ego so the output starts just behind the vehicle.
func (p *PathOptimizer) trimBackward(traj []geom.TrajectoryPoint, egoPose geom.Pose) []geom.TrajectoryPoint {
	if len(traj) < 2 {
		return traj
	}
	poses := make([]geom.Pose, len(traj))
	for i, pt := range traj {
		poses[i] = pt.Pose
	}
	egoIdx := geom.NearestIndex(poses, egoPose)

	keep := egoIdx
	behind := 0.0
	for keep > 0 {
		d := traj[keep].Pose.Position.DistanceTo(traj[keep-1].Pose.Position)
		if behind+d > p.param.Trajectory.OutputBackwardTrajLength {
			break
		}
		behind += d
		keep--
	}
	return traj[keep:]
}

// calcControlFields fills heading rate and acceleration from the sampled
// geometry and speed profile.
func (p *PathOptimizer) calcControlFields(traj []geom.TrajectoryPoint) {
	for i := range traj {
		var dyaw, ds, dv float64
		switch {
		case len(traj) < 2:
			continue
		case i == len(traj)-1:
			dyaw = geom.NormalizeAngle(traj[i].Pose.Yaw() - traj[i-1].Pose.Yaw())
			ds = traj[i].Pose.Position.DistanceTo(traj[i-1].Pose.Position)
			dv = traj[i].LongitudinalVelocity - traj[i-1].LongitudinalVelocity
		default:
			dyaw = geom.NormalizeAngle(traj[i+1].Pose.Yaw() - traj[i].Pose.Yaw())
			ds = traj[i+1].Pose.Position.DistanceTo(traj[i].Pose.Position)
			dv = traj[i+1].LongitudinalVelocity - traj[i].LongitudinalVelocity
		}
		if ds < minResampleSpacing {
			continue
		}
		v := traj[i].LongitudinalVelocity
		traj[i].HeadingRate = dyaw / ds * v
		traj[i].Acceleration = dv / ds * v
		if traj[i].FrontWheelAngle == 0 {
			traj[i].FrontWheelAngle = math.Atan(p.vehicle.WheelBase * dyaw / ds)
		}
	}
}

// insertStopOutsideDrivableArea zeroes the velocity from the stop margin
// before the first point whose footprint leaves the corridor between the
// left and right bounds.
func (p *PathOptimizer) insertStopOutsideDrivableArea(traj []geom.TrajectoryPoint, leftBound, rightBound []geom.Point) {
	if len(leftBound) < 2 || len(rightBound) < 2 {
		return
	}
	violation := -1
	for i := range traj {
		if !p.footprintInsideCorridor(traj[i].Pose, leftBound, rightBound) {
			violation = i
			break
		}
	}
	if violation < 0 {
		return
	}

	stop := violation
	margin := 0.0
	for stop > 0 {
		d := traj[stop].Pose.Position.DistanceTo(traj[stop-1].Pose.Position)
		if margin+d > p.param.VehicleStopMarginOutsideDrivableArea {
			break
		}
		margin += d
		stop--
	}
	slog.Warn("trajectory leaves drivable area, inserting stop",
		"violation_index", violation, "stop_index", stop)
	for i := stop; i < len(traj); i++ {
		traj[i].LongitudinalVelocity = 0
		traj[i].Acceleration = 0
	}
}

// footprintInsideCorridor checks the vehicle footprint at the pose against
// the lateral corridor formed by the bound crossings along the pose normal.
// Poses whose normal misses a bound are treated as inside.
func (p *PathOptimizer) footprintInsideCorridor(pose geom.Pose, leftBound, rightBound []geom.Point) bool {
	yaw := pose.Yaw()
	normal := geom.Point{X: -math.Sin(yaw), Y: math.Cos(yaw)}

	left, okL := nearestCrossing(pose.Position, normal, leftBound)
	right, okR := nearestCrossing(pose.Position, normal, rightBound)
	if !okL || !okR {
		return true
	}
	half := p.vehicle.Width / 2
	return left >= half && right <= -half
}

// nearestCrossing returns the signed offset along dir of the closest
// crossing of the polyline.
func nearestCrossing(origin, dir geom.Point, poly []geom.Point) (float64, bool) {
	best := 0.0
	found := false
	for i := 0; i+1 < len(poly); i++ {
		t, ok := geom.IntersectLineSegment(origin, dir, poly[i], poly[i+1])
		if !ok {
			continue
		}
		if !found || math.Abs(t) < math.Abs(best) {
			best = t
			found = true
		}
	}
	return best, found
}
