package planner

import (
	"log/slog"
	"time"

	"pathd.dev/pathd/geom"
	"pathd.dev/pathd/mpt"
)

// OptimizationResult is the detailed outcome of one planning tick. On
// failure Trajectory holds the best-effort fallback and ErrorMessage says
// why; the facade never panics or errors out.
type OptimizationResult struct {
	Trajectory        []geom.TrajectoryPoint
	ReferencePoints   []mpt.ReferencePoint
	Success           bool
	ErrorMessage      string
	ComputationTimeMS float64
	Replanned         bool
	QP                mpt.Diagnostics
}

// PathOptimizer is the per-tick facade. It owns one MPT optimizer and one
// replan checker; the previous optimized trajectory survives across ticks
// as the fallback and reuse source. Not safe for concurrent use.
type PathOptimizer struct {
	param   Param
	vehicle geom.VehicleInfo

	mpt    *mpt.Optimizer
	replan *ReplanChecker

	prevOptimizedTraj []geom.TrajectoryPoint

	// now is split out for tests; wall clock otherwise.
	now func() float64
}

func New(param Param, vehicle geom.VehicleInfo) *PathOptimizer {
	return &PathOptimizer{
		param:   param,
		vehicle: vehicle,
		mpt:     mpt.NewOptimizer(param.MPT, param.EgoNearest, vehicle),
		replan:  NewReplanChecker(param.Replan),
		now: func() float64 {
			return float64(time.Now().UnixNano()) / float64(time.Second)
		},
	}
}

// OptimizePath runs one planning tick and returns the output trajectory.
func (p *PathOptimizer) OptimizePath(
	pathPoints []geom.PathPoint,
	leftBound, rightBound []geom.Point,
	egoPose geom.Pose,
	egoVelocity float64,
) []geom.TrajectoryPoint {
	return p.OptimizePathDetailed(pathPoints, leftBound, rightBound, egoPose, egoVelocity).Trajectory
}

// OptimizePathDetailed runs one planning tick and returns the full result
// including reference points and solver diagnostics.
func (p *PathOptimizer) OptimizePathDetailed(
	pathPoints []geom.PathPoint,
	leftBound, rightBound []geom.Point,
	egoPose geom.Pose,
	egoVelocity float64,
) OptimizationResult {
	start := time.Now()
	result := func(r OptimizationResult) OptimizationResult {
		r.ComputationTimeMS = float64(time.Since(start)) / float64(time.Millisecond)
		return r
	}

	if len(pathPoints) < 2 {
		return result(OptimizationResult{
			Success:      false,
			ErrorMessage: "empty input: fewer than two path points",
		})
	}

	inputTraj := convertPathToTrajectory(pathPoints)
	nowSec := p.now()

	if p.param.EnableSkipOptimization {
		out := p.postprocess(inputTraj, pathPoints, leftBound, rightBound, egoPose)
		return result(OptimizationResult{Trajectory: out, Success: true})
	}

	replanRequired := p.replan.IsReplanRequired(inputTraj, egoPose, nowSec)
	if !replanRequired && p.prevOptimizedTraj != nil {
		return result(OptimizationResult{
			Trajectory:      p.prevOptimizedTraj,
			ReferencePoints: p.mpt.ReferencePoints(),
			Success:         true,
			Replanned:       false,
			QP:              p.mpt.LastDiagnostics(),
		})
	}

	if p.param.EnableResetPrevOptimization {
		p.mpt.ResetWarmStart()
	}

	optimized, err := p.mpt.Optimize(inputTraj, leftBound, rightBound, egoPose, egoVelocity)
	if err != nil {
		slog.Warn("optimization failed", "error", err)
		fallback := p.prevOptimizedTraj
		if fallback == nil {
			// Pass the resampled input through so downstream consumers
			// still get a drivable reference.
			fallback = p.postprocess(inputTraj, pathPoints, leftBound, rightBound, egoPose)
		}
		p.replan.Reset()
		return result(OptimizationResult{
			Trajectory:   fallback,
			Success:      false,
			ErrorMessage: err.Error(),
			Replanned:    true,
			QP:           p.mpt.LastDiagnostics(),
		})
	}

	out := p.postprocess(optimized, pathPoints, leftBound, rightBound, egoPose)

	p.replan.UpdatePreviousData(inputTraj, egoPose, nowSec)
	p.prevOptimizedTraj = out

	return result(OptimizationResult{
		Trajectory:      out,
		ReferencePoints: p.mpt.ReferencePoints(),
		Success:         true,
		Replanned:       true,
		QP:              p.mpt.LastDiagnostics(),
	})
}

// ReferencePoints exposes the reference points of the last optimization for
// debugging and visualization.
func (p *PathOptimizer) ReferencePoints() []mpt.ReferencePoint {
	return p.mpt.ReferencePoints()
}

// Reset drops all cross-tick state: warm start memory, replan history, and
// the previous trajectory.
func (p *PathOptimizer) Reset() {
	p.mpt.ResetWarmStart()
	p.replan.Reset()
	p.prevOptimizedTraj = nil
}

func convertPathToTrajectory(pathPoints []geom.PathPoint) []geom.TrajectoryPoint {
	traj := make([]geom.TrajectoryPoint, len(pathPoints))
	for i, p := range pathPoints {
		traj[i] = geom.TrajectoryPoint{
			Pose:                 p.Pose,
			LongitudinalVelocity: p.LongitudinalVelocity,
			LateralVelocity:      p.LateralVelocity,
			HeadingRate:          p.HeadingRate,
		}
	}
	return traj
}
