// Package sim replays a scenario against the planner: each tick the ego is
// advanced along the latest output trajectory and the planner is asked
// again, which exercises warm starts and the replan gate the same way a
// live vehicle loop would.
package sim

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"pathd.dev/pathd/geom"
	"pathd.dev/pathd/planner"
	"pathd.dev/pathd/scenario"
)

// TickResult is what one planning cycle produced.
type TickResult struct {
	Tick   int
	Ego    geom.Pose
	Result planner.OptimizationResult
}

// Runner owns the planner instance and the moving ego state.
type Runner struct {
	scen      scenario.Scenario
	optimizer *planner.PathOptimizer

	egoPose     geom.Pose
	egoVelocity float64
	tick        int
}

func NewRunner(scen scenario.Scenario, cfgParam planner.Param, vehicle geom.VehicleInfo) *Runner {
	return &Runner{
		scen:        scen,
		optimizer:   planner.New(cfgParam, vehicle),
		egoPose:     scen.Ego.Pose,
		egoVelocity: scen.Ego.Velocity,
	}
}

// Step runs one planning cycle and advances the ego along the result by
// velocity*dt.
func (r *Runner) Step(dt float64) TickResult {
	res := r.optimizer.OptimizePathDetailed(
		r.scen.PathPoints, r.scen.LeftBound, r.scen.RightBound,
		r.egoPose, r.egoVelocity,
	)
	tr := TickResult{Tick: r.tick, Ego: r.egoPose, Result: res}
	r.tick++
	r.advance(res.Trajectory, dt)
	return tr
}

// Run executes ticks planning cycles at the given interval, reporting each
// result through onTick. A zero interval runs as fast as possible.
func (r *Runner) Run(ctx context.Context, ticks int, interval time.Duration, onTick func(TickResult)) error {
	dt := interval.Seconds()
	if dt <= 0 {
		dt = 0.1
	}
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "simulation cancelled")
		default:
		}
		tr := r.Step(dt)
		if onTick != nil {
			onTick(tr)
		}
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	return nil
}

// advance moves the ego along the trajectory by the travelled distance and
// aligns its heading with the local segment.
func (r *Runner) advance(traj []geom.TrajectoryPoint, dt float64) {
	if len(traj) < 2 {
		return
	}
	poses := make([]geom.Pose, len(traj))
	for i, p := range traj {
		poses[i] = p.Pose
	}
	idx := geom.NearestIndex(poses, r.egoPose)

	remaining := r.egoVelocity * dt
	pos := r.egoPose.Position
	for idx+1 < len(traj) && remaining > 0 {
		target := traj[idx+1].Pose.Position
		d := pos.DistanceTo(target)
		if d > remaining {
			dir := target.Subtract(pos).Scale(1 / d)
			pos = pos.Add(dir.Scale(remaining))
			remaining = 0
		} else {
			pos = target
			remaining -= d
			idx++
		}
	}
	yaw := traj[idx].Pose.Yaw()
	r.egoPose = geom.PoseFromXYYaw(pos.X, pos.Y, yaw)
}

// Ego returns the current simulated ego pose.
func (r *Runner) Ego() geom.Pose { return r.egoPose }

// Scenario returns the scene being replayed.
func (r *Runner) Scenario() scenario.Scenario { return r.scen }
