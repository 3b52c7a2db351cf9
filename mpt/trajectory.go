package mpt

import (
	"pathd.dev/pathd/geom"
)

// convertToTrajectory maps each optimized kinematic state back to a pose:
// the reference position is offset by the lateral error along the normal,
// and the heading corrected by the yaw error plus the optimization-center
// alpha. Wheel angles carry the optimized steering input.
func (o *Optimizer) convertToTrajectory(refs []ReferencePoint) []geom.TrajectoryPoint {
	traj := make([]geom.TrajectoryPoint, len(refs))
	for i, ref := range refs {
		state := ref.OptimizedKinematicState
		pose := ref.Pose.OffsetPose(0, state.Lat)
		yaw := geom.NormalizeAngle(ref.Pose.Yaw() + state.Yaw + ref.Alpha)
		pose.Orientation = geom.QuaternionFromYaw(yaw)

		traj[i] = geom.TrajectoryPoint{
			Pose:                 pose,
			LongitudinalVelocity: ref.LongitudinalVelocity,
			FrontWheelAngle:      ref.OptimizedInput,
			RearWheelAngle:       0,
		}
	}
	return traj
}
