// Package planner drives the per-tick optimization pipeline: replan
// gating, the MPT solve, output resampling and control-field computation,
// and the drivable-area stop guard.
package planner

import (
	"pathd.dev/pathd/mpt"
)

// TrajectoryParam shapes the output trajectory.
type TrajectoryParam struct {
	OutputDeltaArcLength     float64 `yaml:"output_delta_arc_length"`
	OutputBackwardTrajLength float64 `yaml:"output_backward_traj_length"`
	NumSamplingPoints        int     `yaml:"num_sampling_points"`
}

// ReplanParam bounds how far the world may drift before the previous
// trajectory is discarded.
type ReplanParam struct {
	MaxPathShapeChangeDist float64 `yaml:"max_path_shape_change_dist"`
	MaxEgoMovingDist       float64 `yaml:"max_ego_moving_dist"`
	MaxDeltaTimeSec        float64 `yaml:"max_delta_time_sec"`
}

// Param is the complete planner configuration.
type Param struct {
	Trajectory TrajectoryParam     `yaml:"trajectory"`
	EgoNearest mpt.EgoNearestParam `yaml:"ego_nearest"`
	MPT        mpt.Param           `yaml:"mpt"`
	Replan     ReplanParam         `yaml:"replan"`

	EnableOutsideDrivableAreaStop        bool    `yaml:"enable_outside_drivable_area_stop"`
	VehicleStopMarginOutsideDrivableArea float64 `yaml:"vehicle_stop_margin_outside_drivable_area"`
	EnableSkipOptimization               bool    `yaml:"enable_skip_optimization"`
	EnableResetPrevOptimization          bool    `yaml:"enable_reset_prev_optimization"`
}

// DefaultParam returns the stock planner tuning.
func DefaultParam() Param {
	return Param{
		Trajectory: TrajectoryParam{
			OutputDeltaArcLength:     0.5,
			OutputBackwardTrajLength: 2.0,
			NumSamplingPoints:        100,
		},
		EgoNearest: mpt.DefaultEgoNearestParam(),
		MPT:        mpt.DefaultParam(),
		Replan: ReplanParam{
			MaxPathShapeChangeDist: 0.5,
			MaxEgoMovingDist:       5.0,
			MaxDeltaTimeSec:        2.0,
		},
		EnableOutsideDrivableAreaStop:        true,
		VehicleStopMarginOutsideDrivableArea: 0.5,
		EnableSkipOptimization:               false,
		EnableResetPrevOptimization:          true,
	}
}
