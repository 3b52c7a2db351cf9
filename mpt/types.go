// Package mpt implements model predictive trajectory optimization: reference
// points are sampled along the input path, a kinematic bicycle model is
// linearized per segment into a time-indexed state-space recurrence, and a
// sparse quadratic program over the steering inputs is solved subject to
// drivable-area and steering limits.
package mpt

import (
	"pathd.dev/pathd/geom"
)

// Bounds is the lateral free-space interval at a reference point, in the
// local normal frame. Lower is toward the right boundary, Upper toward the
// left.
type Bounds struct {
	Lower float64
	Upper float64
}

// KinematicState is the optimization state in the reference-point Frenet
// frame: signed lateral error in meters and signed yaw error in radians.
type KinematicState struct {
	Lat float64
	Yaw float64
}

// ReferencePoint is the per-sample geometric work unit of the optimizer.
type ReferencePoint struct {
	Pose                 geom.Pose
	LongitudinalVelocity float64

	Curvature      float64
	DeltaArcLength float64 // arc length from the previous point, 0 at index 0
	// Alpha is the heading correction between the rear axle and the
	// optimization center offset ahead of it.
	Alpha float64
	// NormalizedAvoidanceCost in [0,1] drives the adaptive weight
	// interpolation when avoidance is enabled.
	NormalizedAvoidanceCost float64
	Bounds                  Bounds

	// FixedKinematicState pins this point to the ego state; set on at most
	// one point per tick (the anchor).
	FixedKinematicState *KinematicState

	OptimizedKinematicState KinematicState
	OptimizedInput          float64
}

// EgoNearestParam gates the search for the reference point anchored to the
// ego pose.
type EgoNearestParam struct {
	DistThreshold float64 `yaml:"dist_threshold"`
	YawThreshold  float64 `yaml:"yaw_threshold"`
}

// DefaultEgoNearestParam returns the stock gates (3 m, ~60 degrees).
func DefaultEgoNearestParam() EgoNearestParam {
	return EgoNearestParam{
		DistThreshold: 3.0,
		YawThreshold:  1.046,
	}
}

// Param holds the optimizer tuning. Weights apply to the squared error
// terms of the objective; limits are hard constraint rows.
type Param struct {
	NumPoints             int     `yaml:"num_points"`
	DeltaArcLength        float64 `yaml:"delta_arc_length"`
	MaxOptimizationTimeMS float64 `yaml:"max_optimization_time_ms"`
	EpsAbs                float64 `yaml:"eps_abs"`

	LatErrorWeight     float64 `yaml:"lat_error_weight"`
	YawErrorWeight     float64 `yaml:"yaw_error_weight"`
	YawErrorRateWeight float64 `yaml:"yaw_error_rate_weight"`
	SteerInputWeight   float64 `yaml:"steer_input_weight"`
	SteerRateWeight    float64 `yaml:"steer_rate_weight"`
	LInfWeight         float64 `yaml:"l_inf_weight"`

	TerminalLatErrorWeight  float64 `yaml:"terminal_lat_error_weight"`
	TerminalYawErrorWeight  float64 `yaml:"terminal_yaw_error_weight"`
	GoalLatErrorWeight      float64 `yaml:"goal_lat_error_weight"`
	GoalYawErrorWeight      float64 `yaml:"goal_yaw_error_weight"`
	AvoidanceLatErrorWeight float64 `yaml:"avoidance_lat_error_weight"`
	AvoidanceYawErrorWeight float64 `yaml:"avoidance_yaw_error_weight"`

	OptimizationCenterOffset float64 `yaml:"optimization_center_offset"`

	MaxSteer     float64 `yaml:"max_steer"`
	MaxSteerRate float64 `yaml:"max_steer_rate"`

	EnableAvoidance         bool    `yaml:"enable_avoidance"`
	AvoidancePrecision      float64 `yaml:"avoidance_precision"`
	SoftCollisionFreeWeight float64 `yaml:"soft_collision_free_weight"`

	EnableTerminalConstraint  bool    `yaml:"enable_terminal_constraint"`
	TerminalLatErrorThreshold float64 `yaml:"terminal_lat_error_threshold"`
	TerminalYawErrorThreshold float64 `yaml:"terminal_yaw_error_threshold"`
}

// DefaultParam returns the stock tuning. OptimizationCenterOffset is left at
// zero here; config derives it from the wheelbase when unset.
func DefaultParam() Param {
	return Param{
		NumPoints:             100,
		DeltaArcLength:        1.0,
		MaxOptimizationTimeMS: 50,
		EpsAbs:                1e-6,

		LatErrorWeight:     1.0,
		YawErrorWeight:     0.0,
		YawErrorRateWeight: 0.0,
		SteerInputWeight:   0.1,
		SteerRateWeight:    1.0,
		LInfWeight:         1.0,

		TerminalLatErrorWeight:  100.0,
		TerminalYawErrorWeight:  0.0,
		GoalLatErrorWeight:      1000.0,
		GoalYawErrorWeight:      0.0,
		AvoidanceLatErrorWeight: 0.0,
		AvoidanceYawErrorWeight: 0.0,

		MaxSteer:     0.7,
		MaxSteerRate: 0.5,

		EnableAvoidance:         true,
		AvoidancePrecision:      0.5,
		SoftCollisionFreeWeight: 1000.0,

		EnableTerminalConstraint:  true,
		TerminalLatErrorThreshold: 0.3,
		TerminalYawErrorThreshold: 0.1,
	}
}
