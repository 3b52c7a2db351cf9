package geom

// Point is a position in a local Cartesian frame, in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a unit quaternion orientation.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// PathPoint is a point on the coarse reference path handed to the optimizer.
type PathPoint struct {
	Pose                 Pose    `json:"pose"`
	LongitudinalVelocity float64 `json:"longitudinal_velocity_mps"`
	LateralVelocity      float64 `json:"lateral_velocity_mps"`
	HeadingRate          float64 `json:"heading_rate_rps"`
}

// TrajectoryPoint is an optimized output point. Velocities are in m/s,
// heading rate in rad/s, acceleration in m/s^2, wheel angles in rad.
type TrajectoryPoint struct {
	Pose                 Pose    `json:"pose"`
	LongitudinalVelocity float64 `json:"longitudinal_velocity_mps"`
	LateralVelocity      float64 `json:"lateral_velocity_mps"`
	HeadingRate          float64 `json:"heading_rate_rps"`
	Acceleration         float64 `json:"acceleration_mps2"`
	FrontWheelAngle      float64 `json:"front_wheel_angle_rad"`
	RearWheelAngle       float64 `json:"rear_wheel_angle_rad"`
}

// VehicleInfo describes the ego vehicle footprint and steering limits.
type VehicleInfo struct {
	WheelBase     float64 `yaml:"wheel_base" json:"wheel_base"`
	FrontOverhang float64 `yaml:"front_overhang" json:"front_overhang"`
	RearOverhang  float64 `yaml:"rear_overhang" json:"rear_overhang"`
	Width         float64 `yaml:"width" json:"width"`
	Length        float64 `yaml:"length" json:"length"`
	MaxSteerAngle float64 `yaml:"max_steer_angle" json:"max_steer_angle"`
}
