package geom

import (
	m "math"
)

// Yaw extracts the heading angle about +Z from the orientation.
func (q Quaternion) Yaw() float64 {
	return m.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

// QuaternionFromYaw builds a pure-yaw orientation.
func QuaternionFromYaw(yaw float64) Quaternion {
	return Quaternion{Z: m.Sin(yaw / 2), W: m.Cos(yaw / 2)}
}

// NormalizeAngle wraps an angle to (-pi, pi].
func NormalizeAngle(rad float64) float64 {
	wrapped := m.Mod(rad+m.Pi, 2*m.Pi)
	if wrapped < 0 {
		wrapped += 2 * m.Pi
	}
	return wrapped - m.Pi
}

func (p Point) DistanceTo(other Point) float64 {
	return m.Hypot(other.X-p.X, other.Y-p.Y)
}

func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

func (p Point) Subtract(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y, Z: p.Z - other.Z}
}

func (p Point) Scale(factor float64) Point {
	return Point{X: p.X * factor, Y: p.Y * factor, Z: p.Z * factor}
}

func (p Point) Dot(other Point) float64 {
	return p.X*other.X + p.Y*other.Y
}

// Cross is the z component of the 2D cross product.
func (p Point) Cross(other Point) float64 {
	return p.X*other.Y - p.Y*other.X
}

// PoseFromXYYaw is a convenience constructor used by scenario builders
// and tests.
func PoseFromXYYaw(x, y, yaw float64) Pose {
	return Pose{
		Position:    Point{X: x, Y: y},
		Orientation: QuaternionFromYaw(yaw),
	}
}

func (p Pose) Yaw() float64 {
	return p.Orientation.Yaw()
}

// LateralOffset is the signed perpendicular distance from the pose to the
// target point, positive to the left of the pose heading.
func (p Pose) LateralOffset(target Point) float64 {
	yaw := p.Yaw()
	diff := target.Subtract(p.Position)
	return -m.Sin(yaw)*diff.X + m.Cos(yaw)*diff.Y
}

// OffsetPose shifts the pose by (longitudinal, lateral) in its own frame.
func (p Pose) OffsetPose(longitudinal, lateral float64) Pose {
	yaw := p.Yaw()
	return Pose{
		Position: Point{
			X: p.Position.X + longitudinal*m.Cos(yaw) - lateral*m.Sin(yaw),
			Y: p.Position.Y + longitudinal*m.Sin(yaw) + lateral*m.Cos(yaw),
			Z: p.Position.Z,
		},
		Orientation: p.Orientation,
	}
}
