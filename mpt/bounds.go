package mpt

import (
	m "math"

	"pathd.dev/pathd/geom"
)

// updateBounds projects the left and right drivable boundaries onto the
// normal at each reference point and insets the crossings by half the
// vehicle width. When a boundary does not cross a normal (too short, or the
// point is past its end) the previous valid bound is carried, or infinity
// when there is none yet.
func (o *Optimizer) updateBounds(refs []ReferencePoint, leftBound, rightBound []geom.Point) {
	halfWidth := o.vehicle.Width / 2

	prev := Bounds{Lower: m.Inf(-1), Upper: m.Inf(1)}
	for i := range refs {
		yaw := refs[i].Pose.Yaw()
		normal := geom.Point{X: -m.Sin(yaw), Y: m.Cos(yaw)}
		origin := refs[i].Pose.Position

		upper := prev.Upper
		if t, ok := nearestCrossing(origin, normal, leftBound); ok {
			upper = t - halfWidth
		}
		lower := prev.Lower
		if t, ok := nearestCrossing(origin, normal, rightBound); ok {
			lower = t + halfWidth
		}

		refs[i].Bounds = Bounds{Lower: lower, Upper: upper}
		prev = refs[i].Bounds
	}
}

// nearestCrossing intersects the normal line with every segment of the
// boundary polyline and returns the signed offset of the crossing closest
// to the reference point.
func nearestCrossing(origin, dir geom.Point, boundary []geom.Point) (float64, bool) {
	best := 0.0
	found := false
	for i := 0; i+1 < len(boundary); i++ {
		t, ok := geom.IntersectLineSegment(origin, dir, boundary[i], boundary[i+1])
		if !ok {
			continue
		}
		if !found || m.Abs(t) < m.Abs(best) {
			best = t
			found = true
		}
	}
	return best, found
}
