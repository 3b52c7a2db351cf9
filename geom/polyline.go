package geom

import (
	m "math"
)

// ArcLengths returns the cumulative arc length of a polyline, starting at 0.
func ArcLengths(points []Point) []float64 {
	lengths := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		lengths[i] = lengths[i-1] + points[i-1].DistanceTo(points[i])
	}
	return lengths
}

// NearestIndex returns the index of the pose closest to target by position.
func NearestIndex(poses []Pose, target Pose) int {
	minDist := m.MaxFloat64
	minIdx := 0
	for i, p := range poses {
		d := p.Position.DistanceTo(target.Position)
		if d < minDist {
			minDist = d
			minIdx = i
		}
	}
	return minIdx
}

// NearestIndexWithThresholds returns the closest pose index among candidates
// within the distance and yaw gates. The second return is false when no pose
// passes both gates.
func NearestIndexWithThresholds(poses []Pose, target Pose, distThreshold, yawThreshold float64) (int, bool) {
	targetYaw := target.Yaw()
	minDist := m.MaxFloat64
	minIdx := 0
	found := false
	for i, p := range poses {
		d := p.Position.DistanceTo(target.Position)
		if d > distThreshold {
			continue
		}
		if m.Abs(NormalizeAngle(p.Yaw()-targetYaw)) > yawThreshold {
			continue
		}
		if d < minDist {
			minDist = d
			minIdx = i
			found = true
		}
	}
	return minIdx, found
}

type segmentProjection struct {
	Pos Point
	T   float64
}

func projectOntoSegment(start, end, p Point) segmentProjection {
	ab := end.Subtract(start)
	ap := p.Subtract(start)
	den := ab.Dot(ab)
	t := 0.0
	if den > 0 {
		t = ap.Dot(ab) / den
	}
	t = m.Max(0, m.Min(1, t))
	return segmentProjection{Pos: start.Add(ab.Scale(t)), T: t}
}

// PointToPolylineDistance is the distance from p to the nearest point on the
// polyline. A single-point polyline degenerates to point distance.
func PointToPolylineDistance(poly []Point, p Point) float64 {
	if len(poly) == 0 {
		return m.MaxFloat64
	}
	if len(poly) == 1 {
		return poly[0].DistanceTo(p)
	}
	minDist := m.MaxFloat64
	for i := 0; i < len(poly)-1; i++ {
		proj := projectOntoSegment(poly[i], poly[i+1], p)
		d := proj.Pos.DistanceTo(p)
		if d < minDist {
			minDist = d
		}
	}
	return minDist
}

// IntersectLineSegment intersects the infinite line through origin along dir
// with the segment [a, b]. It returns the signed distance t along dir to the
// crossing, or ok=false when the segment is parallel or the crossing falls
// outside [a, b].
func IntersectLineSegment(origin, dir, a, b Point) (float64, bool) {
	e := b.Subtract(a)
	den := dir.Cross(e)
	if m.Abs(den) < 1e-12 {
		return 0, false
	}
	ao := a.Subtract(origin)
	t := ao.Cross(e) / den
	u := ao.Cross(dir) / den
	if u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}
