// Package spline implements 1D natural cubic spline interpolation.
//
// Each interval is the cubic s(t) = a + b*dt + c*dt^2 + d*dt^3 with the
// natural boundary condition (zero second derivative at both ends). The
// tridiagonal system for the c coefficients is solved with the Thomas
// algorithm.
package spline

import (
	"sort"

	"github.com/pkg/errors"
)

type CubicSpline struct {
	xs []float64
	ys []float64
	a  []float64
	b  []float64
	c  []float64
	d  []float64
}

// New fits a natural cubic spline through (x, y). The knots must be strictly
// increasing. Fewer than two knots yield a spline that evaluates to zero
// everywhere.
func New(x, y []float64) (*CubicSpline, error) {
	if len(x) != len(y) {
		return nil, errors.Errorf("could not fit spline: %d knots but %d values", len(x), len(y))
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, errors.Errorf("could not fit spline: knots not strictly increasing at index %d", i)
		}
	}

	s := &CubicSpline{}
	n := len(x)
	if n < 2 {
		return s, nil
	}

	s.xs = append([]float64(nil), x...)
	s.ys = append([]float64(nil), y...)
	s.a = append([]float64(nil), y...)
	s.b = make([]float64, n)
	s.c = make([]float64, n)
	s.d = make([]float64, n)

	if n == 2 {
		s.b[0] = (y[1] - y[0]) / (x[1] - x[0])
		s.b[1] = s.b[0]
		return s, nil
	}

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = x[i+1] - x[i]
	}

	alpha := make([]float64, n)
	for i := 1; i < n-1; i++ {
		alpha[i] = 3/h[i]*(y[i+1]-y[i]) - 3/h[i-1]*(y[i]-y[i-1])
	}

	// Thomas algorithm on the tridiagonal system; the natural condition
	// pins c[0] = c[n-1] = 0.
	l := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)
	l[0] = 1
	for i := 1; i < n-1; i++ {
		l[i] = 2*(x[i+1]-x[i-1]) - h[i-1]*mu[i-1]
		mu[i] = h[i] / l[i]
		z[i] = (alpha[i] - h[i-1]*z[i-1]) / l[i]
	}
	l[n-1] = 1

	for i := n - 2; i >= 0; i-- {
		s.c[i] = z[i] - mu[i]*s.c[i+1]
		s.b[i] = (y[i+1]-y[i])/h[i] - h[i]*(s.c[i+1]+2*s.c[i])/3
		s.d[i] = (s.c[i+1] - s.c[i]) / (3 * h[i])
	}
	// Slope at the final knot, used for out-of-range derivative queries.
	hl := h[n-2]
	s.b[n-1] = s.b[n-2] + 2*s.c[n-2]*hl + 3*s.d[n-2]*hl*hl

	return s, nil
}

// Interpolate evaluates the spline at x. Out-of-range queries clamp to the
// endpoint values.
func (s *CubicSpline) Interpolate(x float64) float64 {
	if len(s.xs) == 0 {
		return 0
	}
	if x <= s.xs[0] {
		return s.ys[0]
	}
	if x >= s.xs[len(s.xs)-1] {
		return s.ys[len(s.ys)-1]
	}
	i := s.findSegment(x)
	dx := x - s.xs[i]
	return s.a[i] + s.b[i]*dx + s.c[i]*dx*dx + s.d[i]*dx*dx*dx
}

// Derivative evaluates ds/dx at x. Out-of-range queries clamp to the
// endpoint slopes.
func (s *CubicSpline) Derivative(x float64) float64 {
	if len(s.xs) == 0 {
		return 0
	}
	if x <= s.xs[0] {
		return s.b[0]
	}
	if x >= s.xs[len(s.xs)-1] {
		return s.b[len(s.b)-1]
	}
	i := s.findSegment(x)
	dx := x - s.xs[i]
	return s.b[i] + 2*s.c[i]*dx + 3*s.d[i]*dx*dx
}

// SecondDerivative evaluates d2s/dx2 at x, zero outside the knot range.
func (s *CubicSpline) SecondDerivative(x float64) float64 {
	if len(s.xs) == 0 {
		return 0
	}
	if x <= s.xs[0] || x >= s.xs[len(s.xs)-1] {
		return 0
	}
	i := s.findSegment(x)
	dx := x - s.xs[i]
	return 2*s.c[i] + 6*s.d[i]*dx
}

func (s *CubicSpline) findSegment(x float64) int {
	i := sort.SearchFloat64s(s.xs, x)
	if i >= len(s.xs) {
		return len(s.xs) - 2
	}
	if i == 0 {
		return 0
	}
	return i - 1
}
