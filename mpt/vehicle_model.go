package mpt

import (
	m "math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// VehicleModel linearizes kinematic bicycle dynamics around the reference
// steering angle of each path segment. The state is [lateral_error,
// yaw_error], the input is [steering_angle].
type VehicleModel struct {
	wheelBase  float64
	steerLimit float64
}

func NewVehicleModel(wheelBase, steerLimit float64) *VehicleModel {
	return &VehicleModel{wheelBase: wheelBase, steerLimit: steerLimit}
}

func (v *VehicleModel) DimX() int { return 2 }
func (v *VehicleModel) DimU() int { return 1 }

func (v *VehicleModel) WheelBase() float64  { return v.wheelBase }
func (v *VehicleModel) SteerLimit() float64 { return v.steerLimit }

// LinearizedMatrices returns the discrete one-step matrices (Ad, Bd, Wd) of
// x_{k+1} = Ad x_k + Bd u_k + Wd for a segment of length ds at the given
// signed path curvature.
//
// The reference steering angle atan(L*kappa) is clamped to the steering
// limit in the drift term only, which keeps the affine offset finite when
// the curvature implies infeasible steering while leaving the input
// response smooth.
func (v *VehicleModel) LinearizedMatrices(curvature, ds float64) (ad, bd *mat.Dense, wd *mat.VecDense) {
	deltaRef := m.Atan(v.wheelBase * curvature)
	deltaRefClamped := lo.Clamp(deltaRef, -v.steerLimit, v.steerLimit)

	ad = mat.NewDense(2, 2, []float64{
		1, ds,
		0, 1,
	})

	cosDelta := m.Cos(deltaRef)
	bd = mat.NewDense(2, 1, []float64{
		0,
		ds / v.wheelBase / (cosDelta * cosDelta),
	})

	tanClamped := m.Tan(deltaRefClamped)
	cosClamped := m.Cos(deltaRefClamped)
	wd = mat.NewVecDense(2, []float64{
		0,
		-ds*curvature + ds/v.wheelBase*(tanClamped-deltaRefClamped/(cosClamped*cosClamped)),
	})

	return ad, bd, wd
}
