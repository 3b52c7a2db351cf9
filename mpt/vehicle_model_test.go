package mpt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const testWheelBase = 2.79

func TestLinearizedMatricesStraight(t *testing.T) {
	v := NewVehicleModel(testWheelBase, 0.7)
	ad, bd, wd := v.LinearizedMatrices(0, 1.5)

	assert.InDelta(t, 1.0, ad.At(0, 0), 1e-12)
	assert.InDelta(t, 1.5, ad.At(0, 1), 1e-12)
	assert.InDelta(t, 0.0, ad.At(1, 0), 1e-12)
	assert.InDelta(t, 1.0, ad.At(1, 1), 1e-12)

	assert.InDelta(t, 0.0, bd.At(0, 0), 1e-12)
	assert.InDelta(t, 1.5/testWheelBase, bd.At(1, 0), 1e-12)

	// Zero curvature has no drift.
	assert.InDelta(t, 0.0, wd.AtVec(0), 1e-12)
	assert.InDelta(t, 0.0, wd.AtVec(1), 1e-12)
}

func TestLinearizedMatricesCurved(t *testing.T) {
	v := NewVehicleModel(testWheelBase, 0.7)
	curvature := 0.05
	ds := 1.0
	_, bd, wd := v.LinearizedMatrices(curvature, ds)

	delta := math.Atan(testWheelBase * curvature)
	cos := math.Cos(delta)
	assert.InDelta(t, ds/testWheelBase/(cos*cos), bd.At(1, 0), 1e-12)

	want := -ds*curvature + ds/testWheelBase*(math.Tan(delta)-delta/(cos*cos))
	assert.InDelta(t, want, wd.AtVec(1), 1e-12)
}

func TestDriftClampsToSteerLimit(t *testing.T) {
	limit := 0.3
	v := NewVehicleModel(testWheelBase, limit)
	// Curvature implying steering far past the limit.
	curvature := 2.0
	ds := 1.0
	_, _, wd := v.LinearizedMatrices(curvature, ds)

	cos := math.Cos(limit)
	want := -ds*curvature + ds/testWheelBase*(math.Tan(limit)-limit/(cos*cos))
	assert.InDelta(t, want, wd.AtVec(1), 1e-12)
	assert.False(t, math.IsInf(wd.AtVec(1), 0))
}

func TestSteadyStateSteerOnArc(t *testing.T) {
	// On an arc of radius R with zero error, u = atan(L/R) holds the state.
	v := NewVehicleModel(testWheelBase, 0.7)
	radius := 50.0
	curvature := 1 / radius
	_, bd, wd := v.LinearizedMatrices(curvature, 1.0)

	u := math.Atan(testWheelBase / radius)
	yawErrStep := bd.At(1, 0)*u + wd.AtVec(1)
	assert.InDelta(t, 0.0, yawErrStep, 1e-12)
}

func TestCalcMatrixMatchesStepRecurrence(t *testing.T) {
	v := NewVehicleModel(testWheelBase, 0.7)
	gen := NewStateEquationGenerator(v)

	refs := []ReferencePoint{
		{Curvature: 0.00},
		{Curvature: 0.02, DeltaArcLength: 1.0},
		{Curvature: 0.04, DeltaArcLength: 1.2},
		{Curvature: 0.01, DeltaArcLength: 0.8},
	}
	initial := KinematicState{Lat: 0.5, Yaw: 0.1}
	se := gen.CalcMatrix(refs, initial)

	u := []float64{0.05, -0.02, 0.1}
	x := gen.Predict(se, mat.NewVecDense(len(u), u))

	// Propagate the per-segment recurrence directly.
	lat, yaw := initial.Lat, initial.Yaw
	assert.InDelta(t, lat, x.AtVec(0), 1e-12)
	assert.InDelta(t, yaw, x.AtVec(1), 1e-12)
	for i := 1; i < len(refs); i++ {
		ad, bd, wd := v.LinearizedMatrices(refs[i-1].Curvature, refs[i].DeltaArcLength)
		nlat := ad.At(0, 0)*lat + ad.At(0, 1)*yaw + bd.At(0, 0)*u[i-1] + wd.AtVec(0)
		nyaw := ad.At(1, 0)*lat + ad.At(1, 1)*yaw + bd.At(1, 0)*u[i-1] + wd.AtVec(1)
		lat, yaw = nlat, nyaw
		assert.InDelta(t, lat, x.AtVec(i*2), 1e-9, "lat at %d", i)
		assert.InDelta(t, yaw, x.AtVec(i*2+1), 1e-9, "yaw at %d", i)
	}
}

func TestCalcMatrixInputStructure(t *testing.T) {
	v := NewVehicleModel(testWheelBase, 0.7)
	gen := NewStateEquationGenerator(v)

	refs := make([]ReferencePoint, 4)
	for i := 1; i < 4; i++ {
		refs[i].DeltaArcLength = 1.0
	}
	se := gen.CalcMatrix(refs, KinematicState{})

	nx, nu := se.B.Dims()
	require.Equal(t, 8, nx)
	require.Equal(t, 3, nu)

	// Input k first reaches the state at point k+1 and never earlier.
	for k := 0; k < nu; k++ {
		for i := 0; i <= k; i++ {
			assert.Equal(t, 0.0, se.B.At(i*2, k))
			assert.Equal(t, 0.0, se.B.At(i*2+1, k))
		}
		assert.NotEqual(t, 0.0, se.B.At((k+1)*2+1, k))
	}
}
