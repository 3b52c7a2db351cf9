package mpt

import (
	"gonum.org/v1/gonum/mat"
)

// StateEquation is the dense time-series form of the per-segment dynamics,
// propagated so that X = B*U + W over the whole horizon. A holds the block
// subdiagonal of one-step transitions; it is not used once B and W are
// built but is kept for prediction debugging.
type StateEquation struct {
	A *mat.Dense
	B *mat.Dense
	W *mat.VecDense
}

// StateEquationGenerator assembles the horizon matrices from per-segment
// linearizations of the vehicle model.
type StateEquationGenerator struct {
	model *VehicleModel
}

func NewStateEquationGenerator(model *VehicleModel) *StateEquationGenerator {
	return &StateEquationGenerator{model: model}
}

func (g *StateEquationGenerator) DimX() int { return g.model.DimX() }
func (g *StateEquationGenerator) DimU() int { return g.model.DimU() }

// CalcMatrix builds (A, B, W) for the reference points, with the initial
// state absorbed into W so that X = B*U + W. The recurrence per segment i is
//
//	W[i]    = Ad * W[i-1] + Wd
//	B[i, k] = Ad * B[i-1, k]   for k < i-1
//	B[i, i-1] = Bd
func (g *StateEquationGenerator) CalcMatrix(refs []ReferencePoint, initial KinematicState) StateEquation {
	dx := g.model.DimX()
	du := g.model.DimU()

	nRef := len(refs)
	nx := nRef * dx
	nu := (nRef - 1) * du

	a := mat.NewDense(nx, nx, nil)
	b := mat.NewDense(nx, nu, nil)
	w := mat.NewVecDense(nx, nil)

	w.SetVec(0, initial.Lat)
	w.SetVec(1, initial.Yaw)

	for i := 1; i < nRef; i++ {
		prev := refs[i-1]
		ad, bd, wd := g.model.LinearizedMatrices(prev.Curvature, refs[i].DeltaArcLength)

		for r := 0; r < dx; r++ {
			sum := wd.AtVec(r)
			for c := 0; c < dx; c++ {
				sum += ad.At(r, c) * w.AtVec((i-1)*dx+c)
			}
			w.SetVec(i*dx+r, sum)
		}

		for k := 0; k < i-1; k++ {
			for r := 0; r < dx; r++ {
				for cu := 0; cu < du; cu++ {
					sum := 0.0
					for c := 0; c < dx; c++ {
						sum += ad.At(r, c) * b.At((i-1)*dx+c, k*du+cu)
					}
					b.Set(i*dx+r, k*du+cu, sum)
				}
			}
		}
		for r := 0; r < dx; r++ {
			for cu := 0; cu < du; cu++ {
				b.Set(i*dx+r, (i-1)*du+cu, bd.At(r, cu))
			}
		}

		for r := 0; r < dx; r++ {
			for c := 0; c < dx; c++ {
				a.Set(i*dx+r, (i-1)*dx+c, ad.At(r, c))
			}
		}
	}

	return StateEquation{A: a, B: b, W: w}
}

// Predict evaluates X = B*U + W for a given input vector.
func (g *StateEquationGenerator) Predict(se StateEquation, u *mat.VecDense) *mat.VecDense {
	nx, _ := se.B.Dims()
	x := mat.NewVecDense(nx, nil)
	x.MulVec(se.B, u)
	x.AddVec(x, se.W)
	return x
}
