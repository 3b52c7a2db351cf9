// Package qp solves sparse convex quadratic programs of the form
//
//	min 1/2 x'Px + q'x   s.t.   l <= Ax <= u
//
// with an ADMM iteration in the style of operator-splitting interior
// solvers: a quasi-definite KKT system factorized once per sparsity
// pattern, value-only matrix updates, and warm starting across solves.
package qp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CSCMatrix is a matrix in compressed sparse column storage: for column j,
// the entries are Vals[ColPtrs[j]:ColPtrs[j+1]] at rows
// RowIdxs[ColPtrs[j]:ColPtrs[j+1]].
type CSCMatrix struct {
	Vals    []float64
	RowIdxs []int64
	ColPtrs []int64
	Rows    int
	Cols    int
}

// NewCSCMatrix converts a dense matrix, dropping exact zeros.
func NewCSCMatrix(m mat.Matrix) CSCMatrix {
	rows, cols := m.Dims()
	csc := CSCMatrix{Rows: rows, Cols: cols}
	csc.ColPtrs = make([]int64, 0, cols+1)
	csc.ColPtrs = append(csc.ColPtrs, 0)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			v := m.At(i, j)
			if v != 0 {
				csc.Vals = append(csc.Vals, v)
				csc.RowIdxs = append(csc.RowIdxs, int64(i))
			}
		}
		csc.ColPtrs = append(csc.ColPtrs, int64(len(csc.Vals)))
	}
	return csc
}

// NewCSCMatrixTrapezoidal converts only the upper-triangular part (diagonal
// included) of a symmetric matrix, the storage form the objective matrix P
// is consumed in.
func NewCSCMatrixTrapezoidal(m mat.Matrix) CSCMatrix {
	rows, cols := m.Dims()
	csc := CSCMatrix{Rows: rows, Cols: cols}
	csc.ColPtrs = make([]int64, 0, cols+1)
	csc.ColPtrs = append(csc.ColPtrs, 0)
	for j := 0; j < cols; j++ {
		for i := 0; i <= j && i < rows; i++ {
			v := m.At(i, j)
			if v != 0 {
				csc.Vals = append(csc.Vals, v)
				csc.RowIdxs = append(csc.RowIdxs, int64(i))
			}
		}
		csc.ColPtrs = append(csc.ColPtrs, int64(len(csc.Vals)))
	}
	return csc
}

// Dense expands the stored entries back into a dense matrix. A trapezoidal
// matrix is symmetrized, so that Dense is an inverse of both constructors
// for symmetric input.
func (c CSCMatrix) Dense(symmetric bool) *mat.Dense {
	d := mat.NewDense(c.Rows, c.Cols, nil)
	for j := 0; j < c.Cols; j++ {
		for k := c.ColPtrs[j]; k < c.ColPtrs[j+1]; k++ {
			i := int(c.RowIdxs[k])
			d.Set(i, j, c.Vals[k])
			if symmetric && i != j {
				d.Set(j, i, c.Vals[k])
			}
		}
	}
	return d
}

// SamePattern reports whether two matrices share dimensions and sparsity
// structure, the precondition for value-only updates.
func (c CSCMatrix) SamePattern(other CSCMatrix) bool {
	if c.Rows != other.Rows || c.Cols != other.Cols {
		return false
	}
	if len(c.Vals) != len(other.Vals) || len(c.ColPtrs) != len(other.ColPtrs) {
		return false
	}
	for i := range c.ColPtrs {
		if c.ColPtrs[i] != other.ColPtrs[i] {
			return false
		}
	}
	for i := range c.RowIdxs {
		if c.RowIdxs[i] != other.RowIdxs[i] {
			return false
		}
	}
	return true
}

// Nonzeros returns the number of stored entries.
func (c CSCMatrix) Nonzeros() int {
	return len(c.Vals)
}

// mulVec computes dst = c * x without densifying.
func (c CSCMatrix) mulVec(dst, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for j := 0; j < c.Cols; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := c.ColPtrs[j]; k < c.ColPtrs[j+1]; k++ {
			dst[c.RowIdxs[k]] += c.Vals[k] * xj
		}
	}
}

// mulVecT computes dst = c' * x without densifying.
func (c CSCMatrix) mulVecT(dst, x []float64) {
	for j := 0; j < c.Cols; j++ {
		sum := 0.0
		for k := c.ColPtrs[j]; k < c.ColPtrs[j+1]; k++ {
			sum += c.Vals[k] * x[c.RowIdxs[k]]
		}
		dst[j] = sum
	}
}

// symMulVec computes dst = c * x where c stores only the upper triangle of a
// symmetric matrix.
func (c CSCMatrix) symMulVec(dst, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for j := 0; j < c.Cols; j++ {
		for k := c.ColPtrs[j]; k < c.ColPtrs[j+1]; k++ {
			i := int(c.RowIdxs[k])
			dst[i] += c.Vals[k] * x[j]
			if i != j {
				dst[j] += c.Vals[k] * x[i]
			}
		}
	}
}

func infNorm(v []float64) float64 {
	maxAbs := 0.0
	for _, x := range v {
		a := math.Abs(x)
		if a > maxAbs {
			maxAbs = a
		}
	}
	return maxAbs
}
