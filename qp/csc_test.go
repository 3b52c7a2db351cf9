package qp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func denseEqual(t *testing.T, want, got *mat.Dense) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, wr, gr)
	require.Equal(t, wc, gc)
	if diff := cmp.Diff(want.RawMatrix().Data, got.RawMatrix().Data); diff != "" {
		t.Fatalf("matrices differ (-want +got):\n%s", diff)
	}
}

func TestCSCRoundTrip(t *testing.T) {
	d := mat.NewDense(3, 4, []float64{
		1, 0, 2, 0,
		0, 0, 3, 4,
		5, 0, 0, 6,
	})
	c := NewCSCMatrix(d)

	assert.Equal(t, 3, c.Rows)
	assert.Equal(t, 4, c.Cols)
	assert.Equal(t, 6, c.Nonzeros())
	denseEqual(t, d, c.Dense(false))
}

func TestCSCColumnPointers(t *testing.T) {
	d := mat.NewDense(2, 3, []float64{
		1, 0, 2,
		0, 0, 3,
	})
	c := NewCSCMatrix(d)

	// One entry in column 0, none in column 1, two in column 2.
	assert.Equal(t, []int64{0, 1, 1, 3}, c.ColPtrs)
	assert.Equal(t, []int64{0, 0, 1}, c.RowIdxs)
	assert.Equal(t, []float64{1, 2, 3}, c.Vals)
}

func TestTrapezoidalStoresUpperTriangle(t *testing.T) {
	d := mat.NewDense(3, 3, []float64{
		4, 1, 0,
		1, 2, 5,
		0, 5, 3,
	})
	c := NewCSCMatrixTrapezoidal(d)

	// Strictly-lower entries are dropped from storage.
	assert.Equal(t, 5, c.Nonzeros())
	denseEqual(t, d, c.Dense(true))
}

func TestSamePattern(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 2})
	b := mat.NewDense(2, 2, []float64{7, 0, 0, 9})
	c := mat.NewDense(2, 2, []float64{1, 3, 0, 2})

	ca := NewCSCMatrix(a)
	cb := NewCSCMatrix(b)
	cc := NewCSCMatrix(c)

	assert.True(t, ca.SamePattern(cb))
	assert.False(t, ca.SamePattern(cc))
}
