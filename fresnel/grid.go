package fresnel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid is a square N x N sampling lattice over a window of side L centred at the origin.
type Grid struct {
	N  int
	L  float64
	Dx float64 // Sample spacing used by the propagator, L/N

	X []float64 // N samples covering [-L/2, L/2], both ends included
	Y []float64
}

// NewGrid builds the lattice. N must be positive and even so that N/2 is the row
// nearest y=0 used for section planes.
func NewGrid(n int, l float64) (*Grid, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: N=%d must be positive", ErrInvalidGrid, n)
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: N=%d must be even", ErrInvalidGrid, n)
	}
	if !(l > 0) || math.IsInf(l, 1) {
		return nil, fmt.Errorf("%w: L=%g must be positive and finite", ErrInvalidGrid, l)
	}

	x := floats.Span(make([]float64, n), -l/2, l/2)
	x[n-1] = l / 2 // pin the far end exactly
	y := make([]float64, n)
	copy(y, x)

	return &Grid{
		N:  n,
		L:  l,
		Dx: l / float64(n),
		X:  x,
		Y:  y,
	}, nil
}

// Mesh returns the 2-D coordinate arrays. X[row][col] = x[col], Y[row][col] = y[row].
func (g *Grid) Mesh() (X, Y [][]float64) {
	X = make([][]float64, g.N)
	Y = make([][]float64, g.N)
	for row := 0; row < g.N; row++ {
		X[row] = make([]float64, g.N)
		Y[row] = make([]float64, g.N)
		copy(X[row], g.X)
		for col := 0; col < g.N; col++ {
			Y[row][col] = g.Y[row]
		}
	}
	return X, Y
}

// Center is the index of the row (and column) nearest the optical axis.
func (g *Grid) Center() int {
	return g.N / 2
}
