package fresnel

import "fmt"

// Field is a complex optical field over an N x N grid, stored row-major.
type Field struct {
	N    int
	Data []complex128
}

// NewField allocates a zero field.
func NewField(n int) *Field {
	return &Field{N: n, Data: make([]complex128, n*n)}
}

func (f *Field) At(row, col int) complex128 {
	return f.Data[row*f.N+col]
}

// Shape returns (rows, cols).
func (f *Field) Shape() (int, int) {
	return f.N, f.N
}

// Energy is the sum of |U|² over the grid.
func (f *Field) Energy() float64 {
	sum := 0.0
	for _, v := range f.Data {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return sum
}

// Intensity returns |U|² row-major.
func (f *Field) Intensity() []float64 {
	out := make([]float64, len(f.Data))
	for i, v := range f.Data {
		out[i] = real(v)*real(v) + imag(v)*imag(v)
	}
	return out
}

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	c := NewField(f.N)
	copy(c.Data, f.Data)
	return c
}

func (f *Field) validate() error {
	if f == nil || f.N <= 0 || len(f.Data) != f.N*f.N {
		return fmt.Errorf("%w: field must be a non-empty square array", ErrShapeMismatch)
	}
	return nil
}
