package fresnel

import (
	"fmt"
	"math"
)

// Shape classifies a point of the input plane as transmitting or blocking.
// Boundary points are transmitting: every predicate uses <=.
type Shape interface {
	Transmits(x, y float64) bool
}

// ShapeFunc adapts a plain predicate to Shape.
type ShapeFunc func(x, y float64) bool

func (f ShapeFunc) Transmits(x, y float64) bool { return f(x, y) }

// Circle is a circular stop of the given radius centred at the origin.
type Circle struct {
	Radius float64
}

func (c Circle) Transmits(x, y float64) bool {
	return x*x+y*y <= c.Radius*c.Radius
}

// HorizontalSlit is narrow in y and unbounded in x.
type HorizontalSlit struct {
	Height float64
}

func (s HorizontalSlit) Transmits(_, y float64) bool {
	return math.Abs(y) <= s.Height/2
}

// VerticalSlit is narrow in x and unbounded in y.
type VerticalSlit struct {
	Width float64
}

func (s VerticalSlit) Transmits(x, _ float64) bool {
	return math.Abs(x) <= s.Width/2
}

// Rectangle is an axis-aligned rectangular stop centred at the origin.
type Rectangle struct {
	Width, Height float64
}

func (r Rectangle) Transmits(x, y float64) bool {
	return math.Abs(x) <= r.Width/2 && math.Abs(y) <= r.Height/2
}

// Ellipse is a rotated ellipse centred at (X0, Y0). MajorAxis and MinorAxis are full
// diameters; the major axis lies along y when ThetaDegrees is zero and turns
// counter-clockwise with increasing ThetaDegrees.
type Ellipse struct {
	X0, Y0               float64
	MajorAxis, MinorAxis float64
	ThetaDegrees         float64
}

func (e Ellipse) Transmits(x, y float64) bool {
	major := e.MajorAxis / 2
	minor := e.MinorAxis / 2
	theta := e.ThetaDegrees * math.Pi / 180.0

	dx := x - e.X0
	dy := y - e.Y0
	// Rotate the point into the ellipse frame.
	u := dx*math.Cos(theta) + dy*math.Sin(theta)
	v := -dx*math.Sin(theta) + dy*math.Cos(theta)

	t1 := u / minor
	t2 := v / major
	return t1*t1+t2*t2 <= 1.0
}

// Union transmits wherever any member transmits (e.g. a main body plus a satellite).
type Union []Shape

func (u Union) Transmits(x, y float64) bool {
	for _, s := range u {
		if s.Transmits(x, y) {
			return true
		}
	}
	return false
}

// Complement is the Babinet counterpart of a shape: an occulter where the shape was an
// opening and vice versa.
type Complement struct {
	Shape Shape
}

func (c Complement) Transmits(x, y float64) bool {
	return !c.Shape.Transmits(x, y)
}

// Aperture is a real transmission mask over a Grid, values in [0, 1], row-major with
// row index following y and column index following x. It is not modified after creation.
type Aperture struct {
	n      int
	values []float64
}

// GenerateAperture samples shape at every grid point, producing exactly 0.0 or 1.0.
func GenerateAperture(shape Shape, g *Grid) (*Aperture, error) {
	if shape == nil {
		return nil, fmt.Errorf("%w: no shape given", ErrInvalidAperture)
	}
	if g == nil || g.N <= 0 || len(g.X) != g.N || len(g.Y) != g.N {
		return nil, fmt.Errorf("%w: aperture needs a populated grid", ErrInvalidGrid)
	}

	values := make([]float64, g.N*g.N)
	for row := 0; row < g.N; row++ {
		y := g.Y[row]
		for col := 0; col < g.N; col++ {
			if shape.Transmits(g.X[col], y) {
				values[row*g.N+col] = 1.0
			}
		}
	}
	return &Aperture{n: g.N, values: values}, nil
}

// MaskAperture builds a (possibly graded) aperture from a square matrix of
// transmissions, such as one read from an image.
func MaskAperture(mask [][]float64) (*Aperture, error) {
	n := len(mask)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty mask", ErrInvalidAperture)
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: mask size %d must be even", ErrInvalidGrid, n)
	}

	values := make([]float64, n*n)
	for row := range mask {
		if len(mask[row]) != n {
			return nil, fmt.Errorf("%w: mask row %d has %d samples, want %d", ErrShapeMismatch, row, len(mask[row]), n)
		}
		for col, v := range mask[row] {
			if math.IsNaN(v) || v < 0 || v > 1 {
				return nil, fmt.Errorf("%w: transmission %g at (%d,%d) is outside [0,1]", ErrInvalidAperture, v, row, col)
			}
			values[row*n+col] = v
		}
	}
	return &Aperture{n: n, values: values}, nil
}

// N is the number of samples per axis.
func (a *Aperture) N() int { return a.n }

// At returns the transmission at (row, col).
func (a *Aperture) At(row, col int) float64 {
	return a.values[row*a.n+col]
}

// OpenFraction is the mean transmission over the window.
func (a *Aperture) OpenFraction() float64 {
	sum := 0.0
	for _, v := range a.values {
		sum += v
	}
	return sum / float64(len(a.values))
}

// Matrix copies the mask into a 2-D slice.
func (a *Aperture) Matrix() [][]float64 {
	m := make([][]float64, a.n)
	for row := range m {
		m[row] = make([]float64, a.n)
		copy(m[row], a.values[row*a.n:(row+1)*a.n])
	}
	return m
}

// Field casts the aperture to a complex field with zero phase.
func (a *Aperture) Field() *Field {
	f := NewField(a.n)
	for i, v := range a.values {
		f.Data[i] = complex(v, 0)
	}
	return f
}
