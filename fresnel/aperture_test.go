package fresnel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularAperture(t *testing.T) {
	const r = 1e-3
	g, err := NewGrid(64, 4*r)
	require.NoError(t, err)

	ap, err := GenerateAperture(Circle{Radius: r}, g)
	require.NoError(t, err)
	require.Equal(t, 64, ap.N())

	// N is even, so the origin falls between the four central samples.
	c := g.Center()
	assert.Equal(t, 1.0, ap.At(c, c))
	assert.Equal(t, 1.0, ap.At(c-1, c-1))
	assert.Equal(t, 1.0, ap.At(c-1, c))
	assert.Equal(t, 1.0, ap.At(c, c-1))

	for row := 0; row < g.N; row++ {
		for col := 0; col < g.N; col++ {
			v := ap.At(row, col)
			assert.True(t, v == 0 || v == 1, "value %g at (%d,%d) is not binary", v, row, col)

			d := math.Hypot(g.X[col], g.Y[row])
			if d > r+g.Dx {
				assert.Zero(t, v, "(%d,%d) at %g m should be blocked", row, col, d)
			}
			if d < r*(1-1e-9) {
				assert.Equal(t, 1.0, v, "(%d,%d) at %g m should transmit", row, col, d)
			}
		}
	}
}

func TestHorizontalSlitAperture(t *testing.T) {
	const height = 4e-4
	g, err := NewGrid(64, 4*height)
	require.NoError(t, err)

	ap, err := GenerateAperture(HorizontalSlit{Height: height}, g)
	require.NoError(t, err)

	for row := 0; row < g.N; row++ {
		want := 0.0
		if math.Abs(g.Y[row]) <= height/2 {
			want = 1.0
		}
		for col := 0; col < g.N; col++ {
			assert.Equal(t, want, ap.At(row, col), "row %d col %d", row, col)
		}
	}
	assert.Equal(t, 1.0, ap.At(g.Center(), 0), "slit runs across the whole window in x")
}

func TestShapesIncludeBoundary(t *testing.T) {
	assert.True(t, Circle{Radius: 1}.Transmits(1, 0))
	assert.False(t, Circle{Radius: 1}.Transmits(1.0001, 0))

	assert.True(t, HorizontalSlit{Height: 2}.Transmits(1e6, 1))
	assert.False(t, HorizontalSlit{Height: 2}.Transmits(0, 1.0001))

	assert.True(t, VerticalSlit{Width: 2}.Transmits(-1, 1e6))
	assert.False(t, VerticalSlit{Width: 2}.Transmits(-1.0001, 0))

	assert.True(t, Rectangle{Width: 2, Height: 4}.Transmits(1, 2))
	assert.False(t, Rectangle{Width: 2, Height: 4}.Transmits(1, 2.0001))
	assert.False(t, Rectangle{Width: 2, Height: 4}.Transmits(1.0001, 0))
}

func TestEllipse(t *testing.T) {
	upright := Ellipse{MajorAxis: 4, MinorAxis: 2}
	assert.True(t, upright.Transmits(0, 1.9))
	assert.False(t, upright.Transmits(0, 2.1))
	assert.True(t, upright.Transmits(0.9, 0))
	assert.False(t, upright.Transmits(1.1, 0))

	turned := Ellipse{MajorAxis: 4, MinorAxis: 2, ThetaDegrees: 90}
	assert.True(t, turned.Transmits(1.9, 0))
	assert.False(t, turned.Transmits(2.1, 0))
	assert.False(t, turned.Transmits(0, 1.1))

	shifted := Ellipse{X0: 5, Y0: -1, MajorAxis: 2, MinorAxis: 2}
	assert.True(t, shifted.Transmits(5, -1))
	assert.False(t, shifted.Transmits(0, 0))
}

func TestUnionAndComplement(t *testing.T) {
	body := Circle{Radius: 1}
	moon := Ellipse{X0: 3, MajorAxis: 1, MinorAxis: 1}
	both := Union{body, moon}

	assert.True(t, both.Transmits(0, 0))
	assert.True(t, both.Transmits(3, 0))
	assert.False(t, both.Transmits(2, 0))

	occulter := Complement{Shape: both}
	assert.False(t, occulter.Transmits(0, 0))
	assert.True(t, occulter.Transmits(2, 0))

	g, err := NewGrid(32, 10)
	require.NoError(t, err)
	open, err := GenerateAperture(both, g)
	require.NoError(t, err)
	blocked, err := GenerateAperture(occulter, g)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, open.OpenFraction()+blocked.OpenFraction(), 1e-12)
}

func TestGenerateApertureWithShapeFunc(t *testing.T) {
	g, err := NewGrid(8, 1)
	require.NoError(t, err)

	ap, err := GenerateAperture(ShapeFunc(func(x, y float64) bool { return x >= 0 }), g)
	require.NoError(t, err)
	assert.Equal(t, 0.5, ap.OpenFraction())
	assert.Equal(t, 0.0, ap.At(0, 0))
	assert.Equal(t, 1.0, ap.At(0, 7))

	_, err = GenerateAperture(nil, g)
	assert.ErrorIs(t, err, ErrInvalidAperture)
	_, err = GenerateAperture(Circle{Radius: 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestMaskAperture(t *testing.T) {
	ap, err := MaskAperture([][]float64{{0, 0.5}, {1, 0.25}})
	require.NoError(t, err)
	assert.Equal(t, 0.5, ap.At(0, 1))
	assert.Equal(t, 1.0, ap.At(1, 0))
	assert.Equal(t, [][]float64{{0, 0.5}, {1, 0.25}}, ap.Matrix())

	u := ap.Field()
	assert.Equal(t, complex(0.25, 0), u.At(1, 1))

	_, err = MaskAperture(nil)
	assert.ErrorIs(t, err, ErrInvalidAperture)
	_, err = MaskAperture([][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = MaskAperture([][]float64{{0, 0}, {0}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = MaskAperture([][]float64{{0, 1.5}, {0, 0}})
	assert.ErrorIs(t, err, ErrInvalidAperture)
	_, err = MaskAperture([][]float64{{0, math.NaN()}, {0, 0}})
	assert.ErrorIs(t, err, ErrInvalidAperture)
}

func TestApertureFieldHasZeroPhase(t *testing.T) {
	g, err := NewGrid(16, 1)
	require.NoError(t, err)
	ap, err := GenerateAperture(Circle{Radius: 0.3}, g)
	require.NoError(t, err)

	u := ap.Field()
	require.Equal(t, 16, u.N)
	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			assert.Equal(t, complex(ap.At(row, col), 0), u.At(row, col))
		}
	}
}
