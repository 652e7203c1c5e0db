package fresnel

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

const heNe = 6.33e-7

func circularField(t *testing.T, n int, l, r float64) (*Grid, *Aperture) {
	t.Helper()
	g, err := NewGrid(n, l)
	require.NoError(t, err)
	ap, err := GenerateAperture(Circle{Radius: r}, g)
	require.NoError(t, err)
	return g, ap
}

func TestPropagateCircularApertureScenario(t *testing.T) {
	const r = 1e-3
	g, ap := circularField(t, 64, 4*r, r)

	u, err := Propagate(ap.Field(), 0.1, heNe, g.Dx)
	require.NoError(t, err)

	rows, cols := u.Shape()
	assert.Equal(t, 64, rows)
	assert.Equal(t, 64, cols)
	assert.IsType(t, []complex128{}, u.Data)
	require.Len(t, u.Data, 64*64)

	spectrum := append([]complex128(nil), u.Data...)
	NewGonumTransform(64).Forward(spectrum)
	total := 0.0
	for _, s := range spectrum {
		total += real(s)*real(s) + imag(s)*imag(s)
	}
	dc := cmplx.Abs(spectrum[0])
	fraction := dc * dc / total

	assert.Greater(t, fraction, 0.15)
	// |H| = 1 everywhere, so the DC share equals the open fraction of the mask.
	assert.InDelta(t, ap.OpenFraction(), fraction, 1e-9)
}

func TestPropagateConservesEnergy(t *testing.T) {
	g, ap := circularField(t, 128, 8e-3, 5e-4)
	u0 := ap.Field()
	e0 := u0.Energy()
	require.Greater(t, e0, 0.0)

	for _, z := range ZValues(0.01, 0.2, 5) {
		u, err := Propagate(u0, z, heNe, g.Dx)
		require.NoError(t, err)
		assert.Less(t, math.Abs(u.Energy()-e0)/e0, 0.01, "z=%g", z)
	}
}

func TestPropagateConvergesToApertureAsZShrinks(t *testing.T) {
	const r = 1e-3
	g, ap := circularField(t, 64, 4*r, r)
	u0 := ap.Field()
	mask := u0.Intensity()

	correlation := func(z float64) float64 {
		u, err := Propagate(u0, z, heNe, g.Dx)
		require.NoError(t, err)
		return stat.Correlation(u.Intensity(), mask, nil)
	}

	near := correlation(1e-4)
	mid := correlation(0.1)
	far := correlation(2.0)

	assert.Greater(t, near, 0.99)
	assert.Greater(t, near, mid)
	assert.Greater(t, mid, far)
}

func TestPropagateForwardBackRoundTrip(t *testing.T) {
	g, ap := circularField(t, 64, 4e-3, 1e-3)
	u0 := ap.Field()

	for _, z := range []float64{0.05, 0.3, 1.0} {
		forward, err := Propagate(u0, z, heNe, g.Dx)
		require.NoError(t, err)
		back, err := Propagate(forward, -z, heNe, g.Dx)
		require.NoError(t, err)
		assert.Less(t, maxAbsDiff(u0.Data, back.Data), 1e-9, "z=%g", z)
	}
}

func TestPropagateZeroDistanceIsIdentity(t *testing.T) {
	u0 := randomField(16, 3)
	u, err := Propagate(u0, 0, heNe, 1e-5)
	require.NoError(t, err)
	assert.Less(t, maxAbsDiff(u0.Data, u.Data), 1e-12)
}

func TestPropagateRejectsBadInput(t *testing.T) {
	u0 := randomField(8, 1)

	_, err := Propagate(u0, 0.1, 0, 1e-5)
	assert.ErrorIs(t, err, ErrInvalidWavelength)
	_, err = Propagate(u0, 0.1, -heNe, 1e-5)
	assert.ErrorIs(t, err, ErrInvalidWavelength)
	_, err = Propagate(u0, 0.1, heNe, 0)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = Propagate(&Field{N: 4, Data: make([]complex128, 3)}, 0.1, heNe, 1e-5)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = Propagate(nil, 0.1, heNe, 1e-5)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestPropagateRejectsNonFiniteInput(t *testing.T) {
	u0 := randomField(8, 1)

	_, err := Propagate(u0, 0.1, math.Inf(1), 1e-5)
	assert.ErrorIs(t, err, ErrInvalidWavelength)
	_, err = Propagate(u0, 0.1, math.NaN(), 1e-5)
	assert.ErrorIs(t, err, ErrInvalidWavelength)
	_, err = Propagate(u0, 0.1, heNe, math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = Propagate(u0, math.Inf(1), heNe, 1e-5)
	assert.ErrorIs(t, err, ErrInvalidDistance)
	_, err = Propagate(u0, math.NaN(), heNe, 1e-5)
	assert.ErrorIs(t, err, ErrInvalidDistance)

	_, err = NewPropagator(u0, math.Inf(1), 1e-5, nil)
	assert.ErrorIs(t, err, ErrInvalidWavelength)
}

func TestTransferFunction(t *testing.T) {
	const n = 16
	const z = 0.2
	const dx = 1e-5
	h := TransferFunction(n, z, heNe, dx)
	require.Len(t, h, n*n)

	for i, v := range h {
		assert.InDelta(t, 1.0, cmplx.Abs(v), 1e-12, "bin %d", i)
	}
	k := 2 * math.Pi / heNe
	assert.InDelta(t, 0, cmplx.Abs(h[0]-cmplx.Exp(complex(0, k*z))), 1e-9)

	// Rows follow fy and columns fx with the same native ordering.
	assert.Equal(t, h[1*n+3], h[3*n+1])
	assert.Equal(t, h[1], h[n-1], "±f give the same quadratic phase")
}

func TestPropagatorMatchesPropagate(t *testing.T) {
	g, ap := circularField(t, 32, 4e-3, 1e-3)
	u0 := ap.Field()

	want, err := Propagate(u0, 0.2, heNe, g.Dx)
	require.NoError(t, err)

	for name, factory := range map[string]TransformFactory{"gonum": NewGonumTransform, "dsp": NewDSPTransform} {
		p, err := NewPropagator(u0, heNe, g.Dx, factory)
		require.NoError(t, err, name)
		assert.Less(t, maxAbsDiff(want.Data, p.At(0.2).Data), 1e-9, name)
	}
}
