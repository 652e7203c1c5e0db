package fresnel

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Frequencies returns the spatial frequencies sampled by an N-point transform at
// spacing dx, in the transform's native order: m/(N·dx) for m = 0..N/2-1 followed by
// the negative frequencies. The transfer function must be evaluated on exactly this
// ordering; a centred (shifted) ordering silently scrambles the result.
func Frequencies(n int, dx float64) []float64 {
	f := make([]float64, n)
	span := float64(n) * dx
	for m := 0; m < n; m++ {
		if m < (n+1)/2 {
			f[m] = float64(m) / span
		} else {
			f[m] = float64(m-n) / span
		}
	}
	return f
}

// TransferFunction samples H(fx,fy;z) = exp(i·k·z)·exp(-i·π·λ·z·(fx²+fy²)) on the
// native frequency grid, row index following fy.
func TransferFunction(n int, z, wavelength, dx float64) []complex128 {
	freqs := Frequencies(n, dx)
	k := 2 * math.Pi / wavelength
	piLambdaZ := math.Pi * wavelength * z

	h := make([]complex128, n*n)
	for row := 0; row < n; row++ {
		fy2 := freqs[row] * freqs[row]
		for col := 0; col < n; col++ {
			fx2 := freqs[col] * freqs[col]
			h[row*n+col] = cmplx.Exp(complex(0, k*z-piLambdaZ*(fx2+fy2)))
		}
	}
	return h
}

// Propagator holds the spectrum of an input field so that the field can be evaluated at
// many distances with a single forward transform. The spectrum is read-only after
// construction, so At may be called from several goroutines at once.
type Propagator struct {
	n            int
	wavelength   float64
	dx           float64
	spectrum     []complex128
	newTransform TransformFactory
}

// NewPropagator transforms u0 once. A nil factory selects the gonum backend.
func NewPropagator(u0 *Field, wavelength, dx float64, newTransform TransformFactory) (*Propagator, error) {
	if err := u0.validate(); err != nil {
		return nil, err
	}
	if !(wavelength > 0) || math.IsInf(wavelength, 1) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidWavelength, wavelength)
	}
	if !(dx > 0) || math.IsInf(dx, 1) {
		return nil, fmt.Errorf("%w: sample spacing %g must be positive and finite", ErrInvalidGrid, dx)
	}
	if newTransform == nil {
		newTransform = NewGonumTransform
	}

	spectrum := make([]complex128, len(u0.Data))
	copy(spectrum, u0.Data)
	newTransform(u0.N).Forward(spectrum)

	return &Propagator{
		n:            u0.N,
		wavelength:   wavelength,
		dx:           dx,
		spectrum:     spectrum,
		newTransform: newTransform,
	}, nil
}

// At returns the field a distance z downstream of the input plane. z = 0 gives back the
// input; negative z propagates upstream. Accuracy outside the paraxial regime, or once
// energy wraps around the periodic window, is not checked here (see Diagnose).
func (p *Propagator) At(z float64) *Field {
	h := TransferFunction(p.n, z, p.wavelength, p.dx)

	out := NewField(p.n)
	for i, s := range p.spectrum {
		out.Data[i] = s * h[i]
	}
	p.newTransform(p.n).Inverse(out.Data)
	return out
}

// Propagate computes the Fresnel-propagated field at distance z using the gonum
// transform pair.
func Propagate(u0 *Field, z, wavelength, dx float64) (*Field, error) {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return nil, fmt.Errorf("%w: z=%g", ErrInvalidDistance, z)
	}
	p, err := NewPropagator(u0, wavelength, dx, nil)
	if err != nil {
		return nil, err
	}
	return p.At(z), nil
}
