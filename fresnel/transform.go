package fresnel

import (
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Transform is a matched 2-D discrete Fourier transform pair acting in place on an
// N x N row-major array. Forward is unnormalized; Inverse scales by 1/N² so that
// Inverse(Forward(u)) == u. Frequencies come out in the native wrap-around order.
//
// A Transform may keep scratch buffers and is not safe for concurrent use.
type Transform interface {
	Forward(data []complex128)
	Inverse(data []complex128)
}

// TransformFactory builds a Transform for N x N arrays.
type TransformFactory func(n int) Transform

// gonumTransform runs rows then columns through a gonum CmplxFFT.
type gonumTransform struct {
	n   int
	fft *fourier.CmplxFFT
	tmp []complex128
	col []complex128
}

// NewGonumTransform is the default backend.
func NewGonumTransform(n int) Transform {
	return &gonumTransform{
		n:   n,
		fft: fourier.NewCmplxFFT(n),
		tmp: make([]complex128, n),
		col: make([]complex128, n),
	}
}

func (t *gonumTransform) Forward(data []complex128) {
	t.apply(data, true)
}

func (t *gonumTransform) Inverse(data []complex128) {
	t.apply(data, false)

	// Gonum transforms are unnormalized: forward then inverse multiplies by N per axis.
	scale := complex(1.0/float64(t.n*t.n), 0)
	for i := range data {
		data[i] *= scale
	}
}

func (t *gonumTransform) apply(data []complex128, forward bool) {
	n := t.n

	// rows
	for y := 0; y < n; y++ {
		copy(t.tmp, data[y*n:(y+1)*n])
		if forward {
			t.fft.Coefficients(t.tmp, t.tmp)
		} else {
			t.fft.Sequence(t.tmp, t.tmp)
		}
		copy(data[y*n:(y+1)*n], t.tmp)
	}

	// cols
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			t.col[y] = data[y*n+x]
		}
		if forward {
			t.fft.Coefficients(t.col, t.col)
		} else {
			t.fft.Sequence(t.col, t.col)
		}
		for y := 0; y < n; y++ {
			data[y*n+x] = t.col[y]
		}
	}
}

// dspTransform delegates to go-dsp, whose IFFT2 already carries the 1/N² factor.
type dspTransform struct {
	n int
	m [][]complex128
}

// NewDSPTransform is the go-dsp backend.
func NewDSPTransform(n int) Transform {
	m := make([][]complex128, n)
	for i := range m {
		m[i] = make([]complex128, n)
	}
	return &dspTransform{n: n, m: m}
}

func (t *dspTransform) Forward(data []complex128) {
	t.load(data)
	t.store(fft.FFT2(t.m), data)
}

func (t *dspTransform) Inverse(data []complex128) {
	t.load(data)
	t.store(fft.IFFT2(t.m), data)
}

func (t *dspTransform) load(data []complex128) {
	for y := 0; y < t.n; y++ {
		copy(t.m[y], data[y*t.n:(y+1)*t.n])
	}
}

func (t *dspTransform) store(m [][]complex128, data []complex128) {
	for y := 0; y < t.n; y++ {
		copy(data[y*t.n:(y+1)*t.n], m[y])
	}
}

// TransformByName maps a parameter-file name to a backend. The empty name selects gonum.
func TransformByName(name string) (TransformFactory, bool) {
	switch name {
	case "", "gonum":
		return NewGonumTransform, true
	case "dsp", "go-dsp":
		return NewDSPTransform, true
	}
	return nil, false
}
