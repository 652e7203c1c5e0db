package fresnel

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Volume is the stack of complex fields at increasing z, stored in single precision
// to bound memory for large N × num_z. Slice i belongs to Z[i].
type Volume struct {
	N      int
	Z      []float64
	Slices [][]complex64
}

// Shape returns (num_z, N, N).
func (v *Volume) Shape() [3]int {
	return [3]int{len(v.Slices), v.N, v.N}
}

// Slice widens slice i back to a double-precision Field.
func (v *Volume) Slice(i int) *Field {
	f := NewField(v.N)
	for j, c := range v.Slices[i] {
		f.Data[j] = complex128(c)
	}
	return f
}

// ScanOptions controls the Volume Scanner.
type ScanOptions struct {
	// Workers bounds the number of slices computed at once. Zero or one runs serially.
	Workers int

	// NewTransform selects the FFT backend. Nil selects gonum.
	NewTransform TransformFactory
}

// ZValues returns num linearly spaced distances from zMin to zMax inclusive.
func ZValues(zMin, zMax float64, num int) []float64 {
	switch {
	case num <= 0:
		return nil
	case num == 1:
		return []float64{zMin}
	}
	zs := floats.Span(make([]float64, num), zMin, zMax)
	zs[num-1] = zMax
	return zs
}

// VolumeBytes estimates the memory held by a complex64 stack of numZ slices of N x N
// plus its float32 normalized intensity copy.
func VolumeBytes(n, numZ int) uint64 {
	perSlice := uint64(n) * uint64(n)
	return uint64(numZ) * perSlice * (8 + 4)
}

// Scan propagates u0 independently to every distance in zValues. Each slice is derived
// from u0 itself, never from a neighbouring slice, so slices can be computed in any order
// and the result keeps the order of zValues. The first failure aborts the scan, as does
// cancelling ctx.
func Scan(ctx context.Context, u0 *Field, zValues []float64, wavelength, dx float64, opts ScanOptions) (*Volume, error) {
	if len(zValues) == 0 {
		return nil, ErrNoDistances
	}
	for i, z := range zValues {
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return nil, fmt.Errorf("%w: z[%d]=%g", ErrInvalidDistance, i, z)
		}
	}
	p, err := NewPropagator(u0, wavelength, dx, opts.NewTransform)
	if err != nil {
		return nil, err
	}

	vol := &Volume{
		N:      u0.N,
		Z:      append([]float64(nil), zValues...),
		Slices: make([][]complex64, len(zValues)),
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, z := range zValues {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vol.Slices[i] = toComplex64(p.At(z).Data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("volume scan aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("volume scan aborted: %w", err)
	}
	return vol, nil
}

func toComplex64(in []complex128) []complex64 {
	out := make([]complex64, len(in))
	for i, c := range in {
		out[i] = complex64(c)
	}
	return out
}
