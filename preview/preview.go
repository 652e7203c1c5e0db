// Package preview provides functions for inspecting a normalized diffraction volume:
// extracting the xz section plane and xy planes, sampling the on-axis intensity along z,
// writing 8-bit and 16-bit PNG images of those planes, loading aperture masks from PNG
// files and plotting the axial intensity profile.
package preview

import (
	"errors"
	"fmt"
	"math"

	"github.com/bob-anderson-ok/FresnelVolume/fresnel"
)

// Point represents a single sample of the axial intensity profile.
type Point struct {
	Z         float64 // Propagation distance (m)
	Intensity float64 // Normalized intensity value
}

// ErrIndexOutOfRange is returned when a requested plane or sample lies outside the volume.
var ErrIndexOutOfRange = errors.New("index outside the volume")

// SliceXY returns plane k of the volume as rows (y) of columns (x).
func SliceXY(iv *fresnel.IntensityVolume, k int) ([][]float64, error) {
	if k < 0 || k >= iv.NumZ {
		return nil, fmt.Errorf("%w: plane %d of %d", ErrIndexOutOfRange, k, iv.NumZ)
	}
	m := make([][]float64, iv.N)
	for row := 0; row < iv.N; row++ {
		m[row] = make([]float64, iv.N)
		for col := 0; col < iv.N; col++ {
			m[row][col] = float64(iv.At(k, row, col))
		}
	}
	return m, nil
}

// SliceXZ returns the section through grid row `row` (row N/2 is y=0) as num_z rows of
// N x-samples, i.e. volume[:, row, :].
func SliceXZ(iv *fresnel.IntensityVolume, row int) ([][]float64, error) {
	if row < 0 || row >= iv.N {
		return nil, fmt.Errorf("%w: row %d of %d", ErrIndexOutOfRange, row, iv.N)
	}
	m := make([][]float64, iv.NumZ)
	for k := 0; k < iv.NumZ; k++ {
		m[k] = make([]float64, iv.N)
		for col := 0; col < iv.N; col++ {
			m[k][col] = float64(iv.At(k, row, col))
		}
	}
	return m, nil
}

// RotateCCW rotates a matrix 90 degrees counter-clockwise. Applied to SliceXZ it puts z
// along the horizontal axis and x along the vertical axis.
func RotateCCW(m [][]float64) [][]float64 {
	h := len(m)
	if h == 0 {
		return nil
	}
	w := len(m[0])
	out := make([][]float64, w)
	for i := 0; i < w; i++ {
		out[i] = make([]float64, h)
		for j := 0; j < h; j++ {
			out[i][j] = m[j][w-1-i]
		}
	}
	return out
}

// AxialProfile samples the intensity at (row, col) in every plane, pairing each value
// with its propagation distance.
func AxialProfile(iv *fresnel.IntensityVolume, row, col int) ([]Point, error) {
	if row < 0 || row >= iv.N || col < 0 || col >= iv.N {
		return nil, fmt.Errorf("%w: sample (%d,%d) of %dx%d", ErrIndexOutOfRange, row, col, iv.N, iv.N)
	}
	if len(iv.Z) != iv.NumZ {
		return nil, fmt.Errorf("%w: %d distances for %d planes", fresnel.ErrShapeMismatch, len(iv.Z), iv.NumZ)
	}
	profile := make([]Point, iv.NumZ)
	for k := range profile {
		profile[k] = Point{
			Z:         iv.Z[k],
			Intensity: float64(iv.At(k, row, col)),
		}
	}
	return profile, nil
}

// OnAxisProfile samples the intensity on the optical axis x=y=0 in every plane. With an
// even grid the axis falls midway between the four central samples, so each value is
// bilinearly interpolated at fractional index (N-1)/2.
func OnAxisProfile(iv *fresnel.IntensityVolume) ([]Point, error) {
	if iv.N < 2 {
		return nil, fmt.Errorf("%w: %dx%d plane has no interior", ErrIndexOutOfRange, iv.N, iv.N)
	}
	if len(iv.Z) != iv.NumZ {
		return nil, fmt.Errorf("%w: %d distances for %d planes", fresnel.ErrShapeMismatch, len(iv.Z), iv.NumZ)
	}
	c := float64(iv.N-1) / 2
	profile := make([]Point, iv.NumZ)
	for k := range profile {
		profile[k] = Point{
			Z:         iv.Z[k],
			Intensity: interpolate(iv, k, c, c),
		}
	}
	return profile, nil
}

// interpolate performs bilinear interpolation in plane k at fractional column x and row y.
func interpolate(iv *fresnel.IntensityVolume, k int, x, y float64) float64 {
	n := iv.N

	// Clamp to valid range
	x = math.Max(0, math.Min(x, float64(n-1)-1e-9))
	y = math.Max(0, math.Min(y, float64(n-1)-1e-9))

	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1

	xFrac := x - float64(x0)
	yFrac := y - float64(y0)

	v00 := float64(iv.At(k, y0, x0))
	v01 := float64(iv.At(k, y0, x1))
	v10 := float64(iv.At(k, y1, x0))
	v11 := float64(iv.At(k, y1, x1))

	v0 := v00*(1-xFrac) + v01*xFrac
	v1 := v10*(1-xFrac) + v11*xFrac

	return v0*(1-yFrac) + v1*yFrac
}
