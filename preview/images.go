package preview

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"sort"
)

// MatrixToGray16Data -------------------- Data PNG (Gray16, fixed scaling) --------------------
// Mapping: Y16 = round(v * scale), clamped to [0, 65535]
//
// Normalized intensities live in [0, 1], so with Gray16Scale the PNG reads back
// (LoadGray16PNG) to within half a step of 1/Gray16Scale.
func MatrixToGray16Data(m [][]float64, scale float64) (*image.Gray16, error) {
	h, w, err := rectSize(m)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, errors.New("scale must be > 0")
	}

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			v := m[y][x]
			i := row + 2*x
			if math.IsNaN(v) || math.IsInf(v, 0) {
				// write 0
				img.Pix[i], img.Pix[i+1] = 0, 0
				continue
			}

			u := math.Round(v * scale)
			if u < 0 {
				u = 0
			} else if u > 65535 {
				u = 65535
			}
			y16 := uint16(u)

			// Gray16 Pix is big-endian per pixel: high then low
			img.Pix[i] = uint8(y16 >> 8)
			img.Pix[i+1] = uint8(y16)
		}
	}
	return img, nil
}

// MatrixToGrayViewPercentile -------------------- View PNG (Gray8, auto-stretch) --------------------
// Two common auto-stretches:
//
//	A) Min/Max stretch (simple)
//	B) Percentile stretch (robust to outliers) <-- used for the previews
//
// This implements percentile stretch: map pLow to pHigh to 0..255 and clamp. The bright
// focal spots of a diffraction volume would otherwise push the fringes down to black.
func MatrixToGrayViewPercentile(m [][]float64, pLow, pHigh float64) (*image.Gray, error) {
	h, w, err := rectSize(m)
	if err != nil {
		return nil, err
	}
	if !(0 <= pLow && pLow < pHigh && pHigh <= 100) {
		return nil, errors.New("percentiles must satisfy 0 <= pLow < pHigh <= 100")
	}

	// Collect finite values for percentile computation
	vals := make([]float64, 0, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := m[y][x]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return nil, errors.New("matrix has no finite values")
	}
	sort.Float64s(vals)

	// Helper to get percentile value (linear between neighbouring ranks)
	percentile := func(p float64) float64 {
		if p <= 0 {
			return vals[0]
		}
		if p >= 100 {
			return vals[len(vals)-1]
		}
		pos := (p / 100.0) * float64(len(vals)-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i >= len(vals)-1 {
			return vals[len(vals)-1]
		}
		return vals[i]*(1-f) + vals[i+1]*f
	}

	lo := percentile(pLow)
	hi := percentile(pHigh)
	if hi == lo {
		hi = lo + 1 // constant image rather than a divide by zero
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			v := m[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				img.Pix[row+x] = 0
				continue
			}
			t := (v - lo) / (hi - lo) // normalize
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			img.Pix[row+x] = uint8(math.Round(t * 255.0))
		}
	}
	return img, nil
}

// SavePNG encodes any image to filename.
func SavePNG(filename string, img image.Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return png.Encode(f, img)
}

// LoadGray16PNG reads back a 16-bit section written with MatrixToGray16Data, returning
// pixelValue / scale. Images that are not 16-bit grayscale are rejected because their
// values cannot carry the fixed scaling.
func LoadGray16PNG(filename string, scale float64) (matrix [][]float64, err error) {
	if scale <= 0 {
		return nil, errors.New("scale must be > 0")
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		return nil, fmt.Errorf("%s is %T, not a 16-bit grayscale image", filename, img)
	}

	bounds := gray.Bounds()
	matrix = make([][]float64, bounds.Dy())
	for y := range matrix {
		matrix[y] = make([]float64, bounds.Dx())
		row := y * gray.Stride
		for x := range matrix[y] {
			// Gray16 Pix is big-endian per pixel
			v := uint16(gray.Pix[row+2*x])<<8 | uint16(gray.Pix[row+2*x+1])
			matrix[y][x] = float64(v) / scale
		}
	}
	return matrix, nil
}

// LoadMaskPNG reads an aperture mask from a square grayscale PNG. Black pixels transmit
// (1.0) and white pixels block (0.0); grays map linearly in between.
func LoadMaskPNG(filename string) (matrix [][]float64, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != bounds.Dy() {
		return nil, fmt.Errorf("mask image %s is %dx%d, not square", filename, bounds.Dx(), bounds.Dy())
	}

	n := bounds.Dy()
	matrix = make([][]float64, n)
	for y := 0; y < n; y++ {
		matrix[y] = make([]float64, n)
		for x := 0; x < n; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			gray := float64(r+g+b) / 3 / 65535
			matrix[y][x] = 1.0 - gray
		}
	}
	return matrix, nil
}

func rectSize(m [][]float64) (h, w int, err error) {
	h = len(m)
	if h == 0 || len(m[0]) == 0 {
		return 0, 0, errors.New("empty matrix")
	}
	w = len(m[0])
	for i := 1; i < h; i++ {
		if len(m[i]) != w {
			return 0, 0, errors.New("ragged matrix")
		}
	}
	return h, w, nil
}
