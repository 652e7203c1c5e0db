package fresnel

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IntensityVolume holds |U|² divided by its single global maximum, flattened in
// (z, y, x) row-major order. Every value lies in [0, 1] and the maximum is exactly 1.
type IntensityVolume struct {
	NumZ int
	N    int
	Z    []float64
	Data []float32
}

// Shape returns (num_z, N, N).
func (iv *IntensityVolume) Shape() [3]int {
	return [3]int{iv.NumZ, iv.N, iv.N}
}

// At returns the value of slice k at (row, col).
func (iv *IntensityVolume) At(k, row, col int) float32 {
	return iv.Data[(k*iv.N+row)*iv.N+col]
}

// Max returns the largest element.
func (iv *IntensityVolume) Max() float32 {
	var m float32
	for _, v := range iv.Data {
		if v > m {
			m = v
		}
	}
	return m
}

// Normalize converts the complex stack to intensity and divides by the global maximum
// over all slices (not per slice).
func Normalize(v *Volume) (*IntensityVolume, error) {
	if v == nil || v.N <= 0 || len(v.Slices) == 0 {
		return nil, fmt.Errorf("%w: empty volume", ErrShapeMismatch)
	}

	plane := v.N * v.N
	intensity := make([]float64, len(v.Slices)*plane)
	peak := 0.0
	for k, s := range v.Slices {
		if len(s) != plane {
			return nil, fmt.Errorf("%w: slice %d has %d samples, want %d", ErrShapeMismatch, k, len(s), plane)
		}
		base := k * plane
		for i, c := range s {
			re := float64(real(c))
			im := float64(imag(c))
			val := re*re + im*im
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return nil, fmt.Errorf("%w: slice %d element %d", ErrNonFinite, k, i)
			}
			intensity[base+i] = val
			if val > peak {
				peak = val
			}
		}
	}
	if peak == 0 {
		return nil, ErrDarkVolume
	}

	data := make([]float32, len(intensity))
	for i, val := range intensity {
		data[i] = float32(val / peak)
	}

	return &IntensityVolume{
		NumZ: len(v.Slices),
		N:    v.N,
		Z:    append([]float64(nil), v.Z...),
		Data: data,
	}, nil
}

// NormalizeIntensity rescales an intensity volume so that its maximum is 1. Applied to
// an already normalized volume it returns an identical copy.
func NormalizeIntensity(iv *IntensityVolume) (*IntensityVolume, error) {
	if iv == nil || len(iv.Data) != iv.NumZ*iv.N*iv.N || len(iv.Data) == 0 {
		return nil, fmt.Errorf("%w: intensity data does not match its shape", ErrShapeMismatch)
	}
	for i, v := range iv.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: element %d", ErrNonFinite, i)
		}
	}
	peak := iv.Max()
	if peak == 0 {
		return nil, ErrDarkVolume
	}

	data := make([]float32, len(iv.Data))
	for i, v := range iv.Data {
		data[i] = v / peak
	}
	return &IntensityVolume{
		NumZ: iv.NumZ,
		N:    iv.N,
		Z:    append([]float64(nil), iv.Z...),
		Data: data,
	}, nil
}

// WriteRaw writes the bare little-endian float32 array, no header.
func WriteRaw(w io.Writer, iv *IntensityVolume) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, iv.Data); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteNPY writes a NumPy .npy (format 1.0) file with dtype '<f4' and shape
// (num_z, N, N), so readers can recover the shape without a sidecar.
func WriteNPY(w io.Writer, iv *IntensityVolume) error {
	bw := bufio.NewWriter(w)
	shape := iv.Shape()
	if _, err := bw.Write(npyHeader(shape[:])); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, iv.Data); err != nil {
		return err
	}
	return bw.Flush()
}

const npyMagic = "\x93NUMPY"

// npyHeader pads the header dictionary with spaces and a newline so the array data
// starts on a 64-byte boundary.
func npyHeader(shape []int) []byte {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	tuple := "(" + strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	tuple += ")"

	dict := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': %s, }", tuple)
	preamble := len(npyMagic) + 2 + 2
	total := preamble + len(dict) + 1
	if rem := total % 64; rem != 0 {
		dict += strings.Repeat(" ", 64-rem)
	}
	dict += "\n"

	out := make([]byte, 0, preamble+len(dict))
	out = append(out, npyMagic...)
	out = append(out, 1, 0)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(dict)))
	out = append(out, dict...)
	return out
}

// Manifest is the sidecar that tells a reader of the raw file how to interpret it.
type Manifest struct {
	RunID      string    `yaml:"run_id,omitempty"`
	Title      string    `yaml:"title,omitempty"`
	Created    time.Time `yaml:"created"`
	RawFile    string    `yaml:"raw_file"`
	NpyFile    string    `yaml:"npy_file,omitempty"`
	Shape      [3]int    `yaml:"shape,flow"`
	Dtype      string    `yaml:"dtype"`
	ByteOrder  string    `yaml:"byte_order"`
	Layout     string    `yaml:"layout"`
	Wavelength float64   `yaml:"wavelength_m,omitempty"`
	Dx         float64   `yaml:"dx_m,omitempty"`
	Z          []float64 `yaml:"z_m,flow"`
}

// ExportOptions carries the run metadata recorded in the manifest.
type ExportOptions struct {
	RunID      string
	Title      string
	Wavelength float64
	Dx         float64
	WriteNPY   bool
}

// ExportPaths lists what NormalizeAndExport wrote.
type ExportPaths struct {
	Raw      string
	Npy      string
	Manifest string
}

// NormalizeAndExport normalizes the volume and writes it next to outputPath: the raw
// float32 stack at <base>.raw, the manifest at <base>.yaml and, if asked, <base>.npy.
// The extension of outputPath, if any, is replaced.
func NormalizeAndExport(v *Volume, outputPath string, opts ExportOptions) (*IntensityVolume, ExportPaths, error) {
	iv, err := Normalize(v)
	if err != nil {
		return nil, ExportPaths{}, err
	}

	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	paths := ExportPaths{
		Raw:      base + ".raw",
		Manifest: base + ".yaml",
	}
	if opts.WriteNPY {
		paths.Npy = base + ".npy"
	}

	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ExportPaths{}, err
		}
	}

	if err := writeFile(paths.Raw, func(w io.Writer) error { return WriteRaw(w, iv) }); err != nil {
		return nil, ExportPaths{}, err
	}
	if paths.Npy != "" {
		if err := writeFile(paths.Npy, func(w io.Writer) error { return WriteNPY(w, iv) }); err != nil {
			return nil, ExportPaths{}, err
		}
	}

	m := Manifest{
		RunID:      opts.RunID,
		Title:      opts.Title,
		Created:    time.Now().UTC().Truncate(time.Second),
		RawFile:    filepath.Base(paths.Raw),
		Shape:      iv.Shape(),
		Dtype:      "float32",
		ByteOrder:  "little",
		Layout:     "z,y,x",
		Wavelength: opts.Wavelength,
		Dx:         opts.Dx,
		Z:          iv.Z,
	}
	if paths.Npy != "" {
		m.NpyFile = filepath.Base(paths.Npy)
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return nil, ExportPaths{}, err
	}
	if err := os.WriteFile(paths.Manifest, data, 0o644); err != nil {
		return nil, ExportPaths{}, err
	}

	return iv, paths, nil
}

func writeFile(filename string, write func(io.Writer) error) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return write(f)
}

// ReadManifest loads a sidecar written by NormalizeAndExport.
func ReadManifest(filename string) (*Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest %q: %w", filename, err)
	}
	return &m, nil
}

// ReadRaw loads a raw stack, refusing a file whose size does not match the shape in
// the manifest. A relative RawFile is resolved against the manifest's directory dir.
func ReadRaw(dir string, m *Manifest) (*IntensityVolume, error) {
	numZ, rows, cols := m.Shape[0], m.Shape[1], m.Shape[2]
	if numZ <= 0 || rows <= 0 || rows != cols {
		return nil, fmt.Errorf("%w: manifest shape %v", ErrShapeMismatch, m.Shape)
	}

	filename := m.RawFile
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(dir, filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	count := numZ * rows * cols
	if len(data) != count*4 {
		return nil, fmt.Errorf("%w: %q holds %d bytes, shape %v needs %d", ErrShapeMismatch, filename, len(data), m.Shape, count*4)
	}

	values := make([]float32, count)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return &IntensityVolume{
		NumZ: numZ,
		N:    rows,
		Z:    append([]float64(nil), m.Z...),
		Data: values,
	}, nil
}
