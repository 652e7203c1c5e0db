package fresnel

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scannedVolume(t *testing.T) *Volume {
	t.Helper()
	g, ap := circularField(t, 32, 4e-3, 1e-3)
	vol, err := Scan(context.Background(), ap.Field(), ZValues(0.05, 0.6, 6), heNe, g.Dx, ScanOptions{Workers: 2})
	require.NoError(t, err)
	return vol
}

func TestNormalizeInvariants(t *testing.T) {
	iv, err := Normalize(scannedVolume(t))
	require.NoError(t, err)

	assert.Equal(t, [3]int{6, 32, 32}, iv.Shape())
	require.Len(t, iv.Data, 6*32*32)
	assert.Equal(t, float32(1), iv.Max())
	for i, v := range iv.Data {
		require.True(t, v >= 0 && v <= 1, "element %d = %g", i, v)
	}

	again, err := NormalizeIntensity(iv)
	require.NoError(t, err)
	assert.Equal(t, iv.Data, again.Data, "re-normalizing must be idempotent")
}

func TestNormalizeUsesGlobalMaximum(t *testing.T) {
	vol := &Volume{
		N: 2,
		Z: []float64{1, 2},
		Slices: [][]complex64{
			{1, 1, 1, 1},
			{2, 2, 2, complex(0, 2)},
		},
	}
	iv, err := Normalize(vol)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25, 1, 1, 1, 1}, iv.Data)
	assert.Equal(t, float32(0.25), iv.At(0, 1, 1))
}

func TestNormalizeDarkVolume(t *testing.T) {
	dark := &Volume{N: 2, Z: []float64{1}, Slices: [][]complex64{make([]complex64, 4)}}

	_, err := Normalize(dark)
	assert.ErrorIs(t, err, ErrDarkVolume)

	out := filepath.Join(t.TempDir(), "dark.raw")
	_, _, err = NormalizeAndExport(dark, out, ExportOptions{})
	assert.ErrorIs(t, err, ErrDarkVolume)
	assert.NoFileExists(t, out)

	_, err = NormalizeIntensity(&IntensityVolume{NumZ: 1, N: 2, Data: make([]float32, 4)})
	assert.ErrorIs(t, err, ErrDarkVolume)
}

func TestNormalizeRejectsNonFiniteIntensity(t *testing.T) {
	nan := float32(math.NaN())
	vol := &Volume{N: 2, Z: []float64{1, 2}, Slices: [][]complex64{
		{1, 1, 1, 1},
		{complex(nan, 0), 1, 1, 1},
	}}
	_, err := Normalize(vol)
	assert.ErrorIs(t, err, ErrNonFinite)

	allNaN := &Volume{N: 2, Z: []float64{1}, Slices: [][]complex64{
		{complex(nan, nan), complex(nan, nan), complex(nan, nan), complex(nan, nan)},
	}}
	_, err = Normalize(allNaN)
	assert.ErrorIs(t, err, ErrNonFinite, "an all-NaN volume is not dark")

	inf := float32(math.Inf(1))
	_, err = NormalizeIntensity(&IntensityVolume{NumZ: 1, N: 2, Data: []float32{0.5, inf, 1, 0}})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestNormalizeRejectsMalformedVolume(t *testing.T) {
	_, err := Normalize(&Volume{N: 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = Normalize(&Volume{N: 2, Z: []float64{1}, Slices: [][]complex64{{1, 1, 1}}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestWriteRawLayout(t *testing.T) {
	vol := &Volume{
		N: 2,
		Z: []float64{0.1, 0.2},
		Slices: [][]complex64{
			{1, 0, 0, 0},
			{0, 0, 0, 2},
		},
	}
	iv, err := Normalize(vol)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteRaw(&buf, iv))
	require.Equal(t, 8*4, buf.Len(), "no header, four bytes per element")

	got := make([]float32, 8)
	require.NoError(t, binary.Read(&buf, binary.LittleEndian, got))
	assert.Equal(t, []float32{0.25, 0, 0, 0, 0, 0, 0, 1}, got)
}

type failingWriter struct{}

var errDiskFull = errors.New("disk full")

func (failingWriter) Write([]byte) (int, error) { return 0, errDiskFull }

func TestWriteErrorsPropagate(t *testing.T) {
	iv := &IntensityVolume{NumZ: 1, N: 2, Data: []float32{1, 0, 0, 0}}
	assert.ErrorIs(t, WriteRaw(failingWriter{}, iv), errDiskFull)
	assert.ErrorIs(t, WriteNPY(failingWriter{}, iv), errDiskFull)
}

func TestNPYHeader(t *testing.T) {
	header := npyHeader([]int{2, 4, 4})
	assert.Zero(t, len(header)%64)
	assert.Equal(t, byte('\n'), header[len(header)-1])

	g := goldie.New(t)
	g.Assert(t, "npy_header_2x4x4", header)

	assert.Contains(t, string(npyHeader([]int{5})), "'shape': (5,)")
}

func TestWriteNPY(t *testing.T) {
	iv := &IntensityVolume{NumZ: 2, N: 4, Data: make([]float32, 32)}
	iv.Data[31] = 1

	var buf bytes.Buffer
	require.NoError(t, WriteNPY(&buf, iv))

	raw := buf.Bytes()
	require.Len(t, raw, 128+32*4)
	assert.Equal(t, npyMagic, string(raw[:6]))
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, raw[len(raw)-4:], "last element is float32(1) little-endian")
}

func TestNormalizeAndExportRoundTrip(t *testing.T) {
	vol := scannedVolume(t)
	dir := t.TempDir()

	iv, paths, err := NormalizeAndExport(vol, filepath.Join(dir, "out", "circle.raw"), ExportOptions{
		RunID:      "run-1",
		Title:      "circle",
		Wavelength: heNe,
		Dx:         4e-3 / 32,
		WriteNPY:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "out", "circle.raw"), paths.Raw)
	assert.Equal(t, filepath.Join(dir, "out", "circle.npy"), paths.Npy)
	assert.Equal(t, filepath.Join(dir, "out", "circle.yaml"), paths.Manifest)

	info, err := os.Stat(paths.Raw)
	require.NoError(t, err)
	assert.Equal(t, int64(6*32*32*4), info.Size())

	npyInfo, err := os.Stat(paths.Npy)
	require.NoError(t, err)
	assert.Equal(t, info.Size()+128, npyInfo.Size())

	m, err := ReadManifest(paths.Manifest)
	require.NoError(t, err)
	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, "circle", m.Title)
	assert.Equal(t, [3]int{6, 32, 32}, m.Shape)
	assert.Equal(t, "float32", m.Dtype)
	assert.Equal(t, "circle.raw", m.RawFile)
	assert.Equal(t, "circle.npy", m.NpyFile)
	assert.Equal(t, vol.Z, m.Z)
	assert.InDelta(t, heNe, m.Wavelength, 1e-20)

	back, err := ReadRaw(filepath.Dir(paths.Manifest), m)
	require.NoError(t, err)
	assert.Equal(t, iv.Data, back.Data)
	assert.Equal(t, iv.Shape(), back.Shape())
}

func TestReadRawRejectsSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v.raw"), make([]byte, 4*2*2), 0o644))

	_, err := ReadRaw(dir, &Manifest{RawFile: "v.raw", Shape: [3]int{2, 2, 2}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = ReadRaw(dir, &Manifest{RawFile: "v.raw", Shape: [3]int{1, 2, 4}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	iv, err := ReadRaw(dir, &Manifest{RawFile: "v.raw", Shape: [3]int{1, 2, 2}})
	require.NoError(t, err)
	assert.Equal(t, [3]int{1, 2, 2}, iv.Shape())

	_, err = ReadRaw(dir, &Manifest{RawFile: "missing.raw", Shape: [3]int{1, 2, 2}})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
