package preview

import (
	"fmt"

	"github.com/bob-anderson-ok/FresnelVolume/fresnel"
)

// Gray16Scale maps normalized intensity 1.0 to 16-bit value 60000, leaving headroom
// for values read back from a re-scaled volume.
const Gray16Scale = 60000.0

// Files lists the preview images written by WriteAll.
type Files struct {
	SectionXZ    string // 8-bit xz plane at y=0, z horizontal
	SectionXZ16  string // 16-bit xz plane with fixed Gray16Scale scaling
	FirstPlaneXY string // 8-bit xy plane at z_min
	MidPlaneXY   string // 8-bit xy plane at index num_z/2
	LastPlaneXY  string // 8-bit xy plane at z_max
	AxialPlot    string // on-axis intensity against z
}

// WriteAll renders the standard set of previews for a normalized volume, naming each
// file by appending a suffix to base.
func WriteAll(iv *fresnel.IntensityVolume, base, title string) (Files, error) {
	files := Files{
		SectionXZ:    base + "_xz.png",
		SectionXZ16:  base + "_xz16.png",
		FirstPlaneXY: base + "_xy_first.png",
		MidPlaneXY:   base + "_xy_mid.png",
		LastPlaneXY:  base + "_xy_last.png",
		AxialPlot:    base + "_axial.png",
	}

	xz, err := SectionXZ(iv)
	if err != nil {
		return Files{}, err
	}

	view, err := MatrixToGrayViewPercentile(xz, 0.5, 99.5)
	if err != nil {
		return Files{}, fmt.Errorf("xz preview: %w", err)
	}
	if err := SavePNG(files.SectionXZ, view); err != nil {
		return Files{}, err
	}

	img16, err := MatrixToGray16Data(xz, Gray16Scale)
	if err != nil {
		return Files{}, fmt.Errorf("xz 16-bit image: %w", err)
	}
	if err := SavePNG(files.SectionXZ16, img16); err != nil {
		return Files{}, err
	}

	planes := []struct {
		k        int
		filename string
	}{
		{0, files.FirstPlaneXY},
		{iv.NumZ / 2, files.MidPlaneXY},
		{iv.NumZ - 1, files.LastPlaneXY},
	}
	for _, plane := range planes {
		xy, err := SliceXY(iv, plane.k)
		if err != nil {
			return Files{}, err
		}
		view, err := MatrixToGrayViewPercentile(xy, 0.5, 99.5)
		if err != nil {
			return Files{}, fmt.Errorf("xy preview of plane %d: %w", plane.k, err)
		}
		if err := SavePNG(plane.filename, view); err != nil {
			return Files{}, err
		}
	}

	profile, err := OnAxisProfile(iv)
	if err != nil {
		return Files{}, err
	}
	if err := SaveAxialProfilePlot(files.AxialPlot, profile, title, 1200, 500); err != nil {
		return Files{}, fmt.Errorf("axial plot: %w", err)
	}
	return files, nil
}

// SectionXZ is the y=0 section (row N/2) turned so that z runs horizontally and x
// vertically. This is the image WriteAll stores in the xz previews.
func SectionXZ(iv *fresnel.IntensityVolume) ([][]float64, error) {
	xz, err := SliceXZ(iv, iv.N/2)
	if err != nil {
		return nil, err
	}
	return RotateCCW(xz), nil
}
