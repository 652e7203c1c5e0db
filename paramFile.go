package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	json "github.com/KevinWang15/go-json5"
	"gopkg.in/yaml.v3"

	"github.com/bob-anderson-ok/FresnelVolume/fresnel"
	"github.com/bob-anderson-ok/FresnelVolume/preview"
)

// EllipseParameters describes an elliptical body. Axes are full lengths in metres.
type EllipseParameters struct {
	XCenterM           float64
	YCenterM           float64
	MajorAxisM         float64
	MinorAxisM         float64
	MajorAxisPaDegrees float64
}

type ApertureParameters struct {
	Shape         string // circle, horizontal_slit, vertical_slit, rectangle, ellipse or mask
	RadiusM       float64
	HeightM       float64
	WidthM        float64
	Ellipse       EllipseParameters
	Occulter      bool // Babinet complement: the body blocks, everything else transmits
	PathToMaskPNG string
}

type RunParameters struct {
	Title            string
	ShowInput        bool
	WavelengthM      float64
	GridPoints       int
	WindowM          float64
	WindowMultiplier float64
	Aperture         ApertureParameters
	SatelliteGiven   bool
	Satellite        EllipseParameters
	ZMinM            float64
	ZMaxM            float64
	NumZ             int
	OutputPath       string
	WriteNPY         bool
	Preview          bool
	Workers          int
	Transform        string
}

// parseParameterFile decodes a json5 (or json) file, or a yaml file when the name ends in
// .yaml/.yml, into a generic table. Yaml integers become float64 so both formats validate
// the same way.
func parseParameterFile(filename string, data []byte) (map[string]interface{}, error) {
	var table map[string]interface{}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, err
		}
		normalizeYamlNumbers(table)
	default:
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, err
		}
	}
	if table == nil {
		return nil, fmt.Errorf("%q holds no parameters", filename)
	}
	return table, nil
}

func normalizeYamlNumbers(m map[string]interface{}) {
	for k, v := range m {
		switch value := v.(type) {
		case int:
			m[k] = float64(value)
		case int64:
			m[k] = float64(value)
		case uint64:
			m[k] = float64(value)
		case map[string]interface{}:
			normalizeYamlNumbers(value)
		}
	}
}

func getLeafValue(table map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = table
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// floatLeaf stores the float64 at path into dst. A missing key is an error only when
// required is set, in which case dst keeps its default.
func floatLeaf(table map[string]interface{}, dst *float64, required bool, path ...string) (string, bool) {
	key := strings.Join(path, ".")
	v, ok := getLeafValue(table, path...)
	if !ok {
		if required {
			return key + ": not found", false
		}
		return "", true
	}
	value, ok := v.(float64)
	if !ok {
		return key + ": is not a float64", false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return key + ": is not finite", false
	}
	*dst = value
	return "", true
}

// intLeaf reads a whole number. json5 numbers arrive as float64.
func intLeaf(table map[string]interface{}, dst *int, required bool, path ...string) (string, bool) {
	var f float64
	if _, ok := getLeafValue(table, path...); !ok && !required {
		return "", true
	}
	if msg, ok := floatLeaf(table, &f, required, path...); !ok {
		return msg, false
	}
	if f != math.Trunc(f) {
		return strings.Join(path, ".") + ": is not a whole number", false
	}
	*dst = int(f)
	return "", true
}

func stringLeaf(table map[string]interface{}, dst *string, required bool, path ...string) (string, bool) {
	key := strings.Join(path, ".")
	v, ok := getLeafValue(table, path...)
	if !ok {
		if required {
			return key + ": not found", false
		}
		return "", true
	}
	value, ok := v.(string)
	if !ok {
		return key + ": is not a string", false
	}
	*dst = value
	return "", true
}

func boolLeaf(table map[string]interface{}, dst *bool, path ...string) (string, bool) {
	v, ok := getLeafValue(table, path...)
	if !ok {
		return "", true
	}
	value, ok := v.(bool)
	if !ok {
		return strings.Join(path, ".") + ": is not a bool", false
	}
	*dst = value
	return "", true
}

func validateEllipse(table map[string]interface{}, group string, e *EllipseParameters) (string, bool) {
	if msg, ok := floatLeaf(table, &e.XCenterM, false, group, "x_center_m"); !ok {
		return msg, false
	}
	if msg, ok := floatLeaf(table, &e.YCenterM, false, group, "y_center_m"); !ok {
		return msg, false
	}
	if msg, ok := floatLeaf(table, &e.MajorAxisM, true, group, "major_axis_m"); !ok {
		return msg, false
	}
	if msg, ok := floatLeaf(table, &e.MinorAxisM, true, group, "minor_axis_m"); !ok {
		return msg, false
	}
	if msg, ok := floatLeaf(table, &e.MajorAxisPaDegrees, false, group, "major_axis_pa_degrees"); !ok {
		return msg, false
	}
	if !(e.MajorAxisM > 0) || !(e.MinorAxisM > 0) {
		return group + ": axes must be > 0", false
	}
	return "", true
}

func validateParameterTableAndFillRun(table map[string]interface{}, run *RunParameters) (string, bool) {
	msg := "No problem found in parameter file" // Initialize msg to presumed success.

	// Defaults for optional entries
	run.NumZ = 10
	run.OutputPath = "fresnel_volume.raw"
	run.WriteNPY = true
	run.Workers = 1
	run.Transform = "gonum"

	if m, ok := boolLeaf(table, &run.ShowInput, "show_input_bool"); !ok {
		return m, false
	}
	if m, ok := stringLeaf(table, &run.Title, false, "title"); !ok {
		return m, false
	}
	if m, ok := floatLeaf(table, &run.WavelengthM, true, "wavelength_m"); !ok {
		return m, false
	}
	if !(run.WavelengthM > 0) {
		return "wavelength_m: must be > 0", false
	}

	if m, ok := intLeaf(table, &run.GridPoints, true, "grid_points"); !ok {
		return m, false
	}
	if run.GridPoints < 2 || run.GridPoints%2 != 0 {
		return "grid_points: must be a positive even number", false
	}

	_, windowGiven := getLeafValue(table, "window_m")
	_, multiplierGiven := getLeafValue(table, "window_multiplier")
	switch {
	case windowGiven && multiplierGiven:
		return "window_m and window_multiplier: give only one", false
	case windowGiven:
		if m, ok := floatLeaf(table, &run.WindowM, true, "window_m"); !ok {
			return m, false
		}
		if !(run.WindowM > 0) {
			return "window_m: must be > 0", false
		}
	default:
		run.WindowMultiplier = 4.0 // the window spans four characteristic sizes
		if m, ok := floatLeaf(table, &run.WindowMultiplier, false, "window_multiplier"); !ok {
			return m, false
		}
		if !(run.WindowMultiplier > 0) {
			return "window_multiplier: must be > 0", false
		}
	}

	// The aperture group is required
	if _, ok := getLeafValue(table, "aperture"); !ok {
		return "aperture group not found and is required.", false
	}
	ap := &run.Aperture
	if m, ok := stringLeaf(table, &ap.Shape, true, "aperture", "shape"); !ok {
		return m, false
	}
	if m, ok := boolLeaf(table, &ap.Occulter, "aperture", "occulter_bool"); !ok {
		return m, false
	}
	switch ap.Shape {
	case "circle":
		if m, ok := floatLeaf(table, &ap.RadiusM, true, "aperture", "radius_m"); !ok {
			return m, false
		}
		if !(ap.RadiusM > 0) {
			return "aperture.radius_m: must be > 0", false
		}
	case "horizontal_slit":
		if m, ok := floatLeaf(table, &ap.HeightM, true, "aperture", "height_m"); !ok {
			return m, false
		}
		if !(ap.HeightM > 0) {
			return "aperture.height_m: must be > 0", false
		}
	case "vertical_slit":
		if m, ok := floatLeaf(table, &ap.WidthM, true, "aperture", "width_m"); !ok {
			return m, false
		}
		if !(ap.WidthM > 0) {
			return "aperture.width_m: must be > 0", false
		}
	case "rectangle":
		if m, ok := floatLeaf(table, &ap.WidthM, true, "aperture", "width_m"); !ok {
			return m, false
		}
		if m, ok := floatLeaf(table, &ap.HeightM, true, "aperture", "height_m"); !ok {
			return m, false
		}
		if !(ap.WidthM > 0) || !(ap.HeightM > 0) {
			return "aperture: rectangle width_m and height_m must be > 0", false
		}
	case "ellipse":
		if m, ok := validateEllipse(table, "aperture", &ap.Ellipse); !ok {
			return m, false
		}
	case "mask":
		if m, ok := stringLeaf(table, &ap.PathToMaskPNG, true, "aperture", "path_to_mask_png"); !ok {
			return m, false
		}
		if !windowGiven {
			return "window_m: not found (required for a mask aperture)", false
		}
	default:
		return fmt.Sprintf("aperture.shape: %q is not one of circle, horizontal_slit, vertical_slit, rectangle, ellipse, mask", ap.Shape), false
	}

	// Check to see if a satellite group is present --- it is optional
	_, run.SatelliteGiven = getLeafValue(table, "satellite")
	if run.SatelliteGiven {
		if ap.Shape == "mask" {
			return "satellite: cannot be combined with a mask aperture", false
		}
		if m, ok := validateEllipse(table, "satellite", &run.Satellite); !ok {
			return m, false
		}
	}

	if m, ok := floatLeaf(table, &run.ZMinM, true, "z_min_m"); !ok {
		return m, false
	}
	if m, ok := floatLeaf(table, &run.ZMaxM, true, "z_max_m"); !ok {
		return m, false
	}
	if run.ZMinM < 0 || run.ZMaxM < run.ZMinM {
		return "z_min_m, z_max_m: need 0 <= z_min_m <= z_max_m", false
	}
	if m, ok := intLeaf(table, &run.NumZ, false, "num_z"); !ok {
		return m, false
	}
	if run.NumZ < 1 {
		return "num_z: must be at least 1", false
	}

	if m, ok := stringLeaf(table, &run.OutputPath, false, "output_path"); !ok {
		return m, false
	}
	if m, ok := boolLeaf(table, &run.WriteNPY, "write_npy_bool"); !ok {
		return m, false
	}
	if m, ok := boolLeaf(table, &run.Preview, "preview_bool"); !ok {
		return m, false
	}
	if m, ok := intLeaf(table, &run.Workers, false, "workers"); !ok {
		return m, false
	}
	if m, ok := stringLeaf(table, &run.Transform, false, "transform"); !ok {
		return m, false
	}
	if _, ok := fresnel.TransformByName(run.Transform); !ok {
		return fmt.Sprintf("transform: %q is not one of gonum, dsp", run.Transform), false
	}

	return msg, true
}

func (e EllipseParameters) shape() fresnel.Ellipse {
	return fresnel.Ellipse{
		X0:           e.XCenterM,
		Y0:           e.YCenterM,
		MajorAxis:    e.MajorAxisM,
		MinorAxis:    e.MinorAxisM,
		ThetaDegrees: e.MajorAxisPaDegrees,
	}
}

// characteristicSize is the length window_multiplier scales: the radius of a circle,
// the slit height or width, the longer rectangle side or the ellipse major axis.
func (run *RunParameters) characteristicSize() float64 {
	ap := run.Aperture
	switch ap.Shape {
	case "circle":
		return ap.RadiusM
	case "horizontal_slit":
		return ap.HeightM
	case "vertical_slit":
		return ap.WidthM
	case "rectangle":
		return math.Max(ap.WidthM, ap.HeightM)
	case "ellipse":
		return ap.Ellipse.MajorAxisM
	}
	return 0
}

// halfSize is the aperture half-size used by the accuracy diagnostics.
func (run *RunParameters) halfSize() float64 {
	ap := run.Aperture
	switch ap.Shape {
	case "circle":
		return ap.RadiusM
	case "horizontal_slit":
		return ap.HeightM / 2
	case "vertical_slit":
		return ap.WidthM / 2
	case "rectangle":
		return math.Max(ap.WidthM, ap.HeightM) / 2
	case "ellipse":
		return ap.Ellipse.MajorAxisM / 2
	}
	return 0
}

// windowSize returns the physical window L, explicit or from the multiplier.
func (run *RunParameters) windowSize() float64 {
	if run.WindowM > 0 {
		return run.WindowM
	}
	return run.WindowMultiplier * run.characteristicSize()
}

// buildAperture samples the configured aperture. For a mask the image size must equal
// grid_points and the diagnostic half-size is that of a disk with the same open area.
func buildAperture(run *RunParameters, g *fresnel.Grid) (*fresnel.Aperture, float64, error) {
	ap := run.Aperture
	if ap.Shape == "mask" {
		mask, err := preview.LoadMaskPNG(ap.PathToMaskPNG)
		if err != nil {
			return nil, 0, err
		}
		if len(mask) != g.N {
			return nil, 0, fmt.Errorf("%w: mask %q is %dx%d but grid_points is %d",
				fresnel.ErrShapeMismatch, ap.PathToMaskPNG, len(mask), len(mask), g.N)
		}
		if ap.Occulter {
			for _, row := range mask {
				for i := range row {
					row[i] = 1 - row[i]
				}
			}
		}
		aperture, err := fresnel.MaskAperture(mask)
		if err != nil {
			return nil, 0, err
		}
		open := aperture.OpenFraction()
		if ap.Occulter {
			open = 1 - open
		}
		return aperture, math.Sqrt(open * g.L * g.L / math.Pi), nil
	}

	var body fresnel.Shape
	switch ap.Shape {
	case "circle":
		body = fresnel.Circle{Radius: ap.RadiusM}
	case "horizontal_slit":
		body = fresnel.HorizontalSlit{Height: ap.HeightM}
	case "vertical_slit":
		body = fresnel.VerticalSlit{Width: ap.WidthM}
	case "rectangle":
		body = fresnel.Rectangle{Width: ap.WidthM, Height: ap.HeightM}
	case "ellipse":
		body = ap.Ellipse.shape()
	default:
		return nil, 0, fmt.Errorf("%w: unknown shape %q", fresnel.ErrInvalidAperture, ap.Shape)
	}
	if run.SatelliteGiven {
		body = fresnel.Union{body, run.Satellite.shape()}
	}
	if ap.Occulter {
		body = fresnel.Complement{Shape: body}
	}

	aperture, err := fresnel.GenerateAperture(body, g)
	if err != nil {
		return nil, 0, err
	}
	return aperture, run.halfSize(), nil
}
