package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// StepTicks places a tick every Step units, labelled with Format.
type StepTicks struct {
	Step   float64
	Format string
}

// Ticks implements plot.Ticker.
func (t StepTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	if t.Step <= 0 || math.IsNaN(t.Step) {
		return ticks
	}
	start := math.Ceil(min/t.Step) * t.Step
	for v := start; v <= max; v += t.Step {
		ticks = append(ticks, plot.Tick{
			Value: v,
			Label: fmt.Sprintf(t.Format, v),
		})
	}
	return ticks
}

func setLiberationFonts(p *plot.Plot) {
	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = vg.Points(12)

	p.X.Label.TextStyle.Font.Typeface = "Liberation"
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = vg.Points(12)

	p.Y.Label.TextStyle.Font.Typeface = "Liberation"
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)

	p.X.Tick.Label.Font.Typeface = "Liberation"
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Tick.Label.Font.Size = vg.Points(10)

	p.Y.Tick.Label.Font.Typeface = "Liberation"
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Tick.Label.Font.Size = vg.Points(10)
}

// PlotAxialProfile renders the on-axis intensity against propagation distance as an
// in-memory image of wPx by hPx pixels. Distances are shown in millimetres.
func PlotAxialProfile(profile []Point, title string, wPx, hPx float64) (image.Image, error) {
	if len(profile) == 0 {
		return nil, errors.New("empty axial profile")
	}

	p := plot.New()
	setLiberationFonts(p)

	p.Title.Text = title
	p.X.Label.Text = "propagation distance (mm)"
	p.Y.Label.Text = "normalized intensity"

	p.Y.Min = 0.0
	p.Y.Max = 1.1
	p.Y.Tick.Marker = StepTicks{Step: 0.1, Format: "%.1f"}

	zFirst := profile[0].Z * 1000
	zLast := profile[len(profile)-1].Z * 1000
	if span := zLast - zFirst; span > 0 {
		p.X.Tick.Marker = StepTicks{Step: span / 10, Format: "%.1f"}
	}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(profile))
	for i, pt := range profile {
		pts[i].X = pt.Z * 1000
		pts[i].Y = pt.Intensity
	}

	linePoints, scatterPoints, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	linePoints.Color = color.RGBA{R: 0, G: 0, B: 255, A: 255} // blue
	linePoints.Width = vg.Points(1)

	scatterPoints.Shape = draw.CircleGlyph{}
	scatterPoints.Radius = vg.Points(2)
	scatterPoints.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}

	p.Add(linePoints, scatterPoints)

	// Render into an in-memory image
	const dpi = 96
	width := vg.Length(wPx) * vg.Inch / dpi
	height := vg.Length(hPx) * vg.Inch / dpi

	c := vgimg.New(width, height)
	dc := draw.New(c)
	p.Draw(dc)

	return c.Image(), nil
}

// SaveAxialProfilePlot creates and saves an axial profile plot to a PNG file.
func SaveAxialProfilePlot(filename string, profile []Point, title string, wPx, hPx float64) error {
	img, err := PlotAxialProfile(profile, title, wPx, hPx)
	if err != nil {
		return err
	}
	return SavePNG(filename, img)
}
