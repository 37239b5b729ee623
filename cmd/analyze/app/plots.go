package app

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/roman-kulish/geomag-logger/internal/analysis"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 6 * vg.Inch
)

var (
	dayColor   = color.RGBA{R: 230, G: 160, A: 255}
	nightColor = color.RGBA{R: 40, G: 60, B: 200, A: 255}
	modelColor = color.RGBA{R: 30, G: 160, B: 60, A: 255}
)

// axis selects the horizontal coordinate of a plot.
type axis struct {
	name  string
	label string
	value func(analysis.Sample) float64
}

var (
	latitudeAxis  = axis{"latitude", "latitude (deg)", func(s analysis.Sample) float64 { return s.Latitude }}
	longitudeAxis = axis{"longitude", "longitude (deg)", func(s analysis.Sample) float64 { return s.Longitude }}
)

// series is one scatter of a plot.
type series struct {
	name  string
	color color.Color
	data  []analysis.Sample
	value func(analysis.Sample) float64
}

func measured(s analysis.Sample) float64 { return s.Measured }
func modelled(s analysis.Sample) float64 { return s.Model }
func difference(s analysis.Sample) float64 { return s.Difference }

// comparisonPlots returns the intensity and difference plots keyed by file
// name.
func comparisonPlots(samples []analysis.Sample) (map[string]*plot.Plot, error) {
	day, night := analysis.Split(samples)

	plots := make(map[string]*plot.Plot)
	for _, ax := range []axis{latitudeAxis, longitudeAxis} {
		p, err := scatterPlot(
			fmt.Sprintf("Field intensity vs %s", ax.name), ax, "intensity (µT)",
			series{"measured, sunlit", dayColor, day, measured},
			series{"measured, eclipse", nightColor, night, measured},
			series{"model", modelColor, samples, modelled},
		)
		if err != nil {
			return nil, fmt.Errorf("plotting intensity vs %s: %w", ax.name, err)
		}
		plots["intensity_"+ax.name+".png"] = p

		p, err = scatterPlot(
			fmt.Sprintf("Model - measured vs %s", ax.name), ax, "difference (µT)",
			series{"sunlit", dayColor, day, difference},
			series{"eclipse", nightColor, night, difference},
		)
		if err != nil {
			return nil, fmt.Errorf("plotting difference vs %s: %w", ax.name, err)
		}
		plots["difference_"+ax.name+".png"] = p
	}
	return plots, nil
}

func scatterPlot(title string, ax axis, yLabel string, ss ...series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = ax.label
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for _, s := range ss {
		if len(s.data) == 0 {
			continue
		}

		pts := make(plotter.XYs, len(s.data))
		for i, smp := range s.data {
			pts[i].X = ax.value(smp)
			pts[i].Y = s.value(smp)
		}

		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = s.color
		sc.GlyphStyle.Radius = vg.Points(1)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}

		p.Add(sc)
		p.Legend.Add(s.name, sc)
	}
	return p, nil
}
