package app

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/roman-kulish/geomag-logger/internal/analysis"
)

// DiffMap is an intensity difference raster with its colour scale.
type DiffMap struct {
	Grid    *Grid
	Min     float64
	Max     float64
	Summary analysis.Summary
}

// NewDiffMap rasterizes samples. The colour scale spans the data unless
// minDiff or maxDiff override it.
func NewDiffMap(samples []analysis.Sample, pixelsPerDeg int, minDiff, maxDiff *float64) *DiffMap {
	g := NewGrid(pixelsPerDeg)
	g.Add(samples)

	lo, hi, _ := g.Bounds()
	if minDiff != nil {
		lo = *minDiff
	}
	if maxDiff != nil {
		hi = *maxDiff
	}

	return &DiffMap{
		Grid:    g,
		Min:     lo,
		Max:     hi,
		Summary: analysis.Summarize(samples),
	}
}

// Image renders the map, optionally annotated.
func (m *DiffMap) Image(annotate bool) (*image.RGBA, error) {
	g := m.Grid
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(noDataColor), image.Point{}, draw.Src)

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if v := g.Value(x, y); v != nil {
				img.Set(x, y, pixelColor(v, m.Min, m.Max))
			}
		}
	}

	if !annotate {
		return img, nil
	}

	ann, err := NewAnnotator()
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	if err = ann.Annotate(img, m); err != nil {
		return nil, fmt.Errorf("annotating map: %w", err)
	}
	return img, nil
}

func encodeImage(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{
			Quality: 98,
		})
	default:
		return png.Encode(w, img)
	}
}
