package app

import (
	"math"

	"github.com/roman-kulish/geomag-logger/internal/analysis"
)

type cell struct {
	sum float64
	n   int
}

// Grid is an equirectangular raster of mean intensity differences. Row 0 is
// latitude 90, column 0 is longitude -180.
type Grid struct {
	PixelsPerDeg int
	Width        int
	Height       int

	cells  []cell
	filled int
}

func NewGrid(pixelsPerDeg int) *Grid {
	w, h := 360*pixelsPerDeg, 180*pixelsPerDeg
	return &Grid{
		PixelsPerDeg: pixelsPerDeg,
		Width:        w,
		Height:       h,
		cells:        make([]cell, w*h),
	}
}

// Add accumulates the difference of every sample into its cell.
func (g *Grid) Add(samples []analysis.Sample) {
	for _, s := range samples {
		g.add(s.Latitude, s.Longitude, s.Difference)
	}
}

func (g *Grid) add(lat, lon, v float64) {
	x, y := g.pixel(lat, lon)
	c := &g.cells[y*g.Width+x]
	if c.n == 0 {
		g.filled++
	}
	c.sum += v
	c.n++
}

func (g *Grid) pixel(lat, lon float64) (x, y int) {
	ppd := float64(g.PixelsPerDeg)
	x = int(math.Floor((lon + 180) * ppd))
	y = int(math.Floor((90 - lat) * ppd))
	return min(max(x, 0), g.Width-1), min(max(y, 0), g.Height-1)
}

// Value returns the mean difference of a cell, nil if no sample fell in it.
func (g *Grid) Value(x, y int) *float64 {
	c := g.cells[y*g.Width+x]
	if c.n == 0 {
		return nil
	}
	v := c.sum / float64(c.n)
	return &v
}

// Filled returns the number of cells holding at least one sample.
func (g *Grid) Filled() int {
	return g.filled
}

// Bounds returns the smallest and largest cell means. ok is false for an
// empty grid.
func (g *Grid) Bounds() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, c := range g.cells {
		if c.n == 0 {
			continue
		}
		v := c.sum / float64(c.n)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}
