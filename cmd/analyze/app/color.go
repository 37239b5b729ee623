package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	hueStart = 236.0
	hueEnd   = 0.0
)

var noDataColor = color.Black

// pixelColor maps a difference onto a blue to red hue scale between
// minDiff and maxDiff. Values outside the range are clamped.
func pixelColor(diff *float64, minDiff, maxDiff float64) color.Color {
	if diff == nil {
		return noDataColor
	}

	span := maxDiff - minDiff
	if span <= 0 {
		return colorful.Hsv((hueStart+hueEnd)/2, 1, 0.90)
	}
	hPerUnit := (hueStart - hueEnd) / span

	hue := hueStart - (*diff-minDiff)*hPerUnit
	hue = math.Min(math.Max(hue, hueEnd), hueStart)

	return colorful.Hsv(hue, 1, 0.90)
}
