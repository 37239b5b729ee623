package app

import (
	"fmt"
	"image"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi     float64 = 72
	hinting string  = "full"
	size    float64 = 12
	spacing float64 = 1.1

	degPerLabel = 30
	legendWidth = 120
)

type Annotator struct {
	context *freetype.Context
}

func NewAnnotator() (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(size)
	context.SetSrc(image.White)

	switch hinting {
	case "full":
		context.SetHinting(font.HintingFull)
	default:
		context.SetHinting(font.HintingNone)
	}

	return &Annotator{context: context}, nil
}

func (a *Annotator) Annotate(img *image.RGBA, m *DiffMap) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, *DiffMap) error
	}{
		{"drawing longitude scale", a.drawXScale},
		{"drawing latitude scale", a.drawYScale},
		{"drawing legend", a.drawLegend},
		{"drawing info", a.drawInfo},
	}
	for _, op := range ops {
		if err := op.fn(img, m); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *Annotator) drawXScale(img *image.RGBA, m *DiffMap) error {
	g := m.Grid
	for lon := -180; lon < 180; lon += degPerLabel {
		px := (lon + 180) * g.PixelsPerDeg

		// guideline on the exact meridian
		for i := 0; i < 20; i++ {
			img.Set(px, i, image.White)
		}

		pt := freetype.Pt(px+3, 12)
		if _, err := a.context.DrawString(fmt.Sprintf("%d°", lon), pt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Annotator) drawYScale(img *image.RGBA, m *DiffMap) error {
	g := m.Grid
	for lat := 90 - degPerLabel; lat > -90; lat -= degPerLabel {
		px := (90 - lat) * g.PixelsPerDeg

		// guideline on the exact parallel
		for i := 0; i < 40; i++ {
			img.Set(i, px, image.White)
		}

		// 3 px margin to the line
		pt := freetype.Pt(3, px-3)
		if _, err := a.context.DrawString(fmt.Sprintf("%d°", lat), pt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Annotator) drawLegend(img *image.RGBA, m *DiffMap) error {
	imgSize := img.Bounds().Size()
	left, top := imgSize.X-legendWidth-10, imgSize.Y-30

	for i := 0; i < legendWidth; i++ {
		v := m.Min + (m.Max-m.Min)*float64(i)/float64(legendWidth-1)
		c := pixelColor(&v, m.Min, m.Max)
		for j := 0; j < 8; j++ {
			img.Set(left+i, top+j, c)
		}
	}

	pt := freetype.Pt(left, top+20)
	if _, err := a.context.DrawString(a.humanTesla(m.Min), pt); err != nil {
		return err
	}
	pt = freetype.Pt(left+legendWidth-40, top+20)
	_, err := a.context.DrawString(a.humanTesla(m.Max), pt)
	return err
}

func (a *Annotator) drawInfo(img *image.RGBA, m *DiffMap) error {
	s := m.Summary

	imgSize := img.Bounds().Size()
	top, left := imgSize.Y-80, 3

	lines := []string{
		"Mission start: " + s.Start.UTC().Format(time.DateTime),
		"Mission end: " + s.End.UTC().Format(time.DateTime),
		fmt.Sprintf("Samples: %s (%d sunlit, %d eclipse), %s cells", humanize.Comma(int64(s.Samples)), s.Sunlit, s.Eclipse, humanize.Comma(int64(m.Grid.Filled()))),
		fmt.Sprintf("Model - measured: %s ± %s", a.humanTesla(s.Difference.Mean), a.humanTesla(s.Difference.StdDev)),
		fmt.Sprintf("1 pixel = %0.2f° x %0.2f°", 1/float64(m.Grid.PixelsPerDeg), 1/float64(m.Grid.PixelsPerDeg)),
	}

	pt := freetype.Pt(left, top)
	for _, l := range lines {
		if _, err := a.context.DrawString(l, pt); err != nil {
			return err
		}
		pt.Y += a.context.PointToFixed(size * spacing)
	}
	return nil
}

// humanTesla formats a value in µT with an SI prefix.
func (a *Annotator) humanTesla(microTesla float64) string {
	v, prefix := humanize.ComputeSI(microTesla * 1e-6)
	return fmt.Sprintf("%0.2f %sT", v, prefix)
}
