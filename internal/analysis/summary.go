package analysis

import (
	"log/slog"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	geo "github.com/kellydunn/golang-geo"
	"gonum.org/v1/gonum/stat"
)

// Moments are the mean and standard deviation of a series.
type Moments struct {
	Mean   float64
	StdDev float64
}

func moments(x []float64) Moments {
	if len(x) == 0 {
		return Moments{Mean: math.NaN(), StdDev: math.NaN()}
	}
	mean, std := stat.MeanStdDev(x, nil)
	return Moments{Mean: mean, StdDev: std}
}

// Summary describes a joined dataset.
type Summary struct {
	Samples int
	Sunlit  int
	Eclipse int
	Start   time.Time
	End     time.Time

	Measured   Moments
	Model      Moments
	Difference Moments
	DayDiff    Moments
	NightDiff  Moments

	// Correlation is the Pearson correlation of measured and modelled
	// intensity, NaN with fewer than two samples.
	Correlation float64

	// GroundTrack is the great-circle length of the sub-satellite path in km.
	GroundTrack float64
}

// Summarize computes statistics over samples.
func Summarize(samples []Sample) Summary {
	s := Summary{Samples: len(samples), Correlation: math.NaN()}

	measured := make([]float64, len(samples))
	model := make([]float64, len(samples))
	diff := make([]float64, len(samples))
	var dayDiff, nightDiff []float64

	var prev *geo.Point
	for i, smp := range samples {
		measured[i] = smp.Measured
		model[i] = smp.Model
		diff[i] = smp.Difference

		if smp.Sunlit {
			s.Sunlit++
			dayDiff = append(dayDiff, smp.Difference)
		} else {
			s.Eclipse++
			nightDiff = append(nightDiff, smp.Difference)
		}

		if i == 0 || smp.Time.Before(s.Start) {
			s.Start = smp.Time
		}
		if smp.Time.After(s.End) {
			s.End = smp.Time
		}

		p := geo.NewPoint(smp.Latitude, smp.Longitude)
		if prev != nil {
			s.GroundTrack += prev.GreatCircleDistance(p)
		}
		prev = p
	}

	s.Measured = moments(measured)
	s.Model = moments(model)
	s.Difference = moments(diff)
	s.DayDiff = moments(dayDiff)
	s.NightDiff = moments(nightDiff)
	if len(samples) > 1 {
		s.Correlation = stat.Correlation(measured, model, nil)
	}
	return s
}

// LogValue implements slog.LogValuer.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("samples", humanize.Comma(int64(s.Samples))),
		slog.Int("sunlit", s.Sunlit),
		slog.Int("eclipse", s.Eclipse),
		slog.Duration("span", s.End.Sub(s.Start)),
		slog.String("groundTrack", humanize.CommafWithDigits(s.GroundTrack, 1)+" km"),
		slog.Float64("measuredMean", s.Measured.Mean),
		slog.Float64("modelMean", s.Model.Mean),
		slog.Float64("differenceMean", s.Difference.Mean),
		slog.Float64("differenceStdDev", s.Difference.StdDev),
		slog.Float64("correlation", s.Correlation),
	)
}
