// Package analysis joins logged records with a main-field model and the
// platform's ephemeris.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/geomag-logger/internal/dataset"
	"github.com/roman-kulish/geomag-logger/internal/ephemeris"
	"github.com/roman-kulish/geomag-logger/internal/geomag"
	"github.com/roman-kulish/geomag-logger/internal/record"
)

// nanoTesla per microTesla.
const nanoTesla = 1000

// FieldModel evaluates the main field at a geodetic position in km.
type FieldModel interface {
	FieldAt(lat, lon, height float64, t time.Time) geomag.Field
}

// Ephemeris returns the geocentric inertial position of the platform in km.
type Ephemeris interface {
	ECIAt(t time.Time) (record.Vector, error)
}

// Sample is one record joined with its modelled values. Intensities are in µT.
type Sample struct {
	Time       time.Time
	Latitude   float64
	Longitude  float64
	Elevation  float64
	Measured   float64
	Model      float64
	Difference float64 // Model - Measured
	Sunlit     bool
}

// WithLogger sets the logger for the analyzer
func WithLogger(logger *slog.Logger) func(*Analyzer) {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// Analyzer joins records with the field model and the ephemeris.
type Analyzer struct {
	model     FieldModel
	ephemeris Ephemeris
	logger    *slog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(model FieldModel, eph Ephemeris, options ...func(*Analyzer)) (*Analyzer, error) {
	if model == nil {
		return nil, errors.New("field model required")
	}
	if eph == nil {
		return nil, errors.New("ephemeris required")
	}

	a := Analyzer{
		model:     model,
		ephemeris: eph,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&a)
	}

	return &a, nil
}

// Sample joins a single record.
func (a *Analyzer) Sample(r record.Record) (Sample, error) {
	t := r.Time()

	eci, err := a.ephemeris.ECIAt(t)
	if err != nil {
		return Sample{}, fmt.Errorf("propagating to %s: %w", t.UTC().Format(time.RFC3339), err)
	}

	pos := r.Position
	field := a.model.FieldAt(pos.Latitude, pos.Longitude, pos.Elevation, t)

	s := Sample{
		Time:      t,
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Elevation: pos.Elevation,
		Measured:  r.Magnetometer.Magnitude(),
		Model:     field.Intensity() / nanoTesla,
		Sunlit:    ephemeris.Sunlit(eci, t),
	}
	s.Difference = s.Model - s.Measured
	return s, nil
}

// Join reads every record of it and returns the joined samples in order.
// Records the ephemeris cannot place are skipped and counted.
func (a *Analyzer) Join(ctx context.Context, it dataset.Iterator) (samples []Sample, err error) {
	var skipped int
	for it.Next(ctx) {
		s, err := a.Sample(it.Current())
		if err != nil {
			skipped++
			a.logger.Debug("record skipped", slog.String("error", err.Error()))
			continue
		}
		samples = append(samples, s)
	}
	if err = it.Error(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	if skipped > 0 {
		a.logger.Warn("records without ephemeris", slog.Int("skipped", skipped))
	}
	a.logger.Info("records joined", slog.Int("samples", len(samples)))
	return samples, nil
}

// Split partitions samples into sunlit and eclipsed sets, keeping order.
func Split(samples []Sample) (day, night []Sample) {
	for _, s := range samples {
		if s.Sunlit {
			day = append(day, s)
		} else {
			night = append(night, s)
		}
	}
	return day, night
}
