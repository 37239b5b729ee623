// Package orbit computes the position of a satellite from its two-line
// elements with the SGP4 propagator.
package orbit

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/joshuaferrara/go-satellite"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

const gravityModel = "wgs84"

// WithClock sets the clock used by Coordinates.
func WithClock(clock func() time.Time) func(*Provider) {
	return func(p *Provider) {
		p.clock = clock
	}
}

// WithLogger sets the logger for the provider
func WithLogger(logger *slog.Logger) func(*Provider) {
	return func(p *Provider) {
		p.logger = logger
	}
}

// Provider propagates one satellite.
type Provider struct {
	tle   TLE
	sat   satellite.Satellite
	clock func() time.Time

	logger *slog.Logger
}

// NewProvider initialises the propagator from validated elements.
func NewProvider(tle TLE, options ...func(*Provider)) (*Provider, error) {
	if _, err := ParseTLE(tle.Name, tle.Line1, tle.Line2); err != nil {
		return nil, err
	}

	p := Provider{
		tle:    tle,
		sat:    satellite.TLEToSat(tle.Line1, tle.Line2, gravityModel),
		clock:  time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&p)
	}

	p.logger.Debug("orbit propagator ready", slog.String("satellite", tle.Name))

	return &p, nil
}

// Name returns the satellite name.
func (p *Provider) Name() string {
	return p.tle.Name
}

// Coordinates returns the sub-satellite point at the current time.
func (p *Provider) Coordinates() (record.Position, error) {
	return p.PositionAt(p.clock())
}

// PositionAt returns the geodetic latitude and longitude in degrees and the
// elevation above the ellipsoid in km at t.
func (p *Provider) PositionAt(t time.Time) (record.Position, error) {
	t = t.UTC()
	pos, err := p.eci(t)
	if err != nil {
		return record.Position{}, err
	}

	alt, _, ll := satellite.ECIToLLA(pos, satellite.ThetaG_JD(julianDate(t)))
	deg := satellite.LatLongDeg(ll)

	return record.Position{
		Latitude:  deg.Latitude,
		Longitude: wrapLongitude(deg.Longitude),
		Elevation: alt,
	}, nil
}

// ECIAt returns the Earth-centred inertial position in km at t.
func (p *Provider) ECIAt(t time.Time) (record.Vector, error) {
	pos, err := p.eci(t.UTC())
	if err != nil {
		return record.Vector{}, err
	}
	return record.Vector{X: pos.X, Y: pos.Y, Z: pos.Z}, nil
}

// eci interpolates linearly between the whole seconds around t, since the
// propagator takes whole seconds only.
func (p *Provider) eci(t time.Time) (satellite.Vector3, error) {
	base := t.Truncate(time.Second)
	a, err := p.propagate(base)
	if err != nil {
		return satellite.Vector3{}, err
	}

	frac := float64(t.Sub(base)) / float64(time.Second)
	if frac == 0 {
		return a, nil
	}
	b, err := p.propagate(base.Add(time.Second))
	if err != nil {
		return satellite.Vector3{}, err
	}

	return satellite.Vector3{
		X: a.X + (b.X-a.X)*frac,
		Y: a.Y + (b.Y-a.Y)*frac,
		Z: a.Z + (b.Z-a.Z)*frac,
	}, nil
}

func (p *Provider) propagate(t time.Time) (satellite.Vector3, error) {
	pos, _ := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) || (pos.X == 0 && pos.Y == 0 && pos.Z == 0) {
		return satellite.Vector3{}, fmt.Errorf("propagating %s to %s: no solution", p.tle.Name, t.Format(time.RFC3339))
	}
	return pos, nil
}

// julianDate returns the Julian date of t, keeping the fraction of the second.
func julianDate(t time.Time) float64 {
	jd := satellite.JDay(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	return jd + float64(t.Nanosecond())/1e9/86400
}

// wrapLongitude maps a longitude into [-180, 180).
func wrapLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
