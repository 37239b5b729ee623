// Package ephemeris locates the Sun and decides whether an orbiting body is
// lit or in the Earth's shadow.
package ephemeris

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

const (
	// EarthRadius is the WGS84 equatorial radius in km.
	EarthRadius = 6378.137
	// AstronomicalUnit in km.
	AstronomicalUnit = 149597870.7

	j2000        = 2451545.0
	unixEpochJD  = 2440587.5
	secondsInDay = 86400
	deg          = math.Pi / 180
)

// JulianDate returns the Julian date of t.
func JulianDate(t time.Time) float64 {
	return float64(t.UnixNano())/1e9/secondsInDay + unixEpochJD
}

// SunPosition returns the geocentric equatorial position of the Sun in km,
// accurate to about 0.01 degrees between 1950 and 2050.
func SunPosition(t time.Time) record.Vector {
	n := JulianDate(t) - j2000

	l := 280.460 + 0.9856474*n
	g := (357.528 + 0.9856003*n) * deg
	lambda := (l + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)) * deg
	epsilon := (23.439 - 0.0000004*n) * deg
	r := (1.00014 - 0.01671*math.Cos(g) - 0.00014*math.Cos(2*g)) * AstronomicalUnit

	return record.Vector{
		X: r * math.Cos(lambda),
		Y: r * math.Cos(epsilon) * math.Sin(lambda),
		Z: r * math.Sin(epsilon) * math.Sin(lambda),
	}
}

// InShadow reports whether a body at sat lies in the cylindrical shadow the
// Earth casts away from sun. Both positions are geocentric, in km.
func InShadow(sat, sun record.Vector) bool {
	s := r3.Unit(toVec(sun))
	p := toVec(sat)

	along := r3.Dot(p, s)
	if along >= 0 {
		return false
	}
	return r3.Norm(r3.Sub(p, r3.Scale(along, s))) < EarthRadius
}

// Sunlit reports whether a body at the geocentric position sat (km) is in
// direct sunlight at t.
func Sunlit(sat record.Vector, t time.Time) bool {
	return !InShadow(sat, SunPosition(t))
}

func toVec(v record.Vector) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}
