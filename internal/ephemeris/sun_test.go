package ephemeris

import (
	"math"
	"testing"
	"time"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

func TestJulianDate(t *testing.T) {
	testCases := []struct {
		t        time.Time
		expected float64
	}{
		{time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{time.Unix(0, 0), 2440587.5},
		{time.Date(2022, 4, 4, 0, 0, 0, 0, time.UTC), 2459673.5},
	}

	for _, tc := range testCases {
		if got := JulianDate(tc.t); math.Abs(got-tc.expected) > 1e-6 {
			t.Errorf("%s: expected %f, got %f", tc.t, tc.expected, got)
		}
	}
}

func TestSunPosition(t *testing.T) {
	testCases := []struct {
		name string
		t    time.Time
		// approximate right ascension and declination in degrees
		ra, dec float64
	}{
		{"march equinox", time.Date(2022, 3, 20, 15, 33, 0, 0, time.UTC), 0, 0},
		{"june solstice", time.Date(2022, 6, 21, 9, 14, 0, 0, time.UTC), 90, 23.44},
		{"december solstice", time.Date(2022, 12, 21, 21, 48, 0, 0, time.UTC), 270, -23.44},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := SunPosition(tc.t)
			r := s.Magnitude()
			if r < 0.98*AstronomicalUnit || r > 1.02*AstronomicalUnit {
				t.Errorf("distance %f km is not about 1 AU", r)
			}

			dec := math.Asin(s.Z/r) / deg
			ra := math.Mod(math.Atan2(s.Y, s.X)/deg+360, 360)
			if math.Abs(dec-tc.dec) > 0.1 {
				t.Errorf("expected declination %f, got %f", tc.dec, dec)
			}
			if d := math.Abs(math.Remainder(ra-tc.ra, 360)); d > 0.2 {
				t.Errorf("expected right ascension %f, got %f", tc.ra, ra)
			}
		})
	}
}

func TestInShadow(t *testing.T) {
	sun := record.Vector{X: AstronomicalUnit}
	orbit := EarthRadius + 420

	testCases := []struct {
		name     string
		sat      record.Vector
		expected bool
	}{
		{"noon side", record.Vector{X: orbit}, false},
		{"terminator", record.Vector{Y: orbit}, false},
		{"midnight", record.Vector{X: -orbit}, true},
		{"behind, above the pole", record.Vector{X: -orbit / 2, Z: orbit}, false},
		{"behind, inside the cylinder", record.Vector{X: -orbit, Y: EarthRadius - 10}, true},
		{"behind, just outside", record.Vector{X: -orbit, Y: EarthRadius + 10}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InShadow(tc.sat, sun); got != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestSunlit(t *testing.T) {
	at := time.Date(2022, 4, 4, 12, 0, 0, 0, time.UTC)
	sun := SunPosition(at)
	r := sun.Magnitude()
	orbit := EarthRadius + 420

	towards := record.Vector{X: sun.X / r * orbit, Y: sun.Y / r * orbit, Z: sun.Z / r * orbit}
	away := record.Vector{X: -towards.X, Y: -towards.Y, Z: -towards.Z}

	if !Sunlit(towards, at) {
		t.Error("sub-solar point must be lit")
	}
	if Sunlit(away, at) {
		t.Error("anti-solar point must be dark")
	}
}
