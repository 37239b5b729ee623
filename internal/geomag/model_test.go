package geomag

import (
	"math"
	"strings"
	"testing"
	"time"
)

const (
	g10, g11, h11    = -29404.8, -1450.9, 4652.5
	dg10, dg11, dh11 = 5.7, 7.4, -25.9
)

var epoch2020 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func closeTo(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDipole_Equator(t *testing.T) {
	f := Dipole().FieldAt(0, 0, 0, epoch2020)

	k := math.Pow(ReferenceRadius/wgs84A, 3)
	expected := Field{X: -k * g10, Y: -k * h11, Z: -2 * k * g11}

	if !closeTo(f.X, expected.X, 1e-6) || !closeTo(f.Y, expected.Y, 1e-6) || !closeTo(f.Z, expected.Z, 1e-6) {
		t.Errorf("expected %+v, got %+v", expected, f)
	}
}

func TestDipole_NorthPole(t *testing.T) {
	testCases := []struct {
		name          string
		at            time.Time
		g10, g11, h11 float64
	}{
		{"epoch", epoch2020, g10, g11, h11},
		{"five years on", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), g10 + 5*dg10, g11 + 5*dg11, h11 + 5*dh11},
	}

	polarRadius := wgs84A * (1 - wgs84F)
	k := math.Pow(ReferenceRadius/polarRadius, 3)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := Dipole().FieldAt(90, 0, 0, tc.at)
			expected := k * math.Sqrt(4*tc.g10*tc.g10+tc.g11*tc.g11+tc.h11*tc.h11)
			// the decimal year of 2025-01-01 is exact, so the tolerance covers only rounding
			if !closeTo(f.Intensity(), expected, 1e-3) {
				t.Errorf("expected %f nT, got %f nT", expected, f.Intensity())
			}
			if f.Z <= 0 {
				t.Errorf("field must point down in the north, got Z=%f", f.Z)
			}
		})
	}
}

func TestDipole_Plausible(t *testing.T) {
	m := Dipole()
	at := time.Date(2022, 4, 4, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		lat, lon float64
		height   float64
	}{
		{"london", 51.5, -0.1, 0},
		{"sydney", -33.9, 151.2, 0},
		{"iss over pacific", 12, -150, 420},
		{"iss over atlantic", -45, -20, 420},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := m.FieldAt(tc.lat, tc.lon, tc.height, at)
			if ut := f.Intensity() / 1000; ut < 20 || ut > 70 {
				t.Errorf("implausible intensity %f µT", ut)
			}
			// inclination follows the hemisphere
			if (tc.lat > 20) != (f.Inclination() > 0) && math.Abs(tc.lat) > 20 {
				t.Errorf("unexpected inclination %f at latitude %f", f.Inclination(), tc.lat)
			}
		})
	}

	low := m.FieldAt(12, -150, 0, at).Intensity()
	high := m.FieldAt(12, -150, 420, at).Intensity()
	if high >= low {
		t.Errorf("field must weaken with height: %f at ground, %f at 420 km", low, high)
	}
}

func TestLegendre(t *testing.T) {
	theta := 0.7
	x, s := math.Cos(theta), math.Sin(theta)
	p, dp := legendre(3, x, s)

	testCases := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"P10", p[1][0], x},
		{"P11", p[1][1], s},
		{"P20", p[2][0], (3*x*x - 1) / 2},
		{"P21", p[2][1], math.Sqrt(3) * x * s},
		{"P22", p[2][2], math.Sqrt(3) / 2 * s * s},
		{"P30", p[3][0], (5*x*x*x - 3*x) / 2},
		{"P33", p[3][3], math.Sqrt(10) / 4 * s * s * s},
		{"dP10", dp[1][0], -s},
		{"dP20", dp[2][0], -3 * x * s},
		{"dP22", dp[2][2], math.Sqrt(3) * s * x},
	}

	for _, tc := range testCases {
		if !closeTo(tc.got, tc.expected, 1e-12) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, tc.got)
		}
	}
}

func TestDecimalYear(t *testing.T) {
	testCases := []struct {
		t        time.Time
		expected float64
	}{
		{epoch2020, 2020},
		{time.Date(2020, 7, 2, 0, 0, 0, 0, time.UTC), 2020 + 183.0/366},
		{time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC), 2022 + 364.0/365},
	}

	for _, tc := range testCases {
		if got := DecimalYear(tc.t); !closeTo(got, tc.expected, 1e-9) {
			t.Errorf("%s: expected %f, got %f", tc.t, tc.expected, got)
		}
	}
}

func TestNewModel_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		coeffs []Coefficient
	}{
		{"empty", nil},
		{"degree zero", []Coefficient{{N: 0, M: 0}}},
		{"order above degree", []Coefficient{{N: 1, M: 2}}},
		{"negative order", []Coefficient{{N: 1, M: -1}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewModel("test", 2020, tc.coeffs); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadCOF(t *testing.T) {
	cof := strings.Join([]string{
		"    2020.0            IGRF-DIPOLE        01/01/2020",
		"  1  0  -29404.8       0.0        5.7        0.0",
		"  1  1   -1450.9    4652.5        7.4      -25.9",
		"999999999999999999999999999999999999999999999999",
		"999999999999999999999999999999999999999999999999",
	}, "\n")

	m, err := LoadCOF(strings.NewReader(cof))
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "IGRF-DIPOLE" || m.Epoch != 2020 || m.Degree() != 1 {
		t.Errorf("unexpected model %s %f degree %d", m.Name, m.Epoch, m.Degree())
	}

	at := time.Date(2022, 4, 4, 0, 0, 0, 0, time.UTC)
	if got, want := m.FieldAt(30, 60, 400, at), Dipole().FieldAt(30, 60, 400, at); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestWMM2020(t *testing.T) {
	m, err := WMM2020()
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "WMM-2020" || m.Epoch != 2020 || m.Degree() != 12 {
		t.Fatalf("unexpected model %s %f degree %d", m.Name, m.Epoch, m.Degree())
	}

	// published WMM2020 test values
	testCases := []struct {
		lat, lon float64
		expected Field
	}{
		{80, 0, Field{X: 6570.4, Y: -146.3, Z: 54606.0}},
		{0, 120, Field{X: 39624.3, Y: 109.9, Z: -10932.5}},
		{-80, 240, Field{X: 5940.6, Y: 15772.1, Z: -52480.8}},
	}

	for _, tc := range testCases {
		f := m.FieldAt(tc.lat, tc.lon, 0, epoch2020)
		if !closeTo(f.X, tc.expected.X, 0.1) || !closeTo(f.Y, tc.expected.Y, 0.1) || !closeTo(f.Z, tc.expected.Z, 0.1) {
			t.Errorf("lat %v lon %v: expected %+v, got %+v", tc.lat, tc.lon, tc.expected, f)
		}
	}
}

func TestWMM2020_SouthAtlanticAnomaly(t *testing.T) {
	m, err := WMM2020()
	if err != nil {
		t.Fatal(err)
	}

	at := time.Date(2022, 4, 4, 12, 0, 0, 0, time.UTC)
	full := m.FieldAt(-26, -50, 420, at).Intensity() / 1000
	if full < 17 || full > 21 {
		t.Errorf("expected ~19 µT inside the anomaly, got %f", full)
	}
	if dipole := Dipole().FieldAt(-26, -50, 420, at).Intensity() / 1000; dipole-full < 5 {
		t.Errorf("the dipole should overestimate the anomaly: dipole %f, full %f", dipole, full)
	}
}

func TestLoadCOF_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		cof  string
	}{
		{"bad epoch", "twenty WMM\n1 0 1 0 0 0\n"},
		{"short line", "2020.0 WMM\n1 0 -29404.8\n"},
		{"bad number", "2020.0 WMM\n1 0 x 0 0 0\n"},
		{"no coefficients", "2020.0 WMM\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadCOF(strings.NewReader(tc.cof)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
