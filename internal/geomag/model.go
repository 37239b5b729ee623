// Package geomag evaluates spherical harmonic models of the Earth's main
// magnetic field, such as IGRF and WMM, at geodetic positions.
package geomag

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// ReferenceRadius is the geomagnetic reference radius in km.
	ReferenceRadius = 6371.2

	wgs84A = 6378.137
	wgs84F = 1 / 298.257223563

	minSinColatitude = 1e-12
)

// Coefficient is one Gauss coefficient pair of degree N and order M in nT,
// with its secular variation in nT/year.
type Coefficient struct {
	N, M   int
	G, H   float64
	DG, DH float64
}

// Field is the main field in nT, in the local geodetic frame.
type Field struct {
	X float64 // North
	Y float64 // East
	Z float64 // Down
}

// Intensity returns the total field strength in nT.
func (f Field) Intensity() float64 {
	return math.Sqrt(f.X*f.X + f.Y*f.Y + f.Z*f.Z)
}

// Horizontal returns the horizontal field strength in nT.
func (f Field) Horizontal() float64 {
	return math.Hypot(f.X, f.Y)
}

// Declination returns the angle between geographic and magnetic north in
// degrees, positive east.
func (f Field) Declination() float64 {
	return math.Atan2(f.Y, f.X) * 180 / math.Pi
}

// Inclination returns the dip angle in degrees, positive down.
func (f Field) Inclination() float64 {
	return math.Atan2(f.Z, f.Horizontal()) * 180 / math.Pi
}

// Model is a main-field model truncated at a maximum degree.
type Model struct {
	Name  string
	Epoch float64 // decimal year the coefficients refer to

	degree int
	g, h   [][]float64
	dg, dh [][]float64
}

// NewModel builds a model from its coefficients. Missing coefficients are
// zero.
func NewModel(name string, epoch float64, coeffs []Coefficient) (*Model, error) {
	if len(coeffs) == 0 {
		return nil, errors.New("no coefficients")
	}

	degree := 0
	for _, c := range coeffs {
		if c.N < 1 || c.M < 0 || c.M > c.N {
			return nil, fmt.Errorf("invalid coefficient degree %d order %d", c.N, c.M)
		}
		degree = max(degree, c.N)
	}

	m := Model{
		Name:   name,
		Epoch:  epoch,
		degree: degree,
		g:      triangle(degree),
		h:      triangle(degree),
		dg:     triangle(degree),
		dh:     triangle(degree),
	}
	for _, c := range coeffs {
		m.g[c.N][c.M], m.h[c.N][c.M] = c.G, c.H
		m.dg[c.N][c.M], m.dh[c.N][c.M] = c.DG, c.DH
	}

	return &m, nil
}

func triangle(degree int) [][]float64 {
	t := make([][]float64, degree+1)
	for n := range t {
		t[n] = make([]float64, n+1)
	}
	return t
}

// Degree returns the maximum degree of the model.
func (m *Model) Degree() int {
	return m.degree
}

// Dipole returns the IGRF-13 dipole terms for epoch 2020.0. It captures the
// bulk of the main field but misses regional anomalies of several µT.
func Dipole() *Model {
	m, _ := NewModel("IGRF-13 dipole", 2020.0, []Coefficient{
		{N: 1, M: 0, G: -29404.8, DG: 5.7},
		{N: 1, M: 1, G: -1450.9, H: 4652.5, DG: 7.4, DH: -25.9},
	})
	return m
}

// DecimalYear returns t as a fractional year.
func DecimalYear(t time.Time) float64 {
	t = t.UTC()
	start := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return float64(t.Year()) + t.Sub(start).Seconds()/end.Sub(start).Seconds()
}

// FieldAt returns the modelled field at geodetic latitude and longitude in
// degrees, height above the WGS84 ellipsoid in km, at time t.
func (m *Model) FieldAt(lat, lon, height float64, t time.Time) Field {
	dt := DecimalYear(t) - m.Epoch

	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180

	// geodetic to geocentric spherical
	e2 := wgs84F * (2 - wgs84F)
	sinPhi, cosPhi := math.Sincos(phi)
	rc := wgs84A / math.Sqrt(1-e2*sinPhi*sinPhi)
	p := (rc + height) * cosPhi
	z := (rc*(1-e2) + height) * sinPhi
	r := math.Hypot(p, z)
	phiC := math.Asin(z / r)

	x, s := math.Sincos(phiC) // cos and sin of the colatitude
	if s < minSinColatitude {
		s = minSinColatitude
	}

	pnm, dpnm := legendre(m.degree, x, s)

	var br, btheta, bphi float64
	ratio := ReferenceRadius / r
	rn := ratio * ratio
	for n := 1; n <= m.degree; n++ {
		rn *= ratio
		for k := 0; k <= n; k++ {
			g := m.g[n][k] + dt*m.dg[n][k]
			h := m.h[n][k] + dt*m.dh[n][k]
			sinM, cosM := math.Sincos(float64(k) * lambda)

			br += float64(n+1) * rn * (g*cosM + h*sinM) * pnm[n][k]
			btheta -= rn * (g*cosM + h*sinM) * dpnm[n][k]
			bphi += rn * float64(k) * (g*sinM - h*cosM) * pnm[n][k]
		}
	}
	bphi /= s

	// rotate from the geocentric to the geodetic frame
	xc, zc := -btheta, -br
	sinPsi, cosPsi := math.Sincos(phiC - phi)

	return Field{
		X: xc*cosPsi - zc*sinPsi,
		Y: bphi,
		Z: xc*sinPsi + zc*cosPsi,
	}
}

// legendre returns the Schmidt semi-normalised associated Legendre functions
// of cos(colatitude) and their derivatives with respect to colatitude.
func legendre(degree int, x, s float64) (p, dp [][]float64) {
	p = triangle(degree)
	dp = triangle(degree)
	p[0][0] = 1

	for n := 1; n <= degree; n++ {
		if n == 1 {
			p[1][1], dp[1][1] = s, x
		} else {
			f := math.Sqrt(float64(2*n-1) / float64(2*n))
			p[n][n] = f * s * p[n-1][n-1]
			dp[n][n] = f * (s*dp[n-1][n-1] + x*p[n-1][n-1])
		}

		for k := 0; k < n; k++ {
			a := float64(2*n - 1)
			b := math.Sqrt(float64((n-1)*(n-1) - k*k))
			c := math.Sqrt(float64(n*n - k*k))

			var p2, dp2 float64
			if k <= n-2 {
				p2, dp2 = p[n-2][k], dp[n-2][k]
			}
			p[n][k] = (a*x*p[n-1][k] - b*p2) / c
			dp[n][k] = (a*(x*dp[n-1][k]-s*p[n-1][k]) - b*dp2) / c
		}
	}
	return p, dp
}
