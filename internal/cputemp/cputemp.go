// Package cputemp reads the board temperature from the Linux thermal
// subsystem.
package cputemp

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultZone is the SoC thermal zone on a Raspberry Pi.
const DefaultZone = "/sys/class/thermal/thermal_zone0/temp"

// Sensor reads a thermal zone file.
type Sensor struct {
	path string
}

// New creates a sensor reading path, DefaultZone if empty.
func New(path string) *Sensor {
	if path == "" {
		path = DefaultZone
	}
	return &Sensor{path: path}
}

// Temperature returns the zone temperature in degrees C. Kernels report
// milli-degrees; small values are taken as whole degrees.
func (s *Sensor) Temperature() (float64, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("reading thermal zone: %w", err)
	}

	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parsing thermal zone %q: %w", s.path, err)
	}

	if v > 1000 {
		return float64(v) / 1000, nil
	}
	return float64(v), nil
}
