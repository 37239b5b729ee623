package record

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Header is the on-disk schema of a record. Column order is the contract
// between the logger and the offline tools and must never change.
var Header = []string{
	"time",
	"temperature",
	"cpu_temp",
	"magnet_x", "magnet_y", "magnet_z",
	"gyro_pitch", "gyro_roll", "gyro_yaw",
	"accel_pitch", "accel_roll", "accel_yaw",
	"gyro_x", "gyro_y", "gyro_z",
	"accel_x", "accel_y", "accel_z",
	"lat", "long", "elev",
}

// NumFields is the number of columns in a record row.
const NumFields = 21

// Vector is a three-axis sensor reading.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the Euclidean norm of the vector.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Orientation is an attitude estimate in degrees.
type Orientation struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// Position is a geodetic position of the platform.
type Position struct {
	Latitude  float64 `json:"lat"`  // Latitude in degrees
	Longitude float64 `json:"long"` // Longitude in degrees
	Elevation float64 `json:"elev"` // Elevation above the ellipsoid in kilometers
}

// Record is a single sensor sample. It is a value type and is never
// modified once assembled.
type Record struct {
	Timestamp        int64       `json:"time"`        // Acquisition time in nanoseconds since epoch
	Temperature      float64     `json:"temperature"` // Ambient temperature in degrees C
	CPUTemperature   float64     `json:"cpu_temp"`    // CPU temperature in degrees C
	Magnetometer     Vector      `json:"magnet"`      // Raw magnetometer in µT
	GyroOrientation  Orientation `json:"gyro"`        // Gyroscope-only orientation in degrees
	AccelOrientation Orientation `json:"accel"`       // Accelerometer-only orientation in degrees
	GyroRaw          Vector      `json:"gyroRaw"`     // Raw gyroscope rate in rad/s
	AccelRaw         Vector      `json:"accelRaw"`    // Raw acceleration in g
	Position         Position    `json:"position"`    // Sub-platform position
}

// Time returns the acquisition timestamp as time.Time in UTC.
func (r Record) Time() time.Time {
	return time.Unix(0, r.Timestamp).UTC()
}

// Row encodes the record as CSV fields in Header order.
func (r Record) Row() []string {
	row := make([]string, 0, NumFields)
	row = append(row, strconv.FormatInt(r.Timestamp, 10))

	for _, v := range r.values() {
		row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return row
}

func (r Record) values() []float64 {
	return []float64{
		r.Temperature,
		r.CPUTemperature,
		r.Magnetometer.X, r.Magnetometer.Y, r.Magnetometer.Z,
		r.GyroOrientation.Pitch, r.GyroOrientation.Roll, r.GyroOrientation.Yaw,
		r.AccelOrientation.Pitch, r.AccelOrientation.Roll, r.AccelOrientation.Yaw,
		r.GyroRaw.X, r.GyroRaw.Y, r.GyroRaw.Z,
		r.AccelRaw.X, r.AccelRaw.Y, r.AccelRaw.Z,
		r.Position.Latitude, r.Position.Longitude, r.Position.Elevation,
	}
}

// ParseRow decodes CSV fields written by Row.
func ParseRow(row []string) (Record, error) {
	var r Record
	if len(row) != NumFields {
		return r, fmt.Errorf("expected %d fields, got %d", NumFields, len(row))
	}

	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		// Some tools rewrite integers in exponent notation.
		f, fErr := strconv.ParseFloat(row[0], 64)
		if fErr != nil {
			return r, fmt.Errorf("invalid %s: %w", Header[0], err)
		}
		ts = int64(f)
	}
	r.Timestamp = ts

	values := make([]float64, NumFields-1)
	for i, field := range row[1:] {
		if values[i], err = strconv.ParseFloat(field, 64); err != nil {
			return r, fmt.Errorf("invalid %s: %w", Header[i+1], err)
		}
	}

	r.Temperature = values[0]
	r.CPUTemperature = values[1]
	r.Magnetometer = Vector{values[2], values[3], values[4]}
	r.GyroOrientation = Orientation{values[5], values[6], values[7]}
	r.AccelOrientation = Orientation{values[8], values[9], values[10]}
	r.GyroRaw = Vector{values[11], values[12], values[13]}
	r.AccelRaw = Vector{values[14], values[15], values[16]}
	r.Position = Position{values[17], values[18], values[19]}

	return r, nil
}

// HeaderMatches reports whether fields equal Header.
func HeaderMatches(fields []string) bool {
	if len(fields) != len(Header) {
		return false
	}
	for i := range fields {
		if fields[i] != Header[i] {
			return false
		}
	}
	return true
}
