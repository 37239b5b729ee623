package sensehat

import (
	"math"
	"time"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

const (
	lsmChip = "LSM9DS1"

	lsmAddrAG  = 0x6a
	lsmAddrMag = 0x1c

	lsmWhoAmI       = 0x0f
	lsmWhoAmIAG     = 0x68
	lsmWhoAmIMag    = 0x3d
	lsmCtrlReg1G    = 0x10
	lsmOutXLG       = 0x18
	lsmCtrlReg6XL   = 0x20
	lsmCtrlReg8     = 0x22
	lsmOutXLXL      = 0x28
	lsmCtrlReg1M    = 0x20
	lsmCtrlReg2M    = 0x21
	lsmCtrlReg3M    = 0x22
	lsmCtrlReg4M    = 0x23
	lsmOutXLM       = 0x28
	lsmAutoIncrMag  = 0x80
	lsmGyroSens     = 8.75e-3  // dps/LSB at 245 dps full scale
	lsmAccelSens    = 0.061e-3 // g/LSB at 2 g full scale
	lsmMagSens      = 0.014    // µT/LSB at 4 gauss full scale
	lsmDegToRad     = math.Pi / 180
	lsmRadToDeg     = 180 / math.Pi
	lsmMaxIntegrate = time.Second
)

var lsmInit = []struct{ addr, reg, value byte }{
	{lsmAddrAG, lsmCtrlReg8, 0x44},   // block data update, register auto-increment
	{lsmAddrAG, lsmCtrlReg1G, 0x60},  // gyro 119 Hz, 245 dps
	{lsmAddrAG, lsmCtrlReg6XL, 0x60}, // accel 119 Hz, 2 g
	{lsmAddrMag, lsmCtrlReg1M, 0xfc}, // temperature compensation, ultra-high XY, 80 Hz
	{lsmAddrMag, lsmCtrlReg2M, 0x00}, // 4 gauss
	{lsmAddrMag, lsmCtrlReg3M, 0x00}, // continuous conversion
	{lsmAddrMag, lsmCtrlReg4M, 0x0c}, // ultra-high Z
}

// WithIMUClock sets the clock used to integrate gyroscope rates.
func WithIMUClock(clock func() time.Time) func(*IMU) {
	return func(imu *IMU) {
		imu.clock = clock
	}
}

// IMU is the LSM9DS1 accelerometer, gyroscope and magnetometer. It is not
// safe for concurrent use.
type IMU struct {
	bus   Bus
	clock func() time.Time

	gyroOrient  record.Orientation
	lastGyroAt  time.Time
	gyroStarted bool
}

// NewIMU verifies and configures both LSM9DS1 dies.
func NewIMU(bus Bus, options ...func(*IMU)) (*IMU, error) {
	imu := IMU{
		bus:   bus,
		clock: time.Now,
	}
	for _, option := range options {
		option(&imu)
	}

	for _, id := range []struct{ addr, want byte }{{lsmAddrAG, lsmWhoAmIAG}, {lsmAddrMag, lsmWhoAmIMag}} {
		v, err := bus.ReadByteFromReg(id.addr, lsmWhoAmI)
		if err != nil {
			return nil, &DeviceError{Chip: lsmChip, Op: "reading identity", Err: err}
		}
		if v != id.want {
			return nil, &DeviceError{Chip: lsmChip, Op: "checking identity", Err: errWrongChip}
		}
	}

	for _, w := range lsmInit {
		if err := bus.WriteByteToReg(w.addr, w.reg, w.value); err != nil {
			return nil, &DeviceError{Chip: lsmChip, Op: "configuring", Err: err}
		}
	}

	return &imu, nil
}

func (imu *IMU) readVector(addr, reg byte, scale float64, op string) (record.Vector, error) {
	buf := make([]byte, 6)
	if err := imu.bus.ReadFromReg(addr, reg, buf); err != nil {
		return record.Vector{}, &DeviceError{Chip: lsmChip, Op: op, Err: err}
	}
	return record.Vector{
		X: float64(readInt16LE(buf[0:2])) * scale,
		Y: float64(readInt16LE(buf[2:4])) * scale,
		Z: float64(readInt16LE(buf[4:6])) * scale,
	}, nil
}

// GyroscopeRaw returns the angular rates in rad/s.
func (imu *IMU) GyroscopeRaw() (record.Vector, error) {
	return imu.readVector(lsmAddrAG, lsmOutXLG, lsmGyroSens*lsmDegToRad, "reading gyroscope")
}

// AccelerometerRaw returns the acceleration in g.
func (imu *IMU) AccelerometerRaw() (record.Vector, error) {
	return imu.readVector(lsmAddrAG, lsmOutXLXL, lsmAccelSens, "reading accelerometer")
}

// Compass returns the magnetic field in µT.
func (imu *IMU) Compass() (record.Vector, error) {
	return imu.readVector(lsmAddrMag, lsmOutXLM|lsmAutoIncrMag, lsmMagSens, "reading magnetometer")
}

// GyroscopeOrientation integrates the gyroscope rates since the previous call
// and returns the accumulated orientation in degrees. The first call only
// starts the integration.
func (imu *IMU) GyroscopeOrientation() (record.Orientation, error) {
	rates, err := imu.GyroscopeRaw()
	if err != nil {
		return record.Orientation{}, err
	}

	now := imu.clock()
	if imu.gyroStarted {
		dt := now.Sub(imu.lastGyroAt)
		// a stalled caller would otherwise integrate a single sample over a long gap
		if dt > lsmMaxIntegrate {
			dt = lsmMaxIntegrate
		}
		imu.gyroOrient = integrate(imu.gyroOrient, rates, dt)
	}
	imu.lastGyroAt = now
	imu.gyroStarted = true

	return imu.gyroOrient, nil
}

// AccelerometerOrientation returns pitch and roll from gravity and yaw from
// the tilt-compensated magnetometer, in degrees.
func (imu *IMU) AccelerometerOrientation() (record.Orientation, error) {
	accel, err := imu.AccelerometerRaw()
	if err != nil {
		return record.Orientation{}, err
	}
	mag, err := imu.Compass()
	if err != nil {
		return record.Orientation{}, err
	}
	return orientationFromGravity(accel, mag), nil
}

func integrate(o record.Orientation, rates record.Vector, dt time.Duration) record.Orientation {
	s := dt.Seconds() * lsmRadToDeg
	return record.Orientation{
		Pitch: normalizeDegrees(o.Pitch + rates.Y*s),
		Roll:  normalizeDegrees(o.Roll + rates.X*s),
		Yaw:   normalizeDegrees(o.Yaw + rates.Z*s),
	}
}

func orientationFromGravity(a, m record.Vector) record.Orientation {
	roll := math.Atan2(a.Y, a.Z)
	pitch := math.Atan2(-a.X, math.Hypot(a.Y, a.Z))

	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	bx := m.X*cp + m.Y*sp*sr + m.Z*sp*cr
	by := m.Y*cr - m.Z*sr
	yaw := math.Atan2(-by, bx)

	return record.Orientation{
		Pitch: normalizeDegrees(pitch * lsmRadToDeg),
		Roll:  normalizeDegrees(roll * lsmRadToDeg),
		Yaw:   normalizeDegrees(yaw * lsmRadToDeg),
	}
}

// normalizeDegrees maps an angle into [0, 360).
func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
