package sensehat

import (
	"errors"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

// fakeBus is an in-memory register file. The auto-increment bit is ignored.
type fakeBus struct {
	regs   map[byte]map[byte]byte
	writes []struct{ addr, reg, value byte }
	err    error
}

func newFakeBus() *fakeBus {
	b := &fakeBus{regs: map[byte]map[byte]byte{
		lsmAddrAG:  {lsmWhoAmI: lsmWhoAmIAG},
		lsmAddrMag: {lsmWhoAmI: lsmWhoAmIMag},
		htsAddr:    {htsWhoAmI: htsIdentity},
	}}
	b.setInt16(htsAddr, htsT0Out, 100)
	b.setInt16(htsAddr, htsT1Out, 300)
	b.regs[htsAddr][htsT0DegCx8] = 80
	b.regs[htsAddr][htsT1DegCx8] = 160
	return b
}

func (b *fakeBus) setInt16(addr, reg byte, v int16) {
	b.regs[addr][reg] = byte(uint16(v))
	b.regs[addr][reg+1] = byte(uint16(v) >> 8)
}

func (b *fakeBus) setVector(addr, reg byte, x, y, z int16) {
	b.setInt16(addr, reg, x)
	b.setInt16(addr, reg+2, y)
	b.setInt16(addr, reg+4, z)
}

func (b *fakeBus) ReadByteFromReg(addr, reg byte) (byte, error) {
	if b.err != nil {
		return 0, b.err
	}
	return b.regs[addr][reg&0x7f], nil
}

func (b *fakeBus) ReadFromReg(addr, reg byte, value []byte) error {
	if b.err != nil {
		return b.err
	}
	reg &= 0x7f
	for i := range value {
		value[i] = b.regs[addr][reg+byte(i)]
	}
	return nil
}

func (b *fakeBus) WriteByteToReg(addr, reg, value byte) error {
	if b.err != nil {
		return b.err
	}
	b.writes = append(b.writes, struct{ addr, reg, value byte }{addr, reg, value})
	return nil
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewIMU_Identity(t *testing.T) {
	testCases := []struct {
		name    string
		addr    byte
		busErr  error
		wantErr error
	}{
		{"wrong accel/gyro die", lsmAddrAG, nil, errWrongChip},
		{"wrong magnetometer die", lsmAddrMag, nil, errWrongChip},
		{"bus failure", lsmAddrAG, errors.New("no ack"), nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus := newFakeBus()
			bus.regs[tc.addr][lsmWhoAmI] = 0x00
			bus.err = tc.busErr

			_, err := NewIMU(bus)
			var devErr *DeviceError
			if !errors.As(err, &devErr) {
				t.Fatalf("expected DeviceError, got %v", err)
			}
			if devErr.Chip != lsmChip {
				t.Errorf("expected chip %s, got %s", lsmChip, devErr.Chip)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.busErr != nil && !errors.Is(err, tc.busErr) {
				t.Errorf("expected %v, got %v", tc.busErr, err)
			}
		})
	}
}

func TestNewIMU_Configures(t *testing.T) {
	bus := newFakeBus()
	if _, err := NewIMU(bus); err != nil {
		t.Fatal(err)
	}
	if len(bus.writes) != len(lsmInit) {
		t.Fatalf("expected %d register writes, got %d", len(lsmInit), len(bus.writes))
	}
	for i, w := range lsmInit {
		if bus.writes[i] != w {
			t.Errorf("write %d: expected %+v, got %+v", i, w, bus.writes[i])
		}
	}
}

func TestIMU_RawReadings(t *testing.T) {
	bus := newFakeBus()
	bus.setVector(lsmAddrAG, lsmOutXLXL, 1000, -1000, 16393)
	bus.setVector(lsmAddrAG, lsmOutXLG, 100, 0, -100)
	bus.setVector(lsmAddrMag, lsmOutXLM, -1000, 2000, 0)

	imu, err := NewIMU(bus)
	if err != nil {
		t.Fatal(err)
	}

	accel, err := imu.AccelerometerRaw()
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(accel.X, 0.061) || !almostEqual(accel.Y, -0.061) || !almostEqual(accel.Z, 16393*lsmAccelSens) {
		t.Errorf("unexpected acceleration %+v", accel)
	}

	gyro, err := imu.GyroscopeRaw()
	if err != nil {
		t.Fatal(err)
	}
	rate := 100 * lsmGyroSens * lsmDegToRad
	if !almostEqual(gyro.X, rate) || gyro.Y != 0 || !almostEqual(gyro.Z, -rate) {
		t.Errorf("unexpected rates %+v", gyro)
	}

	mag, err := imu.Compass()
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(mag.X, -14) || !almostEqual(mag.Y, 28) || mag.Z != 0 {
		t.Errorf("unexpected field %+v", mag)
	}

	bus.err = errors.New("bus reset")
	if _, err := imu.Compass(); !errors.Is(err, bus.err) {
		t.Errorf("expected bus error, got %v", err)
	}
}

func TestIMU_GyroscopeOrientation(t *testing.T) {
	bus := newFakeBus()
	bus.setVector(lsmAddrAG, lsmOutXLG, 0, 0, 11428)

	now := time.Date(2022, 4, 4, 10, 0, 0, 0, time.UTC)
	imu, err := NewIMU(bus, WithIMUClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}

	o, err := imu.GyroscopeOrientation()
	if err != nil {
		t.Fatal(err)
	}
	if o != (record.Orientation{}) {
		t.Errorf("first reading must start at zero, got %+v", o)
	}

	now = now.Add(500 * time.Millisecond)
	o, _ = imu.GyroscopeOrientation()
	want := 11428 * lsmGyroSens * 0.5
	if !almostEqual(o.Yaw, want) {
		t.Errorf("expected yaw %f, got %f", want, o.Yaw)
	}

	// long gaps are clamped
	now = now.Add(time.Hour)
	o, _ = imu.GyroscopeOrientation()
	want = normalizeDegrees(want + 11428*lsmGyroSens)
	if !almostEqual(o.Yaw, want) {
		t.Errorf("expected clamped yaw %f, got %f", want, o.Yaw)
	}
}

func TestOrientationFromGravity(t *testing.T) {
	testCases := []struct {
		name     string
		accel    record.Vector
		mag      record.Vector
		expected record.Orientation
	}{
		{"level north", record.Vector{Z: 1}, record.Vector{X: 20, Z: -40}, record.Orientation{}},
		{"level east", record.Vector{Z: 1}, record.Vector{Y: -20, Z: -40}, record.Orientation{Yaw: 90}},
		{"level west", record.Vector{Z: 1}, record.Vector{Y: 20, Z: -40}, record.Orientation{Yaw: 270}},
		{"rolled", record.Vector{Y: 1}, record.Vector{X: 20}, record.Orientation{Roll: 90}},
		{"pitched", record.Vector{X: -1}, record.Vector{Z: 20}, record.Orientation{Pitch: 90}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := orientationFromGravity(tc.accel, tc.mag)
			if !almostEqual(o.Pitch, tc.expected.Pitch) || !almostEqual(o.Roll, tc.expected.Roll) || !almostEqual(o.Yaw, tc.expected.Yaw) {
				t.Errorf("expected %+v, got %+v", tc.expected, o)
			}
		})
	}
}

func TestNormalizeDegrees(t *testing.T) {
	testCases := []struct {
		in, expected float64
	}{
		{0, 0},
		{-90, 270},
		{360, 0},
		{725, 5},
		{359.5, 359.5},
		{-720, 0},
	}

	for _, tc := range testCases {
		if got := normalizeDegrees(tc.in); !almostEqual(got, tc.expected) {
			t.Errorf("normalizeDegrees(%v): expected %v, got %v", tc.in, tc.expected, got)
		}
	}
}

func TestThermometer(t *testing.T) {
	testCases := []struct {
		name     string
		msb      byte
		raw      int16
		expected float64
	}{
		{"midpoint", 0x00, 200, 15},
		{"at T0", 0x00, 100, 10},
		{"extrapolated", 0x00, 500, 30},
		{"msb bits", 0x05, 200, 47},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus := newFakeBus()
			bus.regs[htsAddr][htsT1T0Msb] = tc.msb
			bus.setInt16(htsAddr, htsTempOut, tc.raw)

			th, err := NewThermometer(bus)
			if err != nil {
				t.Fatal(err)
			}
			got, err := th.Temperature()
			if err != nil {
				t.Fatal(err)
			}
			if !almostEqual(got, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestNewThermometer_Errors(t *testing.T) {
	bus := newFakeBus()
	bus.regs[htsAddr][htsWhoAmI] = 0x00
	if _, err := NewThermometer(bus); !errors.Is(err, errWrongChip) {
		t.Errorf("expected identity error, got %v", err)
	}

	bus = newFakeBus()
	bus.setInt16(htsAddr, htsT1Out, 100)
	var devErr *DeviceError
	if _, err := NewThermometer(bus); !errors.As(err, &devErr) || devErr.Op != "reading calibration" {
		t.Errorf("expected calibration error, got %v", err)
	}
}

func TestFramebuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fb1")
	if err := os.WriteFile(path, make([]byte, matrixSize*matrixSize*bytesPerPixel), 0o644); err != nil {
		t.Fatal(err)
	}

	fb, err := OpenFramebuffer(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Close()

	if err := fb.SetPixel(1, 2, color.RGBA{R: 0xff, A: 0xff}); err != nil {
		t.Fatal(err)
	}
	if err := fb.SetPixel(7, 7, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}); err != nil {
		t.Fatal(err)
	}

	b, _ := os.ReadFile(path)
	if b[34] != 0x00 || b[35] != 0xf8 {
		t.Errorf("expected red at (1, 2), got %#x %#x", b[34], b[35])
	}
	if b[126] != 0xff || b[127] != 0xff {
		t.Errorf("expected white at (7, 7), got %#x %#x", b[126], b[127])
	}

	if err := fb.SetPixel(8, 0, color.RGBA{}); err == nil {
		t.Error("expected out of range error")
	}

	if err := fb.Clear(); err != nil {
		t.Fatal(err)
	}
	b, _ = os.ReadFile(path)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not cleared: %#x", i, v)
		}
	}
}

func TestFindFramebuffer(t *testing.T) {
	root := t.TempDir()
	for name, content := range map[string]string{"fb0": "vc4drmfb\n", "fb1": "RPi-Sense FB\n"} {
		dir := filepath.Join(root, "class", "graphics", name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "name"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	path, err := FindFramebuffer(root)
	if err != nil {
		t.Fatal(err)
	}
	if path != "/dev/fb1" {
		t.Errorf("expected /dev/fb1, got %s", path)
	}

	if _, err := FindFramebuffer(t.TempDir()); !errors.Is(err, ErrFramebufferNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
