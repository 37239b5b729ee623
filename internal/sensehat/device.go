// Package sensehat drives the chips of the Raspberry Pi Sense HAT: the
// LSM9DS1 inertial unit, the HTS221 humidity/temperature sensor and the 8x8
// LED matrix exposed as a Linux framebuffer.
package sensehat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/rpi" // registers the Raspberry Pi I2C driver
)

// Bus is the subset of embd.I2CBus used by the Sense HAT chips.
type Bus interface {
	ReadByteFromReg(addr, reg byte) (byte, error)
	ReadFromReg(addr, reg byte, value []byte) error
	WriteByteToReg(addr, reg, value byte) error
}

// DeviceError is returned when a chip cannot be identified, configured or
// read.
type DeviceError struct {
	Chip string
	Op   string
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Chip, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

var errWrongChip = errors.New("unexpected chip identity")

// HAT bundles the Sense HAT devices sharing one I2C bus.
type HAT struct {
	IMU         *IMU
	Thermometer *Thermometer
	Display     *Framebuffer

	bus    embd.I2CBus
	logger *slog.Logger
}

// WithLogger sets the logger for the HAT
func WithLogger(logger *slog.Logger) func(*HAT) {
	return func(h *HAT) {
		h.logger = logger
	}
}

// Open opens the I2C bus and framebuffer and initialises every chip. An
// empty fbPath auto-detects the Sense HAT framebuffer.
func Open(busNum byte, fbPath string, options ...func(*HAT)) (hat *HAT, err error) {
	h := HAT{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&h)
	}

	// NewI2CBus panics on hosts without an I2C driver
	if err = embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("initialising i2c: %w", err)
	}

	h.bus = embd.NewI2CBus(busNum)
	defer func() {
		if err != nil {
			err = closeWithError(h.bus, err)
		}
	}()

	if h.IMU, err = NewIMU(h.bus); err != nil {
		return nil, err
	}
	if h.Thermometer, err = NewThermometer(h.bus); err != nil {
		return nil, err
	}

	if fbPath == "" {
		if fbPath, err = FindFramebuffer(SysfsRoot); err != nil {
			return nil, err
		}
	}
	if h.Display, err = OpenFramebuffer(fbPath); err != nil {
		return nil, err
	}

	h.logger.Info("sense hat ready", slog.Int("i2cBus", int(busNum)), slog.String("framebuffer", fbPath))

	return &h, nil
}

// Close releases the framebuffer and the I2C bus.
func (h *HAT) Close() error {
	var errs []error
	if h.Display != nil {
		errs = append(errs, h.Display.Close())
	}
	errs = append(errs, h.bus.Close())
	return errors.Join(errs...)
}

func closeWithError(c io.Closer, err error) error {
	if closeErr := c.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

func readInt16LE(b []byte) int16 {
	return int16(uint16(b[0]) | uint16(b[1])<<8)
}
