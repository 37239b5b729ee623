package sensehat

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
)

const (
	// SysfsRoot is where framebuffer devices are described.
	SysfsRoot = "/sys"

	framebufferName = "RPi-Sense FB"
	matrixSize      = 8
	bytesPerPixel   = 2
)

var ErrFramebufferNotFound = errors.New("sense hat framebuffer not found")

// FindFramebuffer returns the device path of the Sense HAT LED matrix by
// matching the framebuffer name under sysfsRoot.
func FindFramebuffer(sysfsRoot string) (string, error) {
	names, err := filepath.Glob(filepath.Join(sysfsRoot, "class", "graphics", "fb*", "name"))
	if err != nil {
		return "", err
	}
	for _, name := range names {
		b, err := os.ReadFile(name)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(b)) == framebufferName {
			return filepath.Join("/dev", filepath.Base(filepath.Dir(name))), nil
		}
	}
	return "", ErrFramebufferNotFound
}

// Framebuffer is the 8x8 RGB565 LED matrix. It is not safe for concurrent
// use.
type Framebuffer struct {
	file *os.File
}

// OpenFramebuffer opens the LED matrix device at path.
func OpenFramebuffer(path string) (*Framebuffer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &DeviceError{Chip: framebufferName, Op: "opening", Err: err}
	}
	return &Framebuffer{file: f}, nil
}

// Clear switches every LED off.
func (fb *Framebuffer) Clear() error {
	if _, err := fb.file.WriteAt(make([]byte, matrixSize*matrixSize*bytesPerPixel), 0); err != nil {
		return &DeviceError{Chip: framebufferName, Op: "clearing", Err: err}
	}
	return nil
}

// SetPixel lights the LED at column x, row y.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) error {
	if x < 0 || x >= matrixSize || y < 0 || y >= matrixSize {
		return fmt.Errorf("pixel (%d, %d) out of range", x, y)
	}

	v := rgb565(c)
	if _, err := fb.file.WriteAt([]byte{byte(v), byte(v >> 8)}, int64((y*matrixSize+x)*bytesPerPixel)); err != nil {
		return &DeviceError{Chip: framebufferName, Op: "setting pixel", Err: err}
	}
	return nil
}

// Close closes the device.
func (fb *Framebuffer) Close() error {
	return fb.file.Close()
}

func rgb565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}
