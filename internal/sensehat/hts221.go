package sensehat

import (
	"errors"
)

const (
	htsChip = "HTS221"

	htsAddr      = 0x5f
	htsWhoAmI    = 0x0f
	htsIdentity  = 0xbc
	htsCtrlReg1  = 0x20
	htsTempOut   = 0x2a
	htsT0DegCx8  = 0x32
	htsT1DegCx8  = 0x33
	htsT1T0Msb   = 0x35
	htsT0Out     = 0x3c
	htsT1Out     = 0x3e
	htsAutoIncr  = 0x80
	htsPowerBDU1 = 0x85 // power on, block data update, 1 Hz
)

// Thermometer is the temperature channel of the HTS221.
type Thermometer struct {
	bus Bus

	t0, t1       float64 // calibration points in degrees C
	t0Out, t1Out float64 // raw readings at the calibration points
}

// NewThermometer verifies and powers up the HTS221 and loads its factory
// calibration.
func NewThermometer(bus Bus) (*Thermometer, error) {
	v, err := bus.ReadByteFromReg(htsAddr, htsWhoAmI)
	if err != nil {
		return nil, &DeviceError{Chip: htsChip, Op: "reading identity", Err: err}
	}
	if v != htsIdentity {
		return nil, &DeviceError{Chip: htsChip, Op: "checking identity", Err: errWrongChip}
	}
	if err = bus.WriteByteToReg(htsAddr, htsCtrlReg1, htsPowerBDU1); err != nil {
		return nil, &DeviceError{Chip: htsChip, Op: "configuring", Err: err}
	}

	th := Thermometer{bus: bus}
	if err = th.calibrate(); err != nil {
		return nil, &DeviceError{Chip: htsChip, Op: "reading calibration", Err: err}
	}
	return &th, nil
}

func (th *Thermometer) calibrate() error {
	t0, err := th.bus.ReadByteFromReg(htsAddr, htsT0DegCx8)
	if err != nil {
		return err
	}
	t1, err := th.bus.ReadByteFromReg(htsAddr, htsT1DegCx8)
	if err != nil {
		return err
	}
	msb, err := th.bus.ReadByteFromReg(htsAddr, htsT1T0Msb)
	if err != nil {
		return err
	}

	buf := make([]byte, 2)
	if err = th.bus.ReadFromReg(htsAddr, htsT0Out|htsAutoIncr, buf); err != nil {
		return err
	}
	t0Out := readInt16LE(buf)
	if err = th.bus.ReadFromReg(htsAddr, htsT1Out|htsAutoIncr, buf); err != nil {
		return err
	}
	t1Out := readInt16LE(buf)

	if t0Out == t1Out {
		return errors.New("degenerate calibration")
	}

	th.t0 = float64(uint16(msb&0x03)<<8|uint16(t0)) / 8
	th.t1 = float64(uint16(msb&0x0c)<<6|uint16(t1)) / 8
	th.t0Out = float64(t0Out)
	th.t1Out = float64(t1Out)
	return nil
}

// Temperature returns the ambient temperature in degrees C.
func (th *Thermometer) Temperature() (float64, error) {
	buf := make([]byte, 2)
	if err := th.bus.ReadFromReg(htsAddr, htsTempOut|htsAutoIncr, buf); err != nil {
		return 0, &DeviceError{Chip: htsChip, Op: "reading temperature", Err: err}
	}
	raw := float64(readInt16LE(buf))
	return th.t0 + (raw-th.t0Out)*(th.t1-th.t0)/(th.t1Out-th.t0Out), nil
}
