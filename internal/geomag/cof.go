package geomag

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// WMM.COF holds the World Magnetic Model 2020 coefficients, valid from 2020.0
// to 2025.0.
//
//go:embed WMM.COF
var wmm2020 string

// WMM2020 returns the built-in World Magnetic Model 2020.
func WMM2020() (*Model, error) {
	return LoadCOF(strings.NewReader(wmm2020))
}

// LoadCOF reads a model in the WMM coefficient file format: a header line
// with the epoch and model name, one "n m g h dg dh" line per coefficient
// pair, and an optional line of nines as terminator.
func LoadCOF(r io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(r)

	var (
		name   string
		epoch  float64
		coeffs []Coefficient
		line   int
	)
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if strings.HasPrefix(fields[0], "9999") {
			break
		}

		if line == 1 {
			if len(fields) < 2 {
				return nil, fmt.Errorf("line 1: expected epoch and model name")
			}
			e, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, fmt.Errorf("line 1: parsing epoch: %w", err)
			}
			epoch, name = e, fields[1]
			continue
		}

		c, err := parseCoefficient(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		coeffs = append(coeffs, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading coefficients: %w", err)
	}

	return NewModel(name, epoch, coeffs)
}

func parseCoefficient(fields []string) (Coefficient, error) {
	if len(fields) < 6 {
		return Coefficient{}, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}

	var c Coefficient
	var err error
	if c.N, err = strconv.Atoi(fields[0]); err != nil {
		return Coefficient{}, fmt.Errorf("parsing degree: %w", err)
	}
	if c.M, err = strconv.Atoi(fields[1]); err != nil {
		return Coefficient{}, fmt.Errorf("parsing order: %w", err)
	}

	values := []*float64{&c.G, &c.H, &c.DG, &c.DH}
	for i, v := range values {
		if *v, err = strconv.ParseFloat(fields[2+i], 64); err != nil {
			return Coefficient{}, fmt.Errorf("parsing coefficient %d: %w", i+1, err)
		}
	}
	return c, nil
}

// LoadCOFFile reads a coefficient file from path.
func LoadCOFFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}
	defer f.Close()

	return LoadCOF(f)
}
