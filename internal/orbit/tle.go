package orbit

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const tleLineLength = 69

// stations.txt holds ISS elements for the mission window. Propagation error
// grows with distance from the element epoch; supply a fresh file for
// other dates.
//
//go:embed stations.txt
var fallbackStations string

var (
	ErrNotFound      = errors.New("satellite not found")
	ErrMalformedLine = errors.New("malformed element line")
	ErrChecksum      = errors.New("element line checksum mismatch")
)

// TLE is a named two-line element set.
type TLE struct {
	Name  string
	Line1 string
	Line2 string
}

// ParseTLE validates the two element lines.
func ParseTLE(name, line1, line2 string) (TLE, error) {
	line1 = strings.TrimRight(line1, "\r\n ")
	line2 = strings.TrimRight(line2, "\r\n ")

	for i, l := range []string{line1, line2} {
		if err := checkLine(l, byte('1'+i)); err != nil {
			return TLE{}, fmt.Errorf("%s line %d: %w", name, i+1, err)
		}
	}
	if line1[2:7] != line2[2:7] {
		return TLE{}, fmt.Errorf("%s: %w: catalog numbers differ", name, ErrMalformedLine)
	}

	return TLE{Name: strings.TrimSpace(name), Line1: line1, Line2: line2}, nil
}

func checkLine(l string, number byte) error {
	if len(l) != tleLineLength {
		return fmt.Errorf("%w: length %d", ErrMalformedLine, len(l))
	}
	if l[0] != number || l[1] != ' ' {
		return fmt.Errorf("%w: expected line number %c", ErrMalformedLine, number)
	}
	if want := l[68]; checksum(l[:68]) != want {
		return fmt.Errorf("%w: expected %c", ErrChecksum, want)
	}
	return nil
}

// checksum is the modulo-10 sum of all digits, with '-' counting as 1.
func checksum(s string) byte {
	sum := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return byte('0' + sum%10)
}

// FindTLE scans a three-line element file (name line followed by the two
// element lines) for the satellite called name.
func FindTLE(r io.Reader, name string) (TLE, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if l := strings.TrimRight(scanner.Text(), "\r\n "); l != "" {
			lines = append(lines, l)
		}
	}
	if err := scanner.Err(); err != nil {
		return TLE{}, fmt.Errorf("reading elements: %w", err)
	}

	for i := 0; i+2 < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != name {
			continue
		}
		return ParseTLE(name, lines[i+1], lines[i+2])
	}
	return TLE{}, fmt.Errorf("%q: %w", name, ErrNotFound)
}

// LoadTLE looks name up in the element file at path, or in the built-in
// elements if path is empty.
func LoadTLE(path, name string) (TLE, error) {
	if path == "" {
		return FindTLE(strings.NewReader(fallbackStations), name)
	}

	f, err := os.Open(path)
	if err != nil {
		return TLE{}, fmt.Errorf("opening elements: %w", err)
	}
	defer f.Close()

	return FindTLE(f, name)
}
