package cputemp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSensor_Temperature(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected float64
		wantErr  bool
	}{
		{"millidegrees", "48312\n", 48.312, false},
		{"whole degrees", "52\n", 52, false},
		{"threshold", "1000", 1000, false},
		{"garbage", "n/a\n", 0, true},
		{"empty", "", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "temp")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := New(path).Temperature()
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestSensor_MissingZone(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing")).Temperature(); err == nil {
		t.Error("expected error")
	}
	if New("").path != DefaultZone {
		t.Error("expected default zone")
	}
}
