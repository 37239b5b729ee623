package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/geomag-logger/internal/acquisition"
	"github.com/roman-kulish/geomag-logger/internal/cputemp"
	"github.com/roman-kulish/geomag-logger/internal/shard"
)

const (
	defaultLogFile  = "logger.log"
	defaultBaseName = "output"
	defaultOrbit    = "ISS (ZARYA)"
	defaultI2CBus   = 1
)

// Duration is a time.Duration written as a string such as "3h" or "100ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// ByteSize is a size in bytes written as a string such as "30MiB".
type ByteSize uint64

func (s *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	size, err := humanize.ParseBytes(value.Value)
	if err != nil {
		return fmt.Errorf("app.ByteSize: failed to parse: %s", err)
	}

	*s = ByteSize(size)
	return nil
}

func (s ByteSize) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s ByteSize) String() string {
	return humanize.IBytes(uint64(s))
}

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Mission  MissionConfig `yaml:"mission"`
	Storage  StorageConfig `yaml:"storage"`
	Orbit    OrbitConfig   `yaml:"orbit"`
	Sensors  SensorsConfig `yaml:"sensors"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
	LogFile  string `yaml:"logFile"` // relative paths are resolved against the data directory
}

// MissionConfig represents the mission timing
type MissionConfig struct {
	Duration        Duration `yaml:"duration"`
	ShutdownMargin  Duration `yaml:"shutdownMargin"`
	AcquireInterval Duration `yaml:"acquireInterval"`
	DisplayInterval Duration `yaml:"displayInterval"`
	PollInterval    Duration `yaml:"pollInterval"` // 0 polls the gates in a tight loop
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string   `yaml:"dataDirectory"` // defaults to the executable's directory
	BaseName      string   `yaml:"baseName"`
	MaxShards     int      `yaml:"maxShards"`
	MaxShardSize  ByteSize `yaml:"maxShardSize"`
	BatchSize     int      `yaml:"batchSize"`
	FlushOnExit   bool     `yaml:"flushOnExit"`
}

// OrbitConfig selects the orbital elements of the platform. Inline lines
// take precedence over TLEFile; with neither the built-in elements are used.
type OrbitConfig struct {
	Name    string `yaml:"name"`
	TLEFile string `yaml:"tleFile"`
	Line1   string `yaml:"line1"`
	Line2   string `yaml:"line2"`
}

// SensorsConfig represents the sensor hardware
type SensorsConfig struct {
	I2CBus      int    `yaml:"i2cBus"`
	Framebuffer string `yaml:"framebuffer"` // empty auto-detects the Sense HAT
	ThermalZone string `yaml:"thermalZone"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel: "info",
			LogFile:  defaultLogFile,
		},
		Mission: MissionConfig{
			Duration:        Duration(3 * time.Hour),
			ShutdownMargin:  Duration(2 * time.Minute),
			AcquireInterval: Duration(100 * time.Millisecond),
			DisplayInterval: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			BaseName:     defaultBaseName,
			MaxShards:    shard.DefaultMaxShards,
			MaxShardSize: ByteSize(shard.DefaultMaxShardSize),
			BatchSize:    acquisition.DefaultBatchSize,
		},
		Orbit: OrbitConfig{
			Name: defaultOrbit,
		},
		Sensors: SensorsConfig{
			I2CBus:      defaultI2CBus,
			ThermalZone: cputemp.DefaultZone,
		},
	}
}

// NewConfigFromCLI loads the file given with -c, or the defaults when the
// flag is absent.
func NewConfigFromCLI() (*Config, error) {
	var configPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.Parse()

	if configPath == "" {
		c := NewConfig()
		if err := c.resolve(); err != nil {
			return nil, err
		}
		return c, c.Validate()
	}

	c, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration file '%s': %w", configPath, err)
	}
	return c, nil
}

// LoadConfig reads a YAML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := ParseConfig(f)
	if err != nil {
		return nil, err
	}
	if err = c.resolve(); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// ParseConfig decodes YAML on top of the defaults. Unknown keys are errors.
func ParseConfig(r io.Reader) (*Config, error) {
	c := NewConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return c, nil
}

// resolve fills in the locations that depend on the host.
func (c *Config) resolve() error {
	if c.Storage.DataDirectory == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		c.Storage.DataDirectory = filepath.Dir(exe)
	}
	if c.Settings.LogFile != "" && !filepath.IsAbs(c.Settings.LogFile) {
		c.Settings.LogFile = filepath.Join(c.Storage.DataDirectory, c.Settings.LogFile)
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := c.Settings.Level(); err != nil {
		return err
	}

	m := c.Mission
	switch {
	case m.Duration <= 0:
		return fmt.Errorf("app.Config: mission duration must be positive: %s", m.Duration)
	case m.ShutdownMargin < 0:
		return fmt.Errorf("app.Config: shutdown margin must not be negative: %s", m.ShutdownMargin)
	case m.ShutdownMargin >= m.Duration:
		return fmt.Errorf("app.Config: shutdown margin %s leaves no mission time out of %s", m.ShutdownMargin, m.Duration)
	case m.AcquireInterval <= 0:
		return fmt.Errorf("app.Config: acquire interval must be positive: %s", m.AcquireInterval)
	case m.DisplayInterval <= 0:
		return fmt.Errorf("app.Config: display interval must be positive: %s", m.DisplayInterval)
	case m.PollInterval < 0:
		return fmt.Errorf("app.Config: poll interval must not be negative: %s", m.PollInterval)
	}

	s := c.Storage
	switch {
	case s.BaseName == "" || strings.ContainsAny(s.BaseName, `/\`):
		return fmt.Errorf("app.Config: invalid base name: '%s'", s.BaseName)
	case s.MaxShards <= 0:
		return fmt.Errorf("app.Config: max shards must be positive: %d", s.MaxShards)
	case s.MaxShardSize == 0:
		return errors.New("app.Config: max shard size must be positive")
	case s.BatchSize <= 0:
		return fmt.Errorf("app.Config: batch size must be positive: %d", s.BatchSize)
	}

	o := c.Orbit
	switch {
	case o.Name == "":
		return errors.New("app.Config: orbit name is required")
	case (o.Line1 == "") != (o.Line2 == ""):
		return errors.New("app.Config: both orbit lines are required")
	}

	if c.Sensors.I2CBus < 0 || c.Sensors.I2CBus > 255 {
		return fmt.Errorf("app.Config: invalid i2c bus: %d", c.Sensors.I2CBus)
	}

	return nil
}

// Level returns the configured log level.
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("app.Config: invalid log level: %w", err)
	}
	return level, nil
}

// MissionLength is the time the mission loop runs for.
func (m MissionConfig) MissionLength() time.Duration {
	return time.Duration(m.Duration - m.ShutdownMargin)
}
