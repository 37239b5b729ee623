package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

const (
	defaultBaseName     = "output"
	defaultSatellite    = "ISS (ZARYA)"
	defaultPixelsPerDeg = 2
	maxPixelsPerDeg     = 20
)

type ImageFormat string

type Config struct {
	// One of DataDir or DBPath selects the input.
	DataDir   string
	BaseName  string
	DBPath    string
	MissionID int64

	TLEFile   string
	Satellite string
	ModelFile string

	OutputDir     string
	Format        ImageFormat
	PixelsPerDeg  int
	MinDiff       *float64
	MaxDiff       *float64
	StartTime     *time.Time
	EndTime       *time.Time
	Verbose       bool
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		BaseName:     defaultBaseName,
		Satellite:    defaultSatellite,
		OutputDir:    ".",
		Format:       ImagePNG,
		PixelsPerDeg: defaultPixelsPerDeg,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		flag.Usage()
		return nil, err
	}
	return c, nil
}

func parseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var imageFormat, startTime, endTime string
	var minDiff, maxDiff float64
	fs.StringVar(&c.DataDir, "dir", "", "Directory with CSV shards")
	fs.StringVar(&c.BaseName, "base", c.BaseName, "Base name of the CSV shards")
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.MissionID, "m", 1, "Mission ID")
	fs.StringVar(&c.TLEFile, "tle", "", "Path to a TLE file, the built-in elements are used if empty")
	fs.StringVar(&c.Satellite, "sat", c.Satellite, "Satellite name in the TLE file")
	fs.StringVar(&c.ModelFile, "cof", "", "Path to a WMM coefficient file, the built-in WMM2020 is used if empty")
	fs.StringVar(&c.OutputDir, "o", c.OutputDir, "Output directory")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Map image format. [png, jpeg]")
	fs.IntVar(&c.PixelsPerDeg, "ppd", c.PixelsPerDeg, "Map resolution in pixels per degree")
	fs.Float64Var(&minDiff, "min-diff", 0, "Define a manual minimum intensity difference (µT)")
	fs.Float64Var(&maxDiff, "max-diff", 0, "Define a manual maximum intensity difference (µT)")
	fs.StringVar(&startTime, "start", "", "Skip records before this time (RFC 3339), database only")
	fs.StringVar(&endTime, "end", "", "Skip records after this time (RFC 3339), database only")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable map annotations such as scales and summary")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-diff":
			c.MinDiff = &minDiff
		case "max-diff":
			c.MaxDiff = &maxDiff
		}
	})

	var err error
	if c.StartTime, err = parseTime("start", startTime); err != nil {
		return nil, err
	}
	if c.EndTime, err = parseTime("end", endTime); err != nil {
		return nil, err
	}

	switch {
	case c.DataDir == "" && c.DBPath == "":
		err = errors.New("either a shard directory or a db path is required")
	case c.DataDir != "" && c.DBPath != "":
		err = errors.New("shard directory and db path are mutually exclusive")
	case c.DBPath != "" && c.MissionID <= 0:
		err = errors.New("mission id is required")
	case c.DataDir != "" && (c.StartTime != nil || c.EndTime != nil):
		err = errors.New("time filters require a db path")
	case c.PixelsPerDeg <= 0 || c.PixelsPerDeg > maxPixelsPerDeg:
		err = fmt.Errorf("map resolution must be between 1 and %d pixels per degree", maxPixelsPerDeg)
	case c.MinDiff != nil && c.MaxDiff != nil && *c.MinDiff >= *c.MaxDiff:
		err = errors.New("min-diff must be less than max-diff")
	}
	if err != nil {
		return nil, err
	}

	if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		return nil, fmt.Errorf("invalid image format: %s", imageFormat)
	}

	c.Format = ImageFormat(imageFormat)
	return c, nil
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s time: %w", name, err)
	}
	return &t, nil
}

// path returns the location of an output file.
func (c *Config) path(name string) string {
	return filepath.Join(c.OutputDir, name)
}
