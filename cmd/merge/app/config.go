package app

import (
	"errors"
	"flag"
	"os"

	"github.com/roman-kulish/geomag-logger/internal/dataset"
)

const defaultBaseName = "output"

type Config struct {
	DataDir    string
	BaseName   string
	OutputFile string
	DBPath     string
	Source     string
	ConfigFile string // logger configuration stored with the mission
	BatchSize  int
	List       bool
	Verbose    bool
}

func NewConfig() *Config {
	return &Config{
		BaseName:  defaultBaseName,
		BatchSize: dataset.DefaultImportBatch,
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

	fs.StringVar(&c.DataDir, "dir", "", "Directory with CSV shards")
	fs.StringVar(&c.BaseName, "base", c.BaseName, "Base name of the CSV shards")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the merged CSV file")
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file to import into")
	fs.StringVar(&c.Source, "source", "", "Mission source label, defaults to the shard directory")
	fs.StringVar(&c.ConfigFile, "config", "", "Logger configuration file to store with the mission")
	fs.IntVar(&c.BatchSize, "batch", c.BatchSize, "Records per import transaction")
	fs.BoolVar(&c.List, "list", false, "List the missions stored in the database and exit")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if c.List {
		if c.DBPath == "" {
			return nil, errors.New("db path is required")
		}
		return c, nil
	}

	var err error
	switch {
	case c.DataDir == "":
		err = errors.New("shard directory is required")
	case c.BaseName == "":
		err = errors.New("base name is required")
	case c.OutputFile == "" && c.DBPath == "":
		err = errors.New("an output file, a db path or both are required")
	case c.BatchSize <= 0:
		err = errors.New("batch size must be positive")
	}
	if err != nil {
		return nil, err
	}

	if c.Source == "" {
		c.Source = c.DataDir
	}
	return c, nil
}
