package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/bethyw/pkg/datasets"
)

type config struct {
	// DataDir holds the source files named by the registry.
	DataDir string `yaml:"data_dir"`
	// Datasets replaces the built-in dataset registry when set.
	Datasets string `yaml:"datasets"`
	// Catalog is the SQLite file recording datasets and import runs. Empty disables it.
	Catalog       string        `yaml:"catalog"`
	Addr          string        `yaml:"addr"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	ErrorPolicy   string        `yaml:"error_policy"`
	CheckInterval time.Duration `yaml:"check_interval"`

	path string
}

type overrides struct {
	DataDir   string
	LogLevel  string
	LogFormat string
}

func defaultConfig() config {
	return config{
		DataDir:     "datasets",
		Addr:        ":8420",
		LogLevel:    "info",
		LogFormat:   "text",
		ErrorPolicy: "fail-fast",
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

func (c *config) apply(ov overrides) {
	if ov.DataDir != "" {
		c.DataDir = ov.DataDir
	}
	if ov.LogLevel != "" {
		c.LogLevel = ov.LogLevel
	}
	if ov.LogFormat != "" {
		c.LogFormat = ov.LogFormat
	}
}

func (c *config) registry() (*datasets.Registry, error) {
	if c.Datasets == "" {
		return datasets.Default()
	}
	return datasets.Load(c.Datasets)
}
