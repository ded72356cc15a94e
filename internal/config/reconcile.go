// Package config loads settings for the recsync commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Reconcile holds settings for the reconcile command. Any field may come
// from a YAML file; command-line flags take precedence.
type Reconcile struct {
	User        string  `yaml:"user"`
	Device      string  `yaml:"device"`
	Endpoint    string  `yaml:"endpoint"`
	DataFolder  string  `yaml:"data_folder"`
	DryRun      bool    `yaml:"dry_run"`
	Limit       int     `yaml:"limit"`
	Rate        float64 `yaml:"rate"`
	Journal     string  `yaml:"journal"`
	SkipInvalid bool    `yaml:"skip_invalid"`
}

// LoadReconcile reads a YAML reconcile config. Unknown keys are rejected.
// An empty file yields the zero config.
func LoadReconcile(path string) (Reconcile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Reconcile{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Reconcile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Reconcile{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields and ranges.
func (c Reconcile) Validate() error {
	var missing []string
	if c.User == "" {
		missing = append(missing, "user")
	}
	if c.Device == "" {
		missing = append(missing, "device")
	}
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.DataFolder == "" {
		missing = append(missing, "data-folder")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required settings not set: %v", missing)
	}

	if c.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", c.Limit)
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must be >= 0, got %g", c.Rate)
	}
	return nil
}
