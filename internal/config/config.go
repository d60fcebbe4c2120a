// Package config loads the optional CLI configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// RootPath overrides the workspace root recorded in the profile.
	RootPath string `yaml:"rootPath"`
	// DependencyMarkers override the directory markers used to categorize
	// third-party code.
	DependencyMarkers []string `yaml:"dependencyMarkers"`

	Top TopConfig `yaml:"top"`
}

type TopConfig struct {
	// Limit caps the number of rows printed by the top command. Zero means
	// the built-in default.
	Limit int `yaml:"limit"`
}

func Default() *Config {
	return &Config{
		Top: TopConfig{Limit: 30},
	}
}

// Load reads a YAML config from path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	res := Default()
	if path == "" {
		return res, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, res); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if res.Top.Limit <= 0 {
		res.Top.Limit = Default().Top.Limit
	}
	return res, nil
}
