package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kaans/mqtli/internal/errs"
)

// LoadYAML reads and parses the YAML config file at path. topics[] are
// YAML-only per spec §6, so this is the only place they enter the Config.
func LoadYAML(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, &errs.ConfigError{Field: "config-file", Cause: fmt.Errorf("reading %s: %w", path, err)}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &errs.ConfigError{Field: "config-file", Cause: fmt.Errorf("parsing %s: %w", path, err)}
	}
	return cfg, nil
}
