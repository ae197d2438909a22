package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// savedHeader precedes written config files so a later hand-edit has
// some orientation. The engine never reads it back.
const savedHeader = "# strata engine configuration\n# Values here override the built-in defaults; flags override both.\n"

// Save writes the effective config to the user's config directory,
// where Load will pick it up on the next run.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), "config.yaml"))
}

// SaveTo writes the effective config as YAML to the given path,
// creating parent directories as needed.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(savedHeader), data...), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
