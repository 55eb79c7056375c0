// CLAUDE:SUMMARY Defines sigstore Config, YAML loading, and defaults.
package sigstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the correlation store configuration.
type Config struct {
	// DBPath is the SQLite database file. Default: "sigcor.db".
	DBPath string `yaml:"db_path"`

	// ReadOnly opens the database without write access; ingestion and
	// recompute operations fail against a read-only store.
	ReadOnly bool `yaml:"read_only"`

	// BusyTimeoutMS is the SQLite busy_timeout. Default: 10000.
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`

	// Synchronous is the SQLite synchronous mode. Default: "NORMAL".
	Synchronous string `yaml:"synchronous"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "sigcor.db"
	}
	if c.BusyTimeoutMS <= 0 {
		c.BusyTimeoutMS = 10_000
	}
	if c.Synchronous == "" {
		c.Synchronous = "NORMAL"
	}
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sigstore: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("sigstore: parse config: %w", err)
	}

	cfg.defaults()
	return &cfg, nil
}
