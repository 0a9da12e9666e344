// Package config holds daemon configuration: defaults, optional YAML
// file, with command-line flags layered on top by the caller.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "500ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// ServerConfig holds configuration for the durq daemon.
type ServerConfig struct {
	Addr          string   `yaml:"addr"`           // listen address
	LogLevel      string   `yaml:"log_level"`      // debug, info, warn, error
	LogFormat     string   `yaml:"log_format"`     // text, json
	DBPath        string   `yaml:"db_path"`        // SQLite path; ":memory:" for testing
	QueueRegion   string   `yaml:"queue_region"`   // durable region backing the task queue
	QueueCapacity string   `yaml:"queue_capacity"` // live-entry byte budget, e.g. "64MB"; empty = unlimited
	PollInterval  Duration `yaml:"poll_interval"`  // background drain interval
	RuntimeDepth  int      `yaml:"runtime_depth"`  // cooperative runtime submission queue depth
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:          ":8080",
		LogLevel:      "info",
		LogFormat:     "text",
		QueueRegion:   "pending_tasks",
		QueueCapacity: "64MB",
		PollInterval:  Duration(2 * time.Second),
		RuntimeDepth:  64,
	}
}

// Load reads a YAML config file over the defaults. Fields absent from the
// file keep their default values.
func Load(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// CapacityBytes parses QueueCapacity into a byte count. An empty value
// means unlimited and yields 0.
func (c ServerConfig) CapacityBytes() (uint64, error) {
	if c.QueueCapacity == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.QueueCapacity)
	if err != nil {
		return 0, fmt.Errorf("queue_capacity %q: %w", c.QueueCapacity, err)
	}
	return n, nil
}
