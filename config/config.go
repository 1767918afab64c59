// Package config loads the engine's own ambient configuration: transport
// port, bus buffer hints, engine-ignore-set additions, log level, and the
// optional session recorder. It never loads breakpoints — those are
// session state, not configuration (see SPEC_FULL.md §4.14).
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RecorderConfig configures the optional SQLite-backed message audit log.
// A zero value (DSN == "") disables the recorder entirely.
type RecorderConfig struct {
	DSN          string        `yaml:"dsn"`
	RetentionAge time.Duration `yaml:"retention_age"`
}

// Config is the engine's YAML-decodable configuration.
type Config struct {
	Port             int            `yaml:"port"`
	BusBufferSize    int            `yaml:"bus_buffer_size"`
	ExtraIgnoreFiles []string       `yaml:"extra_ignore_files"`
	LogLevel         string         `yaml:"log_level"`
	Recorder         RecorderConfig `yaml:"recorder"`
}

// Default returns the built-in configuration used when no --config flag is
// given.
func Default() Config {
	return Config{
		Port:          8765,
		BusBufferSize: 256,
		LogLevel:      "info",
	}
}

// Load reads and decodes a YAML config file at path, filling any field the
// file omits with Default()'s value.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
