// Package config loads the agent's optional on-disk configuration and
// merges it with built-in defaults.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AgentConfig holds agent-wide settings read from config.yaml.
type AgentConfig struct {
	LogLevel          string `yaml:"logLevel,omitempty"`
	LogFile           string `yaml:"logFile,omitempty"`
	RingBufferBytes   int    `yaml:"ringBufferBytes,omitempty"`
	MaxSessions       int    `yaml:"maxSessions,omitempty"`
	MonitoringCommand string `yaml:"monitoringCommand,omitempty"`
}

const (
	DefaultRingBufferBytes = 1 << 20 // 1 MiB, per spec.md §3
	DefaultMaxSessions     = 64
	DefaultLogLevel        = "info"
)

// Defaults returns the built-in configuration used when no config file
// is present or a field is left unset.
func Defaults() *AgentConfig {
	return &AgentConfig{
		LogLevel:        DefaultLogLevel,
		RingBufferBytes: DefaultRingBufferBytes,
		MaxSessions:     DefaultMaxSessions,
	}
}

// Load reads "config.yaml" from configDir, merging it over the built-in
// defaults. A missing file is not an error — the agent runs on defaults
// alone, matching the teacher's "absence is not an error" convention.
func Load(configDir string) (*AgentConfig, error) {
	cfg := Defaults()
	if configDir == "" {
		return cfg, nil
	}

	path := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var onDisk AgentConfig
	if err := yaml.Unmarshal(data, &onDisk); err != nil {
		return nil, err
	}

	if onDisk.LogLevel != "" {
		cfg.LogLevel = onDisk.LogLevel
	}
	if onDisk.LogFile != "" {
		cfg.LogFile = onDisk.LogFile
	}
	if onDisk.RingBufferBytes != 0 {
		cfg.RingBufferBytes = onDisk.RingBufferBytes
	}
	if onDisk.MaxSessions != 0 {
		cfg.MaxSessions = onDisk.MaxSessions
	}
	if onDisk.MonitoringCommand != "" {
		cfg.MonitoringCommand = onDisk.MonitoringCommand
	}

	return cfg, nil
}
