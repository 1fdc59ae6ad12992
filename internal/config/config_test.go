package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.RingBufferBytes != DefaultRingBufferBytes {
		t.Errorf("RingBufferBytes = %d, want %d", cfg.RingBufferBytes, DefaultRingBufferBytes)
	}
	if cfg.MaxSessions != DefaultMaxSessions {
		t.Errorf("MaxSessions = %d, want %d", cfg.MaxSessions, DefaultMaxSessions)
	}
}

func TestLoadMergesOnDiskOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlBody := "logLevel: debug\nmaxSessions: 8\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlBody), 0644); err != nil {
		t.Fatalf("write config.yaml: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.MaxSessions != 8 {
		t.Errorf("MaxSessions = %d, want 8", cfg.MaxSessions)
	}
	if cfg.RingBufferBytes != DefaultRingBufferBytes {
		t.Errorf("RingBufferBytes = %d, want default %d (unset in file)", cfg.RingBufferBytes, DefaultRingBufferBytes)
	}
}

func TestLoadEmptyConfigDirReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
}
