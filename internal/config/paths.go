package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigDir returns the agent's default config directory,
// "~/.config/termihub-agent", used when TERMIHUB_CONFIG_DIR is unset.
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "termihub-agent"), nil
}

// EnsureConfigDir creates dir if it does not already exist.
func EnsureConfigDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
