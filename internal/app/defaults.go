package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the locations dirsync uses when no config overrides them.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DIRSYNC_CONFIG_PATH: config file location (default: ~/.config/dirsync.toml)
//   - DIRSYNC_HOME: base directory for dirsync data (default: ~/.local/share/dirsync)
func GetDefaults() (*Defaults, error) {
	configPath := os.Getenv("DIRSYNC_CONFIG_PATH")
	baseDir := os.Getenv("DIRSYNC_HOME")

	if configPath == "" || baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if configPath == "" {
			configPath = filepath.Join(homeDir, ".config", "dirsync.toml")
		}
		if baseDir == "" {
			baseDir = filepath.Join(homeDir, ".local", "share", "dirsync")
		}
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}
