package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults resolves the paths the CLI operates on. Environment
// variables win over the XDG-style defaults:
//   - GROUPSYNC_CONFIG_PATH: config file location (default: ~/.config/groupsync.toml)
//   - GROUPSYNC_HOME: base directory for sync state (default: ~/.local/share/groupsync)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking GROUPSYNC_CONFIG_PATH
// env var first, then falling back to the default ~/.config/groupsync.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("GROUPSYNC_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "groupsync.toml"), nil
}

// getBaseDir returns the base directory for groupsync data, checking
// GROUPSYNC_HOME env var first, then falling back to the XDG default
// ~/.local/share/groupsync.
func getBaseDir() (string, error) {
	if path := os.Getenv("GROUPSYNC_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "groupsync"), nil
}
