// ABOUTME: XDG config and data path resolution
// ABOUTME: Default locations for the config file and the subscription database

package config

import (
	"os"
	"path/filepath"
)

// AppName names the config and data directories.
const AppName = "rail-scout"

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "RAIL_SCOUT_CONFIG"

// Path returns the path to the config file.
// Priority: RAIL_SCOUT_CONFIG env var > XDG_CONFIG_HOME/rail-scout/config.yaml > ~/.config/rail-scout/config.yaml
func Path() string {
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, AppName, "config.yaml")
}

// DataDir returns the rail-scout data directory.
// Priority: XDG_DATA_HOME/rail-scout > ~/.local/share/rail-scout
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, AppName)
}

// DefaultStoragePath returns where a driver keeps its data by default.
func DefaultStoragePath(driver string) string {
	if driver == "sqlite" {
		return filepath.Join(DataDir(), "subscriptions.db")
	}
	return filepath.Join(DataDir(), "badger")
}
