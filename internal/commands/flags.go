package commands

import (
	"os"
	"path/filepath"
)

// Flags holds the global CLI flag values shared by all commands.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "taskdeck", "config.yaml")
}

// DefaultDataDir returns the default workspace data directory using
// XDG_DATA_HOME. The directory must exist; the daemon refuses to start
// without a resolvable data root.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "taskdeck")
}
