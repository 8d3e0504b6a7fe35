package config

import (
	"fmt"
	"os"

	"github.com/hay-kot/criterio"
)

// Validate checks that the configuration is structurally valid and that the
// data root resolves to an existing directory.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("data_dir", c.DataDir, isDirectory),
		criterio.Run("dialect", c.Dialect, isKnownDialect),
		criterio.Run("http.port", c.HTTP.Port, isPort),
		criterio.Run("archive.window_days", c.Archive.WindowDays, isNonNegative),
		criterio.Run("archive.max_results", c.Archive.MaxResults, isPositive),
		criterio.Run("watch.debounce_ms", c.Watch.DebounceMS, isNonNegative),
	)
}

// isDirectory validates that a path exists and is a directory. Unlike most
// fields this is fatal when unset: the daemon has nothing to watch without
// a data root.
func isDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("data directory is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func isKnownDialect(name string) error {
	switch name {
	case "", "classic", "workspace":
		return nil
	default:
		return fmt.Errorf("unknown dialect %q", name)
	}
}

func isPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535")
	}
	return nil
}

func isNonNegative(n int) error {
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func isPositive(n int) error {
	if n < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}
