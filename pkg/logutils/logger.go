// Package logutils constructs the process-wide zerolog logger.
package logutils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// New returns a logger writing JSON to the specified file. If file is
// empty, logs are written human-readable to stderr so daemon output stays
// off stdout.
//
// The level parameter can be one of: debug, info, warn, error, fatal.
func New(level string, file string) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	var writer zerolog.LevelWriter
	if file == "" {
		writer = zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logsDir := filepath.Dir(file)
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}

		osFile, err := os.Create(file)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = osFile.Close() }
		writer = zerolog.MultiLevelWriter(osFile)
	}

	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return l, closer, nil
}
