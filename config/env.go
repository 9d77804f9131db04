package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// The environment variables that set run defaults.
const (
	EnvLogLevel    = "SMTLINE_LOG_LEVEL"
	EnvRecordDB    = "SMTLINE_RECORD_DB"
	EnvMonitorPort = "SMTLINE_MONITOR_PORT"
)

// Defaults are the run settings taken from the environment. Flags given on
// the command line override them.
type Defaults struct {
	LogLevel    string
	RecordDB    string
	MonitorPort int
}

// DefaultsFromEnv loads the given .env files, or ".env" if none is given, and
// reads the defaults from the environment. Missing files are ignored.
// Variables already set in the environment win over the files.
func DefaultsFromEnv(files ...string) (Defaults, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Defaults{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	d := Defaults{
		LogLevel: os.Getenv(EnvLogLevel),
		RecordDB: os.Getenv(EnvRecordDB),
	}

	if d.LogLevel == "" {
		d.LogLevel = "info"
	}

	if port := os.Getenv(EnvMonitorPort); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 {
			return Defaults{}, fmt.Errorf("invalid %s %q", EnvMonitorPort, port)
		}

		d.MonitorPort = n
	}

	return d, nil
}
