package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// KeyError is the attribute key used for error messages.
	KeyError = "err"

	// KeyDal is the attribute key used to identify a data access layer.
	KeyDal = "dal"

	// KeySignal is the attribute key used for OS signals.
	KeySignal = "signal"

	// KeyAppName is the attribute key used for the application name.
	KeyAppName = "app"

	// EnvLogLevel is the environment variable for the log level.
	EnvLogLevel = `LOG_LEVEL`
)

// Name is the name of the application that the logger is created for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// name is the name of the application.
	name Name

	// w is the destination for log output.
	w io.Writer
}

// NewConfig creates a new logging configuration for the named application.
func NewConfig(name Name) *Config {
	return &Config{
		name: name,
		w:    os.Stdout,
	}
}

// CommonLogger creates the logger used across the application. The level is
// taken from the LOG_LEVEL environment variable, defaulting to info.
func CommonLogger(c *Config) (*slog.Logger, error) {
	if c == nil {
		return nil, fmt.Errorf("nil logging config")
	}

	l := slog.New(slog.NewJSONHandler(c.w, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})).With(slog.String(KeyAppName, string(c.name)))

	slog.SetDefault(l)
	return l, nil
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv(EnvLogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
