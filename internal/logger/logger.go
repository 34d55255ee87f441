// Package logger provides a configured zerolog logger.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a new zerolog.Logger configured for the application.
func New(serviceName string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// NewWithLevel is New with an explicit minimum level; unknown level names
// fall back to info.
func NewWithLevel(serviceName, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return New(serviceName).Level(lvl)
}
