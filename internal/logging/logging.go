// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process and returns the logger.
// format is "json" (default) or "text".
func Setup(level, format string) (zerolog.Logger, error) {
	return SetupWithWriter(level, format, os.Stderr)
}

// SetupWithWriter configures zerolog writing to w.
func SetupWithWriter(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	var writer io.Writer
	switch strings.ToLower(format) {
	case "", "json":
		writer = w
	case "text", "console":
		writer = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q: must be json or text", format)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger, nil
}
