// ABOUTME: Structured logging setup for the gateway using log/slog
// ABOUTME: Level and format come from LOG_LEVEL and LOG_FORMAT

package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Init installs the process-wide slog default. JSON output is the default
// since the gateway normally runs containerized; set LOG_FORMAT=text for
// local development. LOG_LEVEL accepts debug, info, warn, error.
func Init() {
	opts := &slog.HandlerOptions{Level: level()}

	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler).With("service", "indiexport-gateway"))
}

// level parses LOG_LEVEL, defaulting to info on absence or garbage.
func level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return l
}
