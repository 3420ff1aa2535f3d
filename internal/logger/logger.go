// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup builds a JSON slog.Logger writing to w.  Development environments
// log at debug level.
func Setup(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if strings.EqualFold(env, "dev") || strings.EqualFold(env, "development") {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault installs the JSON logger as the global slog default.  A nil
// writer means stdout.
func SetupDefault(w io.Writer, env string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	l := Setup(w, env)
	slog.SetDefault(l)
	return l
}
