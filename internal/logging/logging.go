// Package logging owns the process logger.
package logging

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

var level = new(slog.LevelVar)

var logger = slog.New(newHandler())

func newHandler() slog.Handler {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	}
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger
}

// SetLevel changes the minimum level for all subsequent log records.
func SetLevel(l slog.Level) {
	level.Set(l)
}
