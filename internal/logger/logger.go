// Package logger holds the process-wide structured logger. Until Set or
// Setup is called, everything goes through slog.Default so host
// applications embedding pgviews control where log lines end up.
package logger

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// Set replaces the global logger
func Set(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// Setup installs a text logger on stderr at info level, or debug level when
// debug is set
func Setup(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	Set(l)
	return l
}

// Get returns the global logger instance
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return slog.Default()
	}
	return current
}

// For returns the global logger tagged with a component name
func For(component string) *slog.Logger {
	return Get().With("component", component)
}

// IsDebug reports whether debug records would be emitted
func IsDebug() bool {
	return Get().Enabled(context.Background(), slog.LevelDebug)
}
