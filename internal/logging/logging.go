// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging appends timestamped run messages to a log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Logger writes one timestamped line per message. A nil *Logger discards
// everything, so callers never need to check whether logging is enabled.
type Logger struct {
	w     io.WriteCloser
	clock func() time.Time
}

// Open creates (or appends to) the log file at path, creating its directory.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return &Logger{w: f, clock: time.Now}, nil
}

// New wraps an arbitrary writer. Used by tests.
func New(w io.WriteCloser, clock func() time.Time) *Logger {
	if clock == nil {
		clock = time.Now
	}
	return &Logger{w: w, clock: clock}
}

// Close releases the underlying file.
func (l *Logger) Close() error {
	if l == nil || l.w == nil {
		return nil
	}
	return l.w.Close()
}

// Printf writes a single line; trailing newlines in the message are dropped.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.w == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintf(l.w, "[%s] %s\n", l.clock().Format(time.RFC3339), line)
}
