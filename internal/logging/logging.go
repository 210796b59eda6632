// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured leveled logger shared by the
// daemon and the control-plane commands. It wraps charmbracelet/log rather
// than inventing a logging format, since every component logs with the same
// key/value call shape.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Logger is the structured logger handed to every component. It's a thin
// alias over *log.Logger so callers use the familiar Info/Warn/Error/Debug
// call shape with trailing key/value pairs.
type Logger = *log.Logger

var (
	mu      sync.Mutex
	root    *log.Logger
	mirrors bool
)

// Init opens the daemon log file at path (created if absent, appended to if
// present) and configures the root logger. When the process is attached to
// a terminal, lines are also mirrored to stderr in addition to the file.
// Init is safe to call once at process startup; New derives component
// loggers from the configured root afterward.
func Init(path string) (func() error, error) {
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}

	var w io.Writer = f
	mirrors = term.IsTerminal(int(os.Stderr.Fd()))
	if mirrors {
		w = io.MultiWriter(f, os.Stderr)
	}

	root = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05.000Z07:00",
	})
	root.SetLevel(log.DebugLevel)

	return f.Close, nil
}

// New returns a component logger carrying component=name in every line. If
// Init was never called (e.g. in tests, or one-shot CLI commands that only
// log to stderr) it falls back to a stderr-only logger at Info level.
func New(component string) *log.Logger {
	mu.Lock()
	r := root
	mu.Unlock()

	if r == nil {
		r = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
		r.SetLevel(log.InfoLevel)
	}
	return r.With("component", component)
}

// WithRunID returns l with run_id=id attached, so every line emitted during
// one reconcile pass can be correlated.
func WithRunID(l *log.Logger, id string) *log.Logger {
	return l.With("run_id", id)
}

// Mirroring reports whether Init, in this process, detected a terminal on
// stderr and is duplicating log lines there in addition to the log file.
// It is false in a process that never called Init. cmd.RunLogs consults
// it for "logs --stream auto".
func Mirroring() bool {
	mu.Lock()
	defer mu.Unlock()
	return mirrors
}
