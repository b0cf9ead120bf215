// Package logx provides the module-wide structured logger. Every package
// that needs to log takes a *log.Logger (or falls back to Default()) and
// tags lines with the fields that matter for a capture session, using
// charmbracelet/log's logger.With("key", value) idiom.
package logx

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	defaultOnce   sync.Once
	defaultLogger *log.Logger
)

// New builds a logger writing to w at the given level, with a timestamp and
// the subsystem name attached to every line.
func New(w io.Writer, level log.Level, subsystem string) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})

	return l.With("subsystem", subsystem)
}

// Default returns the process-wide logger, created on first use writing to
// stderr at Info level. Packages that don't receive an explicit *log.Logger
// from their caller fall back to this.
func Default() *log.Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(os.Stderr, log.InfoLevel, "logicap")
	})

	return defaultLogger
}

// SetDefault replaces the process-wide logger. Intended for tests and for
// CLI entry points that want to honor a -v/--verbose flag.
func SetDefault(l *log.Logger) {
	defaultOnce.Do(func() {})
	defaultLogger = l
}
