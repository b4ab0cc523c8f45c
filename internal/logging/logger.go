// Package logging is the process-wide human-readable log. The TUI owns the
// terminal, so output goes to a size-rotated file under ~/.cinelog/logs.
// Until Init or InitWriter runs, every call is a no-op.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the global logger instance. Nil until initialized.
	Logger *log.Logger

	// out is closed by Close when it is a rotating file.
	out io.Closer
)

// Options configures Init.
type Options struct {
	Dir        string // defaults to ~/.cinelog/logs
	Level      string // debug, info, warn, error
	MaxSizeMB  int
	MaxBackups int
	Version    string
}

// Path returns the log file Init writes to for dir.
func Path(dir string) string {
	return filepath.Join(dir, "cinelog.log")
}

// Init opens the rotating log file and installs the global logger.
func Init(opts Options) error {
	dir := opts.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".cinelog", "logs")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   Path(dir),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   false,
	}
	if err := InitWriter(lj, opts.Level); err != nil {
		lj.Close()
		return err
	}
	out = lj

	Logger.Info("cinelog started", "version", opts.Version, "pid", os.Getpid())
	return nil
}

// InitWriter installs a global logger writing to w. Used by cinectl, which
// logs to stderr, and by tests.
func InitWriter(w io.Writer, level string) error {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	Logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	})
	return nil
}

// Close flushes and closes the log file.
func Close() {
	if Logger != nil {
		Logger.Info("cinelog shutting down")
	}
	if out != nil {
		out.Close()
		out = nil
	}
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

// WithPrefix returns a child logger tagged with prefix. Before Init it
// returns a logger that discards everything, so callers never nil-check.
func WithPrefix(prefix string) *log.Logger {
	if Logger != nil {
		return Logger.WithPrefix(prefix)
	}
	return log.New(io.Discard)
}
