// Package logging provides the component logger used across the fetcher.
//
// Every entry has the form "[timestamp] [component] [LEVEL] message". Loggers
// created for the same run share one run id, and optionally one log file in
// the user cache directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level represents the logging verbosity level
type Level int

const (
	// LevelQuiet shows only warnings and errors
	LevelQuiet Level = iota
	// LevelNormal shows standard execution progress (default)
	LevelNormal
	// LevelVerbose shows detailed execution information
	LevelVerbose
	// LevelDebug shows all internal details for debugging
	LevelDebug
)

// ParseLevel maps a verbosity name to a Level. Unknown names map to LevelNormal.
func ParseLevel(verbosity string) Level {
	switch strings.ToLower(verbosity) {
	case "quiet":
		return LevelQuiet
	case "verbose":
		return LevelVerbose
	case "debug":
		return LevelDebug
	default:
		return LevelNormal
	}
}

// sink is the destination shared by a logger and the loggers derived from it.
type sink struct {
	mu      sync.Mutex
	writer  io.Writer
	file    *os.File
	logPath string
	closed  sync.Once
}

// Logger writes leveled entries for one component.
type Logger struct {
	component string
	level     Level
	sink      *sink
}

var (
	// Global run ID for the current execution
	runID     string
	runIDOnce sync.Once
)

// RunID returns or creates the run ID for this execution
func RunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// New creates a logger writing to w.
func New(w io.Writer, component string, level Level) *Logger {
	return &Logger{
		component: component,
		level:     level,
		sink:      &sink{writer: w},
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, "discard", LevelQuiet)
}

// LogDirectory returns the directory holding per-run log files.
func LogDirectory() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	return filepath.Join(cacheDir, "edition-fetch", "logs"), nil
}

// NewWithFile creates a logger writing to w and to
// <cache>/edition-fetch/logs/<run-id>-edition-fetch.log.
//
// If the log file cannot be opened, it returns a logger writing to w only
// along with the error. Callers can check the error to detect fallback mode.
func NewWithFile(w io.Writer, component string, level Level) (*Logger, error) {
	dir, err := LogDirectory()
	if err == nil {
		err = os.MkdirAll(dir, 0750)
	}
	if err != nil {
		return New(w, component, level), fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(dir, fmt.Sprintf("%s-edition-fetch.log", RunID()))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return New(w, component, level), fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		component: component,
		level:     level,
		sink: &sink{
			writer:  io.MultiWriter(w, file),
			file:    file,
			logPath: logPath,
		},
	}, nil
}

// Named returns a logger for another component sharing the same sink.
func (l *Logger) Named(component string) *Logger {
	return &Logger{component: component, level: l.level, sink: l.sink}
}

// Level returns the logger's verbosity.
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) write(threshold Level, tag, format string, v ...interface{}) {
	if l.level < threshold {
		return
	}
	message := fmt.Sprintf(format, v...)
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	entry := fmt.Sprintf("[%s] [%s] [%s] %s\n", timestamp, l.component, tag, message)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, _ = io.WriteString(l.sink.writer, entry)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, v...)
}

// Verbosef logs a detail that is only shown in verbose mode
func (l *Logger) Verbosef(format string, v ...interface{}) {
	l.write(LevelVerbose, "INFO", format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write(LevelNormal, "INFO", format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write(LevelQuiet, "WARN", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write(LevelQuiet, "ERROR", format, v...)
}

// LogPath returns the path to the log file, or "" when logging to a writer only
func (l *Logger) LogPath() string {
	return l.sink.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.sink.closed.Do(func() {
		if l.sink.file != nil {
			err = l.sink.file.Close()
		}
	})
	return err
}
