package utils

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// defaultBackgroundLoggingEnabled is the default value when no config is available.
const defaultBackgroundLoggingEnabled = true

// Logger provides leveled logging with verbose mode support.
type Logger struct {
	verbose bool
	mu      sync.RWMutex
	base    *log.Logger
}

var (
	loggerInstance *Logger
	once           sync.Once
)

// GetLogger returns the singleton logger instance.
func GetLogger() *Logger {
	once.Do(func() {
		loggerInstance = &Logger{
			verbose: false,
			base: log.NewWithOptions(os.Stderr, log.Options{
				Level:  log.InfoLevel,
				Prefix: "todoapp",
			}),
		}
	})
	return loggerInstance
}

// SetVerboseMode sets the verbose mode globally.
func SetVerboseMode(verbose bool) {
	GetLogger().SetVerbose(verbose)
}

// SetVerbose sets the verbose mode for this logger instance.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
	if verbose {
		l.base.SetLevel(log.DebugLevel)
	} else {
		l.base.SetLevel(log.InfoLevel)
	}
}

// IsVerbose returns whether verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// SetOutput redirects all log output to w.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// Base returns the underlying structured logger for key/value logging.
func (l *Logger) Base() *log.Logger {
	return l.base
}

// StandardLog returns a standard library logger that writes through this logger at info level.
func (l *Logger) StandardLog() *stdlog.Logger {
	return l.base.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})
}

// formatMessage formats a message with optional printf-style arguments.
func formatMessage(msgOrFormat string, args ...interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(msgOrFormat, args...)
	}
	return msgOrFormat
}

// Debug logs a debug message (only shown when verbose=true).
func (l *Logger) Debug(msgOrFormat string, args ...interface{}) {
	l.base.Debug(formatMessage(msgOrFormat, args...))
}

// Info logs an info message.
func (l *Logger) Info(msgOrFormat string, args ...interface{}) {
	l.base.Info(formatMessage(msgOrFormat, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(msgOrFormat string, args ...interface{}) {
	l.base.Warn(formatMessage(msgOrFormat, args...))
}

// Error logs an error message.
func (l *Logger) Error(msgOrFormat string, args ...interface{}) {
	l.base.Error(formatMessage(msgOrFormat, args...))
}

// Debugf logs a debug message using the global logger.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof logs an info message using the global logger.
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf logs a warning message using the global logger.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf logs an error message using the global logger.
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

// BackgroundLogger redirects the global logger to a file while a full-screen
// interface owns the terminal.
type BackgroundLogger struct {
	logFile  *os.File
	enabled  bool
	filePath string
}

// DefaultBackgroundLogPath returns the PID-specific log path in the temp dir.
func DefaultBackgroundLogPath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("todoapp-%d.log", os.Getpid()))
}

// NewBackgroundLogger creates a background logger at the default path.
func NewBackgroundLogger() (*BackgroundLogger, error) {
	return NewBackgroundLoggerWithEnabled(defaultBackgroundLoggingEnabled, "")
}

// NewBackgroundLoggerWithEnabled creates a background logger with explicit enabled control.
// When disabled, log output is discarded until Close. An empty path selects
// DefaultBackgroundLogPath.
func NewBackgroundLoggerWithEnabled(enabled bool, path string) (*BackgroundLogger, error) {
	if !enabled {
		GetLogger().SetOutput(io.Discard)
		return &BackgroundLogger{enabled: false}, nil
	}
	if path == "" {
		path = DefaultBackgroundLogPath()
	}
	return NewBackgroundLoggerWithPath(path)
}

// NewBackgroundLoggerWithPath creates a background logger writing to path.
func NewBackgroundLoggerWithPath(path string) (*BackgroundLogger, error) {
	bl := &BackgroundLogger{
		filePath: path,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		GetLogger().SetOutput(io.Discard)
		return bl, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Gracefully degrade to io.Discard
		GetLogger().SetOutput(io.Discard)
		return bl, err
	}

	bl.logFile = file
	bl.enabled = true
	GetLogger().SetOutput(file)
	return bl, nil
}

// Close closes the log file and restores logging to stderr.
func (bl *BackgroundLogger) Close() {
	if bl.logFile != nil {
		_ = bl.logFile.Close()
		bl.logFile = nil
	}
	GetLogger().SetOutput(os.Stderr)
	bl.enabled = false
}

// GetLogPath returns the log file path.
func (bl *BackgroundLogger) GetLogPath() string {
	return bl.filePath
}

// IsEnabled returns whether background logging is enabled.
func (bl *BackgroundLogger) IsEnabled() bool {
	return bl.enabled
}
