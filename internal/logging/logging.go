// Package logging provides structured logging for the depscope application.
//
// The logger supports multiple log levels (DEBUG, INFO, WARN, ERROR, FATAL),
// named component loggers, and structured key-value fields:
//
//	logging.Initialize("info")
//	logger := logging.GetLogger("ingest")
//	logger.Info("batch complete")
//	logger.InfoWithFields("batch complete",
//	    logging.Field("claims", n),
//	    logging.Field("duration_ms", elapsed.Milliseconds()),
//	)
//
// Loggers are immutable; WithField returns a new instance, so loggers are
// safe to share across goroutines. Per-package level overrides support
// targeted debugging, e.g. {"adapters.*": "debug"}.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
	// FATAL level for fatal messages
	FATAL
)

// LogField represents a structured logging field
type LogField struct {
	Key   string
	Value interface{}
}

// Field creates a structured logging field
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// Logger provides structured logging throughout the application
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
}

var (
	globalLogger *Logger
	initOnce     sync.Once

	// packageLogLevels stores per-package level overrides.
	// Keys are exact names ("resolver") or wildcard patterns ("adapters.*").
	packageLogLevels = make(map[string]LogLevel)
	packageLogMutex  sync.RWMutex

	// exitFunc is called by Fatal. Overridable for testing.
	exitFunc = os.Exit
)

// Initialize initializes the global logger with the specified default level
// and optional per-package level overrides.
func Initialize(levelStr string, packageLevels ...map[string]string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalLogger = &Logger{
		level: level,
		name:  "depscope",
	}

	if len(packageLevels) > 0 && packageLevels[0] != nil {
		if err := SetPackageLogLevels(packageLevels[0]); err != nil {
			return err
		}
	}
	return nil
}

// GetLogger returns a logger with the specified name.
// Thread-safe: the global logger is lazily initialized once.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{
		level:  globalLogger.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// SetPackageLogLevels configures per-package log levels.
// Returns an error if any level name is invalid.
func SetPackageLogLevels(levels map[string]string) error {
	if levels == nil {
		return nil
	}

	packageLogMutex.Lock()
	defer packageLogMutex.Unlock()

	packageLogLevels = make(map[string]LogLevel)
	for pkg, levelStr := range levels {
		level, err := ParseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level for package %q: %w", pkg, err)
		}
		packageLogLevels[pkg] = level
	}
	return nil
}

// packageLevel returns the effective override level for a logger name,
// or -1 when no override matches. Most specific (longest) pattern wins.
func packageLevel(name string) LogLevel {
	packageLogMutex.RLock()
	defer packageLogMutex.RUnlock()

	if level, ok := packageLogLevels[name]; ok {
		return level
	}

	best := ""
	for pattern := range packageLogLevels {
		if matchesPattern(name, pattern) && len(pattern) > len(best) {
			best = pattern
		}
	}
	if best != "" {
		return packageLogLevels[best]
	}
	return LogLevel(-1)
}

// matchesPattern supports wildcard patterns like "adapters.*".
func matchesPattern(name, pattern string) bool {
	if name == pattern {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(name, prefix+".")
	}
	return false
}

// ParseLevel converts a string level to a LogLevel
func ParseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return -1, fmt.Errorf("invalid level: %s (must be DEBUG, INFO, WARN, ERROR, or FATAL)", levelStr)
	}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	if pkgLevel := packageLevel(l.name); pkgLevel >= 0 {
		return level >= pkgLevel
	}
	return level >= l.level
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf("DEBUG", msg, args...)
	}
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf("INFO", msg, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf("WARN", msg, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf("ERROR", msg, args...)
	}
}

// Fatal logs a fatal message and exits the program with code 1
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf("FATAL", msg, args...)
	}
	exitFunc(1)
}

// ErrorWithErr logs an error message with an attached error
func (l *Logger) ErrorWithErr(msg string, err error) {
	if l.shouldLog(ERROR) {
		l.logWithFields("ERROR", msg, []LogField{Field("error", err)})
	}
}

// DebugWithFields logs a debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logWithFields("DEBUG", msg, fields)
	}
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logWithFields("INFO", msg, fields)
	}
}

// WarnWithFields logs a warning message with structured fields
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logWithFields("WARN", msg, fields)
	}
}

// ErrorWithFields logs an error message with structured fields
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logWithFields("ERROR", msg, fields)
	}
}

// WithField returns a new logger with an additional persistent field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	fields := cloneFields(l.fields)
	fields[key] = value
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: fields,
	}
}

// WithFields returns a new logger with additional persistent fields
func (l *Logger) WithFields(fields ...LogField) *Logger {
	merged := cloneFields(l.fields)
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: merged,
	}
}

// cloneFields creates a copy of the source fields map
func cloneFields(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
