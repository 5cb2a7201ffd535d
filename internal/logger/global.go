package logger

import (
	"fmt"
	"os"
	"strings"
)

var (
	// Global logger instance
	globalLogger *Logger
)

func init() {
	globalLogger = NewDefault()
	configureFromEnv()
}

// configureFromEnv applies LOG_LEVEL and LOG_FORMAT before config is loaded
func configureFromEnv() {
	Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("ENVIRONMENT"))
}

// Configure sets the global level and format. Unknown or empty values keep
// the current setting. Format "auto" picks text for local and development
// environments and JSON everywhere else.
func Configure(levelStr, formatStr, environment string) {
	if level := parseLogLevel(levelStr); level != -1 {
		globalLogger.SetLevel(level)
	}
	if strings.EqualFold(formatStr, "auto") {
		formatStr = autoFormat(environment)
	}
	if format := parseLogFormat(formatStr); format != -1 {
		globalLogger.SetFormat(format)
	}
}

func autoFormat(environment string) string {
	switch strings.ToLower(environment) {
	case "local", "development", "dev", "test":
		return "text"
	default:
		return "json"
	}
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return -1
	}
}

// parseLogFormat parses a log format string
func parseLogFormat(format string) LogFormat {
	switch strings.ToLower(format) {
	case "json":
		return JSONFormat
	case "text":
		return TextFormat
	default:
		return -1
	}
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	return globalLogger
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}

// Component returns a child of the global logger tagged with component
func Component(name string) *Logger {
	return globalLogger.WithComponent(name)
}

// Debug logs a debug message using the global logger
func Debug(message string, fields ...Fields) {
	globalLogger.log(DEBUG, message, first(fields), nil)
}

// Info logs an info message using the global logger
func Info(message string, fields ...Fields) {
	globalLogger.log(INFO, message, first(fields), nil)
}

// Warn logs a warning message using the global logger
func Warn(message string, fields ...Fields) {
	globalLogger.log(WARN, message, first(fields), nil)
}

// Error logs an error message using the global logger
func Error(message string, err error, fields ...Fields) {
	globalLogger.log(ERROR, message, first(fields), err)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(message string, err error, fields ...Fields) {
	globalLogger.log(FATAL, message, first(fields), err)
}

// Infof logs a formatted info message using the global logger
func Infof(format string, args ...interface{}) {
	globalLogger.log(INFO, fmt.Sprintf(format, args...), nil, nil)
}

// Warnf logs a formatted warning message using the global logger
func Warnf(format string, args ...interface{}) {
	globalLogger.log(WARN, fmt.Sprintf(format, args...), nil, nil)
}

// Fatalf logs a formatted fatal message using the global logger and exits
func Fatalf(format string, args ...interface{}) {
	globalLogger.log(FATAL, fmt.Sprintf(format, args...), nil, nil)
}
