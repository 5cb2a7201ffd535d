package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// LogFormat represents the output format for logs
type LogFormat int

const (
	JSONFormat LogFormat = iota
	TextFormat
)

// Fields carries structured key/value context for a log entry
type Fields map[string]interface{}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	Function  string                 `json:"function,omitempty"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// sink is the state a logger shares with its children
type sink struct {
	mu     sync.Mutex
	level  LogLevel
	format LogFormat
	output io.Writer
}

// Logger writes structured entries. Child loggers created with
// WithComponent or With share the parent's writer, level and format, so
// reconfiguring the global logger also affects component loggers.
type Logger struct {
	*sink
	component string
	bound     Fields
	exit      func(int)
}

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    LogFormat
	Output    io.Writer
	Component string
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	return &Logger{
		sink: &sink{
			level:  config.Level,
			format: config.Format,
			output: config.Output,
		},
		component: config.Component,
		exit:      os.Exit,
	}
}

// NewDefault creates a logger with default configuration
func NewDefault() *Logger {
	return New(Config{
		Level:  INFO,
		Format: JSONFormat,
		Output: os.Stdout,
	})
}

func (l *Logger) clone() *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	bound := make(Fields, len(l.bound))
	for k, v := range l.bound {
		bound[k] = v
	}
	return &Logger{
		sink:      l.sink,
		component: l.component,
		bound:     bound,
		exit:      l.exit,
	}
}

// WithComponent creates a new logger with the specified component name
func (l *Logger) WithComponent(component string) *Logger {
	child := l.clone()
	child.component = component
	return child
}

// With returns a child logger that adds fields to every entry it writes.
// Per-call fields take precedence over bound ones.
func (l *Logger) With(fields Fields) *Logger {
	child := l.clone()
	for k, v := range fields {
		child.bound[k] = v
	}
	return child
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetFormat sets the log output format
func (l *Logger) SetFormat(format LogFormat) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = format
}

// Enabled reports whether entries at level would be written
func (l *Logger) Enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

func (l *Logger) log(level LogLevel, message string, fields Fields, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	// skip log and the exported method or package function that called it;
	// every entry point must call log directly for this depth to hold
	pc, file, line, ok := runtime.Caller(2)
	var funcName string
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			funcName = fn.Name()
			if lastSlash := strings.LastIndex(funcName, "/"); lastSlash >= 0 {
				funcName = funcName[lastSlash+1:]
			}
		}
	} else {
		file = "unknown"
		line = 0
	}

	var merged map[string]interface{}
	if len(l.bound) > 0 || len(fields) > 0 {
		merged = make(map[string]interface{}, len(l.bound)+len(fields))
		for k, v := range l.bound {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Component: l.component,
		Function:  funcName,
		File:      file,
		Line:      line,
		Fields:    merged,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	var output string
	switch l.format {
	case JSONFormat:
		jsonBytes, _ := json.Marshal(entry)
		output = string(jsonBytes) + "\n"
	default:
		output = formatText(entry)
	}

	l.output.Write([]byte(output))

	if level == FATAL {
		l.exit(1)
	}
}

// formatText formats a log entry as human-readable text with sorted fields
func formatText(entry LogEntry) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s", entry.Timestamp, entry.Level))
	if entry.Component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", entry.Component))
	}
	parts = append(parts, entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fieldParts := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("fields={%s}", strings.Join(fieldParts, ", ")))
	}

	if entry.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%s", entry.Error))
	}

	if entry.File != "" && entry.Line > 0 {
		parts = append(parts, fmt.Sprintf("(%s:%d)", entry.File, entry.Line))
	}

	return strings.Join(parts, " ") + "\n"
}

func first(fields []Fields) Fields {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...Fields) {
	l.log(DEBUG, message, first(fields), nil)
}

// Info logs an info message
func (l *Logger) Info(message string, fields ...Fields) {
	l.log(INFO, message, first(fields), nil)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...Fields) {
	l.log(WARN, message, first(fields), nil)
}

// Error logs an error message
func (l *Logger) Error(message string, err error, fields ...Fields) {
	l.log(ERROR, message, first(fields), err)
}

// Fatal logs a fatal message and exits the program
func (l *Logger) Fatal(message string, err error, fields ...Fields) {
	l.log(FATAL, message, first(fields), err)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(DEBUG, fmt.Sprintf(format, args...), nil, nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(format, args...), nil, nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(WARN, fmt.Sprintf(format, args...), nil, nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(format, args...), nil, nil)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(FATAL, fmt.Sprintf(format, args...), nil, nil)
}
