package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{
		Level:     DEBUG,
		Format:    JSONFormat,
		Output:    &buf,
		Component: "test",
	})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 log lines, got %d", len(lines))
	}

	for i, line := range lines {
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Errorf("Line %d is not valid JSON: %v", i+1, err)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{
		Level:  WARN,
		Format: JSONFormat,
		Output: &buf,
	})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("Expected 2 log lines with WARN level, got %d", len(lines))
	}
	if logger.Enabled(INFO) {
		t.Error("Expected INFO to be disabled at WARN level")
	}
	if !logger.Enabled(ERROR) {
		t.Error("Expected ERROR to be enabled at WARN level")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{
		Level:     INFO,
		Format:    JSONFormat,
		Output:    &buf,
		Component: "loader",
	})

	logger.Info("dataset loaded", Fields{
		"rows":    42,
		"columns": "A,B,C",
	})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}

	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got %s", entry.Level)
	}
	if entry.Message != "dataset loaded" {
		t.Errorf("Expected message 'dataset loaded', got %s", entry.Message)
	}
	if entry.Component != "loader" {
		t.Errorf("Expected component 'loader', got %s", entry.Component)
	}
	if entry.Fields["rows"] != float64(42) {
		t.Errorf("Expected field rows=42, got %v", entry.Fields["rows"])
	}
	if entry.Fields["columns"] != "A,B,C" {
		t.Errorf("Expected field columns='A,B,C', got %v", entry.Fields["columns"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{
		Level:     INFO,
		Format:    TextFormat,
		Output:    &buf,
		Component: "server",
	})

	logger.Info("chart appended", Fields{"kind": "bar", "index": 0})

	output := buf.String()
	for _, want := range []string{"INFO", "[server]", "chart appended", "fields={index=0, kind=bar}"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got %q", want, output)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	base := New(Config{Level: INFO, Format: JSONFormat, Output: &buf, Component: "base"})
	base.WithComponent("render").Info("figure built")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if entry.Component != "render" {
		t.Errorf("Expected component 'render', got %s", entry.Component)
	}
}

func TestChildFollowsParentLevel(t *testing.T) {
	var buf bytes.Buffer

	base := New(Config{Level: INFO, Format: JSONFormat, Output: &buf})
	child := base.WithComponent("loader")

	base.SetLevel(ERROR)
	child.Info("dataset loaded")
	if buf.Len() != 0 {
		t.Errorf("Expected child to follow parent level, got %q", buf.String())
	}

	base.SetLevel(DEBUG)
	child.Debug("dataset loaded")
	if buf.Len() == 0 {
		t.Error("Expected debug entry after lowering the parent level")
	}
}

func TestWithBoundFields(t *testing.T) {
	var buf bytes.Buffer

	base := New(Config{Level: INFO, Format: JSONFormat, Output: &buf})
	sessionLog := base.With(Fields{"session": "abc", "index": 1})
	sessionLog.Info("chart updated", Fields{"index": 2})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if entry.Fields["session"] != "abc" {
		t.Errorf("Expected bound field session='abc', got %v", entry.Fields["session"])
	}
	if entry.Fields["index"] != float64(2) {
		t.Errorf("Expected per-call field to override bound field, got %v", entry.Fields["index"])
	}

	buf.Reset()
	base.Info("no bound fields")
	var plain LogEntry
	if err := json.Unmarshal(buf.Bytes(), &plain); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if len(plain.Fields) != 0 {
		t.Errorf("Expected parent logger to stay free of bound fields, got %v", plain.Fields)
	}
}

func TestErrorLogging(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{Level: ERROR, Format: JSONFormat, Output: &buf})
	logger.Error("fetch failed", &testError{msg: "connection refused"}, Fields{"url": "http://example.test/data.csv"})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if entry.Error != "connection refused" {
		t.Errorf("Expected error 'connection refused', got %s", entry.Error)
	}
	if entry.Fields["url"] != "http://example.test/data.csv" {
		t.Errorf("Expected url field, got %v", entry.Fields["url"])
	}
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: INFO, Format: JSONFormat, Output: &buf})

	code := -1
	logger.exit = func(c int) { code = c }
	logger.Fatal("cannot start", nil)

	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "FATAL") {
		t.Errorf("Expected FATAL entry to be written, got %q", buf.String())
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer

	originalLogger := GetGlobalLogger()
	defer SetGlobalLogger(originalLogger)

	SetGlobalLogger(New(Config{Level: INFO, Format: JSONFormat, Output: &buf, Component: "global-test"}))

	Info("global info message")
	Warn("global warn message")
	Debug("filtered")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("Failed to parse second JSON line: %v", err)
	}
	if entry.Level != "WARN" || entry.Message != "global warn message" {
		t.Errorf("Second line incorrect: level=%s, message=%s", entry.Level, entry.Message)
	}
}

func TestConfigure(t *testing.T) {
	originalLogger := GetGlobalLogger()
	defer SetGlobalLogger(originalLogger)

	tests := []struct {
		name        string
		level       string
		format      string
		environment string
		wantLevel   LogLevel
		wantFormat  LogFormat
	}{
		{"explicit json debug", "debug", "json", "production", DEBUG, JSONFormat},
		{"auto in development", "info", "auto", "development", INFO, TextFormat},
		{"auto in production", "warn", "AUTO", "production", WARN, JSONFormat},
		{"unknown values keep defaults", "loud", "yaml", "", INFO, JSONFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetGlobalLogger(NewDefault())
			Configure(tt.level, tt.format, tt.environment)

			got := GetGlobalLogger()
			if got.level != tt.wantLevel {
				t.Errorf("Expected level %v, got %v", tt.wantLevel, got.level)
			}
			if got.format != tt.wantFormat {
				t.Errorf("Expected format %v, got %v", tt.wantFormat, got.format)
			}
		})
	}
}

func TestFormattedLogging(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{Level: INFO, Format: JSONFormat, Output: &buf})
	logger.Infof("Loaded %d rows from %s", 3, "data.csv")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if entry.Message != "Loaded 3 rows from data.csv" {
		t.Errorf("Expected formatted message, got '%s'", entry.Message)
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{FATAL, "FATAL"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, test := range tests {
		if test.level.String() != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, test.level.String())
		}
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func BenchmarkJSONLogging(b *testing.B) {
	var buf bytes.Buffer
	logger := New(Config{Level: INFO, Format: JSONFormat, Output: &buf})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", Fields{"iteration": i})
	}
}

func BenchmarkLevelFiltering(b *testing.B) {
	var buf bytes.Buffer
	logger := New(Config{Level: WARN, Format: JSONFormat, Output: &buf})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug("debug message that should be filtered")
	}
}

// lastEntry decodes the most recent JSON line written to buf
func lastEntry(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	return entry
}

func TestCallerLocation(t *testing.T) {
	var buf bytes.Buffer

	originalLogger := GetGlobalLogger()
	defer SetGlobalLogger(originalLogger)
	SetGlobalLogger(New(Config{Level: DEBUG, Format: JSONFormat, Output: &buf}))

	component := Component("sessions")
	expect := func(what string, entry LogEntry, line int) {
		t.Helper()
		if filepath.Base(entry.File) != "logger_test.go" {
			t.Errorf("%s: expected file logger_test.go, got %s", what, entry.File)
		}
		if entry.Line != line {
			t.Errorf("%s: expected line %d, got %d", what, line, entry.Line)
		}
		if entry.Function != "logger.TestCallerLocation" {
			t.Errorf("%s: expected function logger.TestCallerLocation, got %s", what, entry.Function)
		}
	}

	component.Info("component entry")
	_, _, line, _ := runtime.Caller(0)
	expect("component Info", lastEntry(t, &buf), line-1)

	component.Warnf("component %s", "formatted")
	_, _, line, _ = runtime.Caller(0)
	expect("component Warnf", lastEntry(t, &buf), line-1)

	Info("global entry")
	_, _, line, _ = runtime.Caller(0)
	expect("global Info", lastEntry(t, &buf), line-1)

	Infof("global %s", "formatted")
	_, _, line, _ = runtime.Caller(0)
	expect("global Infof", lastEntry(t, &buf), line-1)
}
