package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"}, // Invalid level
	}

	for _, test := range tests {
		if result := test.level.String(); result != test.expected {
			t.Errorf("Level.String() = %v, expected %v", result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace": TraceLevel,
		"debug": DebugLevel,
		"info":  InfoLevel,
		"warn":  WarnLevel,
		"error": ErrorLevel,
		"bogus": InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerInitialization(t *testing.T) {
	config := Config{
		Level:     InfoLevel,
		Component: "test",
	}

	if err := Initialize(config); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	if defaultLogger == nil {
		t.Fatal("Initialize() did not set defaultLogger")
	}

	if defaultLogger.config.Component != "test" {
		t.Errorf("Initialize() did not set config correctly, got component: %s", defaultLogger.config.Component)
	}
}

func TestLoggerPrettyFormatting(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Component: "test"}, &buf)

	l.Log(InfoLevel, "test message", String("key", "value"))

	result := buf.String()
	for _, part := range []string{"INFO", "test", "test message", `"key": "value"`} {
		if !strings.Contains(result, part) {
			t.Errorf("pretty output missing expected part: %s\nResult: %s", part, result)
		}
	}
}

func TestLoggerJSONFormatting(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, JSON: true, Component: "test"}, &buf)

	l.Log(InfoLevel, "test message", String("key", "value"))

	output := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(output, "{") {
		t.Fatalf("Log() with JSON config did not produce JSON output: %s", output)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("Log() produced invalid JSON: %v\nOutput: %s", err, output)
	}
	if parsed["message"] != "test message" {
		t.Errorf("Parsed JSON message = %v, expected 'test message'", parsed["message"])
	}
	if parsed["level"] != "INFO" {
		t.Errorf("Parsed JSON level = %v, expected 'INFO'", parsed["level"])
	}
	if parsed["component"] != "test" {
		t.Errorf("Parsed JSON component = %v, expected 'test'", parsed["component"])
	}
	if parsed["key"] != "value" {
		t.Errorf("Parsed JSON field key = %v, expected 'value'", parsed["key"])
	}
}

func TestLoggerTraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: TraceLevel, JSON: true}, &buf)
	l.Log(TraceLevel, "deep")
	if !strings.Contains(buf.String(), `"level":"TRACE"`) {
		t.Errorf("trace entry should carry TRACE level, got: %s", buf.String())
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WarnLevel, Component: "test"}, &buf)

	l.Log(InfoLevel, "info message")
	l.Log(DebugLevel, "debug message")
	l.Log(WarnLevel, "warn message")
	l.Log(ErrorLevel, "error message")

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("INFO level message should be filtered out")
	}
	if strings.Contains(output, "debug message") {
		t.Error("DEBUG level message should be filtered out")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("WARN level message should appear")
	}
	if !strings.Contains(output, "error message") {
		t.Error("ERROR level message should appear")
	}
}

func TestFieldConstructors(t *testing.T) {
	stringField := String("key", "value")
	if stringField.Key != "key" || stringField.Value != "value" {
		t.Errorf("String() = %+v, expected {Key: 'key', Value: 'value'}", stringField)
	}

	intField := Int("count", 42)
	if intField.Key != "count" || intField.Value != 42 {
		t.Errorf("Int() = %+v, expected {Key: 'count', Value: 42}", intField)
	}

	boolField := Bool("enabled", true)
	if boolField.Key != "enabled" || boolField.Value != true {
		t.Errorf("Bool() = %+v, expected {Key: 'enabled', Value: true}", boolField)
	}
}

func TestErrField(t *testing.T) {
	errField := Err(&testError{message: "test error"})

	if errField.Key != "error" {
		t.Errorf("Err() key = %v, expected 'error'", errField.Key)
	}
	if errField.Value != "test error" {
		t.Errorf("Err() value = %v, expected 'test error'", errField.Value)
	}
}

func TestFallbackLogging(t *testing.T) {
	originalLogger := defaultLogger
	defaultLogger = nil
	defer func() { defaultLogger = originalLogger }()

	// Must not panic without an initialized logger.
	Info("fallback test message")
	Warn("fallback warn")
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer

	if err := Initialize(Config{Level: InfoLevel, Component: "test"}); err != nil {
		t.Fatal(err)
	}
	SetOutput(&buf)

	Info("output test message")
	Debug("hidden debug message")

	output := buf.String()
	if !strings.Contains(output, "output test message") {
		t.Errorf("SetOutput() did not redirect output correctly: %s", output)
	}
	if strings.Contains(output, "hidden debug message") {
		t.Errorf("debug message should be filtered at info level: %s", output)
	}
}

// testError implements error interface for testing
type testError struct {
	message string
}

func (e *testError) Error() string {
	return e.message
}
