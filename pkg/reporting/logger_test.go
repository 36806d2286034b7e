package reporting

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelWarn, Format: LogFormatJSON, Output: &buf})
	logger.Info("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("Info() wrote output at Warn level: %q", buf.String())
	}
	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Fatal("Warn() at Warn level produced no output")
	}
}

func TestLoggerAddFieldsEncodesKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})
	logger.Info("epoch done", "epoch", 3, "lmax", 0.5)

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("log line is not valid JSON: %v (%q)", err, buf.String())
	}
	if decoded["epoch"] != float64(3) {
		t.Fatalf("decoded[epoch] = %v, want 3", decoded["epoch"])
	}
	if decoded["message"] != "epoch done" && decoded["msg"] != "epoch done" {
		t.Fatalf("log line missing message: %v", decoded)
	}
}

func TestLoggerAddFieldsOddCountFlagsError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})
	logger.Info("bad call", "onlykey")
	if !strings.Contains(buf.String(), "odd number of fields") {
		t.Fatalf("expected an odd-field-count diagnostic, got %q", buf.String())
	}
}

func TestWithFieldAddsContextToChildLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})
	child := logger.WithField("run_id", "abc-123")
	child.Info("hello")

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if decoded["run_id"] != "abc-123" {
		t.Fatalf("decoded[run_id] = %v, want abc-123", decoded["run_id"])
	}
}
