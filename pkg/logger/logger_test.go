package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/wonny/bistpro/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantLevel zerolog.Level
	}{
		{
			name:      "debug level",
			cfg:       &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"},
			wantLevel: zerolog.DebugLevel,
		},
		{
			name:      "info level",
			cfg:       &config.Config{Env: "production", LogLevel: "info", LogFormat: "json"},
			wantLevel: zerolog.InfoLevel,
		},
		{
			name:      "warn level",
			cfg:       &config.Config{Env: "staging", LogLevel: "warn", LogFormat: "console"},
			wantLevel: zerolog.WarnLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.cfg)
			if logger == nil {
				t.Fatal("Expected logger to be created")
			}

			if got := logger.zlog.GetLevel(); got != tt.wantLevel {
				t.Errorf("Expected level %v, got %v", tt.wantLevel, got)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info("scan started")
	if buf.Len() != 0 {
		t.Fatalf("Expected info to be filtered, got %q", buf.String())
	}
	if log.Enabled("info") || !log.Enabled("error") {
		t.Errorf("Enabled() disagrees with level warn")
	}

	log.Warn("malformed selection in portfolio.json")
	entry := decodeEntry(t, &buf)
	if entry["level"] != "warn" {
		t.Errorf("Expected level warn, got %v", entry["level"])
	}
	if entry["message"] != "malformed selection in portfolio.json" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.WithComponent("scanner").WithFields(map[string]interface{}{
		"code":  "ASELS.IS",
		"score": 80,
	}).WithField("sector", "Defense").Debug("candidate qualified")

	entry := decodeEntry(t, &buf)
	if entry["component"] != "scanner" {
		t.Errorf("Expected component scanner, got %v", entry["component"])
	}
	if entry["code"] != "ASELS.IS" {
		t.Errorf("Expected code ASELS.IS, got %v", entry["code"])
	}
	if entry["score"] != float64(80) {
		t.Errorf("Expected score 80, got %v", entry["score"])
	}
	if entry["sector"] != "Defense" {
		t.Errorf("Expected sector Defense, got %v", entry["sector"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")

	log.WithError(errors.New("provider unavailable")).Error("scan aborted")

	entry := decodeEntry(t, &buf)
	if entry["error"] != "provider unavailable" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
	if entry["message"] != "scan aborted" {
		t.Errorf("Expected message 'scan aborted', got %v", entry["message"])
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.WithField("code", "BIMAS.IS").Error("dropped")
	log.WithComponent("yahoo").Info("dropped")
}

func TestLogFormats_WriteToStderr(t *testing.T) {
	for _, format := range []string{"json", "console", "pretty"} {
		t.Run(format, func(t *testing.T) {
			oldStderr := os.Stderr
			r, w, _ := os.Pipe()
			os.Stderr = w

			logger := New(&config.Config{Env: "test", LogLevel: "info", LogFormat: format})
			logger.Info("lock state evaluated")

			w.Close()
			os.Stderr = oldStderr

			var buf bytes.Buffer
			_, _ = io.Copy(&buf, r)

			if !strings.Contains(buf.String(), "lock state evaluated") {
				t.Errorf("Expected output to contain message, got: %s", buf.String())
			}
		})
	}
}
