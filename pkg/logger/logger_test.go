package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bup/pkg/config"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level without color", &config.LoggingConfig{Level: "debug", NoColor: true}, false},
		{"invalid log level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "bup.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(tt.cfg, WithOutput(&buf))
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "warn", NoColor: true}, WithOutput(&buf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "| loud") {
		t.Errorf("expected formatted warn line, got %q", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	child := base.WithField("uid", "521444").WithFields(map[string]interface{}{
		"endpoint": "acc/info",
	})
	child.WithError(errors.New("boom")).Warn("request failed")

	entry := decodeLine(t, &buf)
	if entry["uid"] != "521444" || entry["endpoint"] != "acc/info" || entry["error"] != "boom" {
		t.Errorf("unexpected fields: %v", entry)
	}

	buf.Reset()
	base.Info("parent untouched")
	entry = decodeLine(t, &buf)
	if _, ok := entry["uid"]; ok {
		t.Error("WithField must not mutate the parent logger")
	}
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.InfoWithFields("typed", map[string]interface{}{
		"count":    3,
		"delay":    250 * time.Millisecond,
		"names":    []string{"a", "b"},
		"ok":       true,
		"cause":    errors.New("bad"),
		"duration": 1.5,
	})

	entry := decodeLine(t, &buf)
	if entry["count"] != float64(3) {
		t.Errorf("count = %v", entry["count"])
	}
	if entry["cause"] != "bad" {
		t.Errorf("cause = %v", entry["cause"])
	}
	if entry["ok"] != true {
		t.Errorf("ok = %v", entry["ok"])
	}
}

func TestLogRequestLevels(t *testing.T) {
	log := NewTestLogger()

	LogRequest(log, "GET", "https://example.org", 200, time.Millisecond)
	LogRequest(log, "GET", "https://example.org", 412, time.Millisecond)
	LogRequest(log, "GET", "https://example.org", 503, time.Millisecond)

	if len(log.GetMessagesByLevel("DEBUG")) != 1 {
		t.Error("expected one debug line for 200")
	}
	if len(log.GetMessagesByLevel("WARN")) != 1 {
		t.Error("expected one warn line for 412")
	}
	if !log.HasError() {
		t.Error("expected an error line for 503")
	}
}

func TestTestLoggerSharesBuffer(t *testing.T) {
	log := NewTestLogger()
	child := log.WithField("uid", "7").WithError(errors.New("nope"))
	child.Error("Skipping creator")

	msgs := log.GetMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Fields["uid"] != "7" || msgs[0].Error == nil {
		t.Errorf("unexpected message %+v", msgs[0])
	}
	if !strings.Contains(log.String(), "[ERROR] Skipping creator") {
		t.Errorf("unexpected buffer %q", log.String())
	}

	log.Clear()
	if len(log.GetMessages()) != 0 {
		t.Error("Clear should drop all messages")
	}
}
