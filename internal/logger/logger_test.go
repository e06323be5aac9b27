package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelsFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn", "json")

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["msg"] != "warn 3" || rec["level"] != "WARN" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug", "text")

	Debug("fetched %s", "bitcoin")
	if !strings.Contains(buf.String(), `msg="fetched bitcoin"`) {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	defaultLogger = nil
	Info("nothing %s", "happens")
}
