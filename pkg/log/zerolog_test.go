package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNew_JSONFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: FormatJSON, Out: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept",
		String("frame", "frame_001"),
		Strings("argv", []string{"colmap", "mapper"}),
		Int("exit_code", 2),
		Duration("took", time.Second),
		Err(errors.New("boom")),
	)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %s", len(lines), buf.String())
	}

	var rec map[string]interface{}
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["message"] != "kept" || rec["frame"] != "frame_001" || rec["error"] != "boom" {
		t.Errorf("unexpected record: %v", rec)
	}
	argv, ok := rec["argv"].([]interface{})
	if !ok || len(argv) != 2 || argv[1] != "mapper" {
		t.Errorf("argv = %v, want [colmap mapper]", rec["argv"])
	}
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNew_ConsoleWithoutTerminalHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Out: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", String("k", "v"))

	if bytes.Contains(buf.Bytes(), []byte("\x1b[")) {
		t.Errorf("console output to a buffer should not contain color codes: %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("message missing from output: %q", buf.String())
	}
}
