package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestNewWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desk.log")
	l, err := New(Config{Level: "info", Outputs: []string{"file"}, OutputFile: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.LogOffer("submitted", "buy", map[string]interface{}{"base": "NATIVE"})
	_ = l.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"offer_event"`) || !strings.Contains(string(raw), `"op":"buy"`) {
		t.Fatalf("unexpected log content: %s", raw)
	}
}

func TestHelpersAttachFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).WithFields(map[string]interface{}{"session": "s1"})

	l.LogForm("amount_changed", map[string]interface{}{"field": "base"})
	l.LogError(errors.New("boom"), nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "form_event" || entries[0].ContextMap()["session"] != "s1" {
		t.Fatalf("unexpected form entry: %+v", entries[0])
	}
	if _, ok := entries[0].ContextMap()["schemaError"]; ok {
		t.Fatalf("unregistered event should not be checked: %+v", entries[0])
	}
	if entries[1].Level != zapcore.ErrorLevel || entries[1].ContextMap()["error"] != "boom" {
		t.Fatalf("unexpected error entry: %+v", entries[1])
	}
}

func TestSchemaErrorAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core))

	l.LogOffer("offer_submit", "sell", map[string]interface{}{"state": "confirm"})
	l.LogOffer("offer_result", "sell", map[string]interface{}{"outcome": "sent"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	msg, _ := entries[0].ContextMap()["schemaError"].(string)
	if !strings.Contains(msg, "baseAmount") {
		t.Fatalf("expected schemaError naming missing fields, got %q", msg)
	}
	if _, ok := entries[1].ContextMap()["schemaError"]; ok {
		t.Fatalf("complete event flagged: %+v", entries[1])
	}
}
