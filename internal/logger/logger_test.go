package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestInfoCarriesOp(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)
	l.Info("events loaded", "app.refresh", "count", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not JSON: %v (%q)", err, buf.String())
	}
	if rec["op"] != "app.refresh" {
		t.Errorf("op = %v", rec["op"])
	}
	if rec["message"] != "events loaded" {
		t.Errorf("message = %v", rec["message"])
	}
	if rec["count"] != float64(3) {
		t.Errorf("count = %v", rec["count"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Info("hidden", "op")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	l.SetLevel(LevelDebug)
	l.Debug("shown", "mapview.fit")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug should pass after SetLevel(debug)")
	}
}

func TestDebugCarriesOp(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)
	l.Debug("request", "client.ListEvents", "status", 200)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not JSON: %v (%q)", err, buf.String())
	}
	if rec["op"] != "client.ListEvents" || rec["level"] != "DEBUG" {
		t.Errorf("record = %v", rec)
	}
}

func TestErrorNilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)
	l.Error(nil, "op")
	if buf.Len() != 0 {
		t.Error("nil error should not be logged")
	}
	l.Error(errors.New("boom"), "client.list")
	if !strings.Contains(buf.String(), "boom") {
		t.Error("error text missing from record")
	}
}
