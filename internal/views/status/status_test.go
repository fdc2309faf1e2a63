package status

import (
	"strings"
	"testing"
)

func TestViewSignedOut(t *testing.T) {
	m := New()
	m.Route = "/login/"
	v := m.View()
	if !strings.Contains(v, "signed out") || !strings.Contains(v, "/login/") {
		t.Errorf("view = %q", v)
	}
}

func TestViewCountsAndError(t *testing.T) {
	m := New()
	m.Width = 120
	m.User = "ann"
	m.SetCounts(5, 4)
	m.Error("PermissionError", "not the creator")
	v := m.View()
	for _, want := range []string{"ann", "5 events", "4 on map", "PermissionError: not the creator"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if _, isErr := m.Message(); !isErr {
		t.Error("Message() should report an error")
	}
	m.Clear()
	if msg, _ := m.Message(); msg != "" {
		t.Error("Clear should remove the message")
	}
}
