package balloon

import (
	"strings"
	"testing"
	"time"

	"github.com/FeS1111/TSP/internal/client"
)

func sample() client.Event {
	return client.Event{
		ID:          3,
		Title:       "Picnic",
		Description: "Bring **snacks**",
		Datetime:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Latitude:    client.At(55.75),
		Longitude:   client.At(37.61),
		GoingUsers:  []client.GoingUser{{Username: "ann"}, {Username: "bob"}},
		MyReaction:  client.ReactionGoing,
	}
}

func TestViewShowsDetails(t *testing.T) {
	m := New(sample(), "Outdoors", "ann", false)
	v := m.View(0)
	for _, want := range []string{"Picnic", "Outdoors", "going", "ann (you)", "bob", "snacks"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
	if strings.Contains(v, "[x] delete") {
		t.Error("non-creator should not be offered delete")
	}
}

func TestViewCreatorCanDelete(t *testing.T) {
	m := New(sample(), "", "ann", true)
	v := m.View(0)
	if !strings.Contains(v, "[x] delete") {
		t.Error("creator should be offered delete")
	}
	if !strings.Contains(v, "you created this event") {
		t.Error("creator marker missing")
	}
}

func TestViewNotice(t *testing.T) {
	m := New(sample(), "", "ann", false)
	m.Notice = "Only the creator can delete this event"
	m.NoticeErr = true
	if !strings.Contains(m.View(0), "creator") {
		t.Error("notice should be rendered")
	}
}

func TestGoingNamesTruncates(t *testing.T) {
	e := client.Event{}
	for i := 0; i < maxGoing+3; i++ {
		e.GoingUsers = append(e.GoingUsers, client.GoingUser{Username: "u"})
	}
	got := goingNames(e, "")
	if !strings.HasSuffix(got, "+3 more") {
		t.Errorf("goingNames() = %q", got)
	}
}

func TestFormatWhen(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-2 * time.Hour), "(past)"},
		{now.Add(-time.Minute), "(started)"},
		{now.Add(30 * time.Minute), "(in 30m)"},
		{now.Add(5 * time.Hour), "(in 5h)"},
		{now.Add(72 * time.Hour), "(in 3d)"},
	}
	for _, tt := range tests {
		if got := formatWhen(tt.at, now); !strings.HasSuffix(got, tt.want) {
			t.Errorf("formatWhen(%v) = %q, want suffix %q", tt.at, got, tt.want)
		}
	}
}
