// Package debug is the activity overlay: API requests, route changes, map
// fetches and errors, newest last.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/FeS1111/TSP/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

const capacity = 200

// Kind tags an entry with where it came from.
type Kind string

const (
	KindAPI Kind = "api"
	KindNav Kind = "nav"
	KindMap Kind = "map"
	KindErr Kind = "err"
)

func (k Kind) color() lipgloss.Color {
	switch k {
	case KindAPI:
		return theme.ColorMarker
	case KindNav:
		return theme.ColorMine
	case KindMap:
		return theme.ColorCluster
	case KindErr:
		return theme.ColorDanger
	}
	return theme.ColorDimmed
}

// Entry is one line of the log.
type Entry struct {
	At   time.Time
	Kind Kind
	Text string
}

// Model keeps the last entries. While scrolled back, new entries do not move
// the viewport.
type Model struct {
	entries    []Entry
	back       int // lines scrolled back from the newest entry
	errorsOnly bool
	now        func() time.Time
}

func New() Model {
	return Model{now: time.Now}
}

// Add records an entry, dropping the oldest past capacity.
func (m *Model) Add(kind Kind, text string) {
	if m.now == nil {
		m.now = time.Now
	}
	m.entries = append(m.entries, Entry{At: m.now(), Kind: kind, Text: text})
	if n := len(m.entries) - capacity; n > 0 {
		m.entries = append(m.entries[:0:0], m.entries[n:]...)
	}
	if m.back > 0 && m.visible(kind) {
		m.back++
		m.clampBack()
	}
}

// Entries returns the entries the overlay currently shows.
func (m Model) Entries() []Entry {
	if !m.errorsOnly {
		return m.entries
	}
	var out []Entry
	for _, e := range m.entries {
		if e.Kind == KindErr {
			out = append(out, e)
		}
	}
	return out
}

// Errors counts the recorded errors.
func (m Model) Errors() int {
	n := 0
	for _, e := range m.entries {
		if e.Kind == KindErr {
			n++
		}
	}
	return n
}

func (m Model) visible(k Kind) bool {
	return !m.errorsOnly || k == KindErr
}

// Back is how many entries the view is scrolled back.
func (m Model) Back() int {
	return m.back
}

func (m *Model) Clear() {
	m.entries = nil
	m.back = 0
}

// ToggleErrors switches between all entries and errors only.
func (m *Model) ToggleErrors() {
	m.errorsOnly = !m.errorsOnly
	m.back = 0
}

func (m *Model) ScrollUp(n int) {
	m.back += n
	m.clampBack()
}

func (m *Model) ScrollDown(n int) {
	m.back -= n
	m.clampBack()
}

func (m *Model) clampBack() {
	max := len(m.Entries()) - 1
	if m.back > max {
		m.back = max
	}
	if m.back < 0 {
		m.back = 0
	}
}

// View renders the overlay in a width x height box.
func (m Model) View(width, height int) string {
	inner := width - 4
	if inner < 24 {
		inner = 24
	}
	rows := height - 6
	if rows < 3 {
		rows = 3
	}

	filter := "all"
	if m.errorsOnly {
		filter = "errors"
	}
	title := theme.StyleHeader.Render(" ACTIVITY ")
	footer := theme.StyleDimmed.Render(fmt.Sprintf(
		"j/k scroll · e %s · c clear · esc close · %d entries, %d errors",
		filter, len(m.entries), m.Errors()))

	shown := m.Entries()
	var body string
	if len(shown) == 0 {
		body = theme.StyleDimmed.Render("  Nothing recorded yet.")
	} else {
		end := len(shown) - m.back
		start := end - rows
		if start < 0 {
			start = 0
		}
		lines := make([]string, 0, end-start)
		for _, e := range shown[start:end] {
			lines = append(lines, formatEntry(e, inner))
		}
		body = strings.Join(lines, "\n")
		if m.back > 0 {
			body += "\n" + theme.StyleDimmed.Render(fmt.Sprintf("  … %d newer", m.back))
		}
	}

	box := lipgloss.NewStyle().
		Width(inner).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder)
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", footer))
}

func formatEntry(e Entry, width int) string {
	stamp := theme.StyleDimmed.Render(e.At.Format("15:04:05.000"))
	tag := lipgloss.NewStyle().Foreground(e.Kind.color()).Width(4).Render(string(e.Kind))
	text := e.Text
	if room := width - 20; room > 3 && len([]rune(text)) > room {
		text = string([]rune(text)[:room-1]) + "…"
	}
	return stamp + " " + tag + " " + text
}
