package status

import (
	"fmt"

	"github.com/FeS1111/TSP/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the status bar state.
type Model struct {
	Route    string
	User     string
	Events   int
	Placed   int
	Zoom     int
	Loading  bool
	Width    int
	message  string
	errKind  string
	hasError bool
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// SetCounts updates the event counts.
func (m *Model) SetCounts(events, placed int) {
	m.Events = events
	m.Placed = placed
}

// Info shows a neutral message.
func (m *Model) Info(msg string) {
	m.message, m.errKind, m.hasError = msg, "", false
}

// Error shows an error message tagged with its kind.
func (m *Model) Error(kind, msg string) {
	m.message, m.errKind, m.hasError = msg, kind, true
}

// Clear removes the message.
func (m *Model) Clear() {
	m.message, m.errKind, m.hasError = "", "", false
}

// Message returns the current message and whether it is an error.
func (m Model) Message() (string, bool) {
	return m.message, m.hasError
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var userStr string
	if m.User != "" {
		userStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● " + m.User)
	} else {
		userStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ signed out")
	}

	route := theme.StyleDimmed.Render(m.Route)
	counts := fmt.Sprintf("%d events  %d on map", m.Events, m.Placed)
	if m.Zoom > 0 {
		counts += fmt.Sprintf("  z%d", m.Zoom)
	}
	if m.Loading {
		counts += "  loading…"
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := userStr + sep + route + sep + counts
	if m.message != "" {
		var msg string
		if m.hasError {
			msg = lipgloss.NewStyle().Foreground(theme.ErrorColor(m.errKind)).Render(m.errKind + ": " + m.message)
		} else {
			msg = theme.StyleOK.Render(m.message)
		}
		content += sep + msg
	}

	bar := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)

	return bar
}
