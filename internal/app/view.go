package app

import (
	"fmt"
	"time"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/theme"
	"github.com/FeS1111/TSP/internal/views/balloon"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) bodyHeight() int {
	h := m.height - statusHeight - footerHeight
	if h < 5 {
		h = 5
	}
	return h
}

// layout sizes the map to the space left by the status bar, the footer and
// an open balloon.
func (m *Model) layout() {
	if m.ms == nil || m.width == 0 {
		return
	}
	w := m.width - 2
	if m.ms.balloon != nil {
		w -= balloon.PanelWidth
	}
	m.ms.view.SetSize(w, m.bodyHeight()-2)
	m.ms.list.Width = m.width
	m.ms.list.Height = m.bodyHeight()
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sb := m.statusBar
	sb.Route = m.route
	sb.Loading = m.state == StateMapLoading
	if m.ms != nil {
		sb.Zoom = m.ms.view.Zoom()
	}

	var body string
	switch {
	case m.debugOpen:
		body = m.debug.View(m.width, m.bodyHeight())
	case m.state == StateUnauthenticated:
		body = m.login.View(m.width, m.bodyHeight())
	case m.ms == nil:
		body = ""
	case m.state == StateModalOpen:
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, m.ms.form.View())
	case m.state == StateEventList:
		body = m.ms.list.View()
	default:
		body = m.renderMap()
	}

	return lipgloss.JoinVertical(lipgloss.Left, sb.View(), body, m.renderFooter())
}

func (m Model) renderMap() string {
	box := theme.StyleBorder.Render(m.ms.view.View())
	if m.ms.balloon == nil {
		return box
	}
	_, h := m.ms.view.Size()
	return lipgloss.JoinHorizontal(lipgloss.Top, box, m.ms.balloon.View(h+2))
}

func (m Model) renderFooter() string {
	if m.debugOpen {
		return ""
	}
	switch m.state {
	case StateMapLoading:
		if m.loadErr != "" {
			return theme.StyleError.Render("  " + m.loadErr)
		}
		return "  " + m.spinner.View() + " Loading events…"
	case StateConfirmOpen:
		if m.ms != nil && m.ms.confirm != nil {
			return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWarning).
				Render("  "+m.ms.confirm.text) + theme.StyleDimmed.Render("  [y] yes  [n] no")
		}
	}
	return "  " + m.help.ShortHelpView(m.footerKeys())
}

func (m Model) footerKeys() []key.Binding {
	var out []key.Binding
	seen := make(map[string]bool)
	for _, b := range m.bindings[m.state] {
		if b.hidden {
			continue
		}
		h := b.key.Help().Key
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, b.key)
	}
	return out
}

func formatRequest(r client.RequestLog) string {
	s := fmt.Sprintf("%s %s %d %s", r.Method, r.Path, r.Status, r.Duration.Round(time.Millisecond))
	if r.Err != nil {
		s += " " + r.Err.Error()
	}
	return s
}
