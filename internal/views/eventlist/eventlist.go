// Package eventlist provides a summary row and a table of cached events,
// sorted by date.
package eventlist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the list state.
type Model struct {
	Width  int
	Height int

	events   []client.Event
	catalog  client.Catalog
	userID   int64
	selected int
	offset   int
}

// New creates an empty list.
func New() Model {
	return Model{}
}

// SetEvents updates the rows. The list sorts its own copy so callers need
// not pre-sort; events without a date go last.
func (m *Model) SetEvents(events []client.Event, catalog client.Catalog, userID int64) {
	m.events = append(m.events[:0:0], events...)
	m.catalog = catalog
	m.userID = userID
	sort.SliceStable(m.events, func(i, j int) bool {
		a, b := m.events[i].Datetime, m.events[j].Datetime
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.Before(b)
	})
	if m.selected >= len(m.events) {
		m.selected = len(m.events) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// Len returns the number of rows.
func (m Model) Len() int {
	return len(m.events)
}

// Down selects the next row.
func (m *Model) Down() {
	if len(m.events) > 0 {
		m.selected = (m.selected + 1) % len(m.events)
	}
}

// Up selects the previous row.
func (m *Model) Up() {
	if len(m.events) > 0 {
		m.selected = (m.selected - 1 + len(m.events)) % len(m.events)
	}
}

// Selected returns the selected event.
func (m Model) Selected() (client.Event, bool) {
	if m.selected < 0 || m.selected >= len(m.events) {
		return client.Event{}, false
	}
	return m.events[m.selected], true
}

// View renders the summary row and the table.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsRow(width),
		m.renderTable(width),
	)
}

// renderStatsRow shows totals and per-category counts in a single row.
func (m Model) renderStatsRow(width int) string {
	var going, mine, placed int
	for _, e := range m.events {
		if e.MyReaction == client.ReactionGoing {
			going++
		}
		if m.userID != 0 && e.CreatorID == m.userID {
			mine++
		}
		if e.HasCoords() {
			placed++
		}
	}

	statStyle := lipgloss.NewStyle().Padding(0, 1)
	stats := []string{
		statStyle.Foreground(theme.ColorBright).Render(fmt.Sprintf("Events: %d", len(m.events))),
		statStyle.Foreground(theme.ColorMarker).Render(fmt.Sprintf("On map: %d", placed)),
		statStyle.Foreground(theme.ColorGoing).Render(fmt.Sprintf("Going: %d", going)),
		statStyle.Foreground(theme.ColorMine).Render(fmt.Sprintf("Mine: %d", mine)),
	}

	groups := m.catalog.EventsByCategory(m.events)
	names := make([]string, 0, len(groups))
	for name := range groups {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		stats = append(stats, statStyle.Foreground(theme.ColorDimmed).
			Render(fmt.Sprintf("%s: %d", name, len(groups[name]))))
	}

	content := strings.Join(stats, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) renderTable(width int) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBright).
		Render("  Events")

	if len(m.events) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			theme.StyleDimmed.Render("  No events"),
		)
	}

	colWhen := 17
	colTitle := 28
	colCat := 14
	colGoing := 6
	colMine := 10

	dimStyle := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	tableHeader := fmt.Sprintf("  %-*s %-*s %-*s %*s  %-*s",
		colWhen, "When",
		colTitle, "Title",
		colCat, "Category",
		colGoing, "Going",
		colMine, "You",
	)
	lines := []string{
		header,
		dimStyle.Render(tableHeader),
		dimStyle.Render("  " + strings.Repeat("─", min(width-4, colWhen+colTitle+colCat+colGoing+colMine+5))),
	}

	start, end := m.window()
	for i := start; i < end; i++ {
		e := m.events[i]
		prefix := "  "
		if i == m.selected {
			prefix = "> "
		}

		when := "—"
		if !e.Datetime.IsZero() {
			when = e.Datetime.Local().Format("2006-01-02 15:04")
		}

		title := e.Title
		if m.userID != 0 && e.CreatorID == m.userID {
			title = theme.GlyphMine + " " + title
		}
		if !e.HasCoords() {
			title += " (no location)"
		}

		titleStyle := lipgloss.NewStyle().Foreground(theme.ColorBright)
		if i == m.selected {
			titleStyle = theme.StyleSelected
		}

		line := prefix +
			dimStyle.Width(colWhen+1).Render(when) +
			titleStyle.Width(colTitle+1).Render(truncate(title, colTitle)) +
			dimStyle.Width(colCat+1).Render(truncate(m.catalog.Name(e.Category), colCat)) +
			lipgloss.NewStyle().Width(colGoing).Align(lipgloss.Right).Render(fmt.Sprintf("%d", e.GoingTotal())) + "  " +
			lipgloss.NewStyle().Foreground(theme.ReactionColor(string(e.MyReaction))).
				Render(theme.ReactionLabel(string(e.MyReaction)))
		lines = append(lines, line)
	}
	if end < len(m.events) {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("  … %d more", len(m.events)-end)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// window returns the visible row range, keeping the selection on screen.
func (m Model) window() (int, int) {
	rows := m.Height - 7
	if rows < 3 || rows >= len(m.events) {
		return 0, len(m.events)
	}
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	return start, start + rows
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
