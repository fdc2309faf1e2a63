// Package balloon renders the event details panel shown next to the map
// when a marker is opened.
package balloon

import (
	"fmt"
	"strings"
	"time"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/theme"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	// PanelWidth is the rendered width of the balloon, border included.
	PanelWidth = 44
	labelWidth = 10
	maxGoing   = 8
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorWarning).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(theme.ColorBright)

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBright)

	styleFooter = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed)

	styleMine = lipgloss.NewStyle().
			Foreground(theme.ColorMine)
)

// Model holds the state for the balloon panel.
type Model struct {
	Event     client.Event
	Category  string
	Username  string
	IsCreator bool
	// Notice is a one-line message shown under the details, e.g. a failed
	// reaction.
	Notice    string
	NoticeErr bool
	Now       func() time.Time
}

// New creates a balloon for e.
func New(e client.Event, category, username string, isCreator bool) Model {
	return Model{
		Event:     e,
		Category:  category,
		Username:  username,
		IsCreator: isCreator,
		Now:       time.Now,
	}
}

// Content returns the plain-text summary attached to the map balloon.
func (m Model) Content() string {
	return m.Event.Title
}

// View renders the panel at the given height; zero means natural height.
func (m Model) View(height int) string {
	style := stylePanel.Width(PanelWidth - 2)
	if height > 2 {
		style = style.Height(height - 2)
	}
	return style.Render(m.renderInner())
}

func (m Model) renderInner() string {
	e := m.Event
	inner := PanelWidth - 4
	var b strings.Builder

	title := e.Title
	if title == "" {
		title = fmt.Sprintf("Event #%d", e.ID)
	}
	b.WriteString(styleTitle.Render(truncate(title, inner)) + "\n")
	if m.IsCreator {
		b.WriteString(styleMine.Render(theme.GlyphMine+" you created this event") + "\n")
	}
	b.WriteString(strings.Repeat("─", inner) + "\n")

	if !e.Datetime.IsZero() {
		writeRow(&b, "When", formatWhen(e.Datetime, m.now()))
	}
	if m.Category != "" {
		writeRow(&b, "Category", m.Category)
	}
	if e.HasCoords() {
		writeRow(&b, "Where", fmt.Sprintf("%.5f, %.5f", e.Latitude.Value, e.Longitude.Value))
	}

	reaction := lipgloss.NewStyle().
		Foreground(theme.ReactionColor(string(e.MyReaction))).
		Render(theme.ReactionLabel(string(e.MyReaction)))
	writeRow(&b, "You", reaction)
	writeRow(&b, "Going", fmt.Sprintf("%d", e.GoingTotal()))
	if names := goingNames(e, m.Username); names != "" {
		b.WriteString(theme.StyleDimmed.Render(truncate(names, inner)) + "\n")
	}

	if desc := strings.TrimSpace(e.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(RenderMarkdown(desc, inner), "\n") + "\n")
	}

	if m.Notice != "" {
		b.WriteString("\n")
		style := theme.StyleOK
		if m.NoticeErr {
			style = theme.StyleError
		}
		b.WriteString(style.Width(inner).Render(m.Notice) + "\n")
	}

	b.WriteString("\n")
	footer := "[g] going  [n] not going  [esc] close"
	if m.IsCreator {
		footer = "[g] going  [n] not going  [x] delete  [esc] close"
	}
	b.WriteString(styleFooter.Width(inner).Render(footer))
	return b.String()
}

func (m Model) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// RenderMarkdown renders text as terminal markdown wrapped at width. It falls
// back to the raw text if the renderer cannot be built.
func RenderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func goingNames(e client.Event, username string) string {
	if len(e.GoingUsers) == 0 {
		return ""
	}
	names := make([]string, 0, maxGoing)
	for i, u := range e.GoingUsers {
		if i == maxGoing {
			names = append(names, fmt.Sprintf("+%d more", len(e.GoingUsers)-maxGoing))
			break
		}
		if u.Username == username {
			names = append(names, u.Username+" (you)")
			continue
		}
		names = append(names, u.Username)
	}
	return strings.Join(names, ", ")
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(label+":") + styleValue.Render(value) + "\n")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func formatWhen(t, now time.Time) string {
	abs := t.Local().Format("Mon 02 Jan 2006 15:04")
	d := t.Sub(now)
	switch {
	case d < -time.Hour:
		return abs + " (past)"
	case d < 0:
		return abs + " (started)"
	case d < time.Hour:
		return fmt.Sprintf("%s (in %dm)", abs, int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%s (in %dh)", abs, int(d.Hours()))
	default:
		return fmt.Sprintf("%s (in %dd)", abs, int(d.Hours())/24)
	}
}
