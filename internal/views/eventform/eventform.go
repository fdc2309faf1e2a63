// Package eventform is the create-event modal.
package eventform

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/FeS1111/TSP/internal/theme"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DatetimeLayout is the format accepted in the datetime field.
const DatetimeLayout = "2006-01-02 15:04"

const (
	panelWidth = 60
	labelWidth = 13
)

const (
	fieldTitle = iota
	fieldDescription
	fieldDatetime
	fieldCategory
	fieldLatitude
	fieldLongitude
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title", "Description", "When", "Category", "Latitude", "Longitude"}

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorMarker).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleFocusedLabel = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorBright).
				Width(labelWidth)
)

// Model holds the modal's inputs. The category field is a picker over the
// loaded categories rather than a text input.
type Model struct {
	inputs     [fieldCount]textinput.Model
	focus      int
	categories []client.Category
	catIdx     int // -1 means no category

	// Err is the validation message shown inline.
	Err        string
	Submitting bool
	Now        func() time.Time
}

// New creates an empty form.
func New(categories []client.Category) Model {
	m := Model{categories: categories, catIdx: -1, Now: time.Now}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Cursor.SetMode(cursor.CursorStatic)
		ti.Width = panelWidth - labelWidth - 6
		switch i {
		case fieldTitle:
			ti.Placeholder = "What is happening?"
			ti.CharLimit = 200
		case fieldDescription:
			ti.Placeholder = "Details (markdown)"
			ti.CharLimit = 2000
		case fieldDatetime:
			ti.Placeholder = DatetimeLayout
			ti.CharLimit = len(DatetimeLayout)
		case fieldLatitude, fieldLongitude:
			ti.CharLimit = 16
		}
		m.inputs[i] = ti
	}
	m.inputs[fieldTitle].Focus()
	return m
}

// Open prepares the form for a new event at the given position.
func (m *Model) Open(lat, lon float64) tea.Cmd {
	m.Reset()
	m.inputs[fieldLatitude].SetValue(FormatCoord(lat))
	m.inputs[fieldLongitude].SetValue(FormatCoord(lon))
	m.inputs[fieldDatetime].SetValue(m.now().Add(time.Hour).Truncate(time.Hour).Format(DatetimeLayout))
	return m.setFocus(fieldTitle)
}

// Reset clears every field and the error.
func (m *Model) Reset() {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.catIdx = -1
	m.Err = ""
	m.Submitting = false
}

// SetCategories replaces the category choices.
func (m *Model) SetCategories(cats []client.Category) {
	m.categories = cats
	if m.catIdx >= len(cats) {
		m.catIdx = -1
	}
}

// SetValue sets the text of a field by label. It is used by tests and by
// callers that prefill the form.
func (m *Model) SetValue(label, value string) {
	for i, l := range fieldLabels {
		if l == label && i != fieldCategory {
			m.inputs[i].SetValue(value)
			return
		}
	}
}

// Value returns the text of a field by label.
func (m Model) Value(label string) string {
	for i, l := range fieldLabels {
		if l == label {
			if i == fieldCategory {
				return m.categoryName()
			}
			return m.inputs[i].Value()
		}
	}
	return ""
}

// Next moves focus to the next field.
func (m *Model) Next() tea.Cmd {
	return m.setFocus((m.focus + 1) % fieldCount)
}

// Prev moves focus to the previous field.
func (m *Model) Prev() tea.Cmd {
	return m.setFocus((m.focus - 1 + fieldCount) % fieldCount)
}

// CycleCategory steps the category picker by delta. It only applies while
// the category field is focused and reports whether it did.
func (m *Model) CycleCategory(delta int) bool {
	if m.focus != fieldCategory {
		return false
	}
	n := len(m.categories) + 1
	m.catIdx = ((m.catIdx+1+delta)%n+n)%n - 1
	return true
}

// Update forwards key input to the focused text field.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.focus == fieldCategory {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// Draft validates the inputs and builds the request body.
func (m Model) Draft() (client.EventDraft, error) {
	var d client.EventDraft

	d.Title = strings.TrimSpace(m.inputs[fieldTitle].Value())
	if d.Title == "" {
		return d, errors.New("title is required")
	}
	d.Description = strings.TrimSpace(m.inputs[fieldDescription].Value())

	when := strings.TrimSpace(m.inputs[fieldDatetime].Value())
	if when == "" {
		return d, errors.New("date and time are required")
	}
	t, err := time.ParseInLocation(DatetimeLayout, when, time.Local)
	if err != nil {
		return d, fmt.Errorf("date must look like %s", DatetimeLayout)
	}
	d.Datetime = t

	lat, err := parseCoord(m.inputs[fieldLatitude].Value(), 90)
	if err != nil {
		return d, fmt.Errorf("latitude: %w", err)
	}
	lon, err := parseCoord(m.inputs[fieldLongitude].Value(), 180)
	if err != nil {
		return d, fmt.Errorf("longitude: %w", err)
	}
	d.Latitude, d.Longitude = client.At(lat), client.At(lon)

	if m.catIdx >= 0 && m.catIdx < len(m.categories) {
		id := m.categories[m.catIdx].ID
		d.Category = &id
	}
	return d, nil
}

// View renders the modal.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.StyleHeader.Render("New event") + "\n")
	b.WriteString(strings.Repeat("─", panelWidth-4) + "\n")

	for i := 0; i < fieldCount; i++ {
		label := styleLabel
		if i == m.focus {
			label = styleFocusedLabel
		}
		var value string
		if i == fieldCategory {
			value = m.renderCategory()
		} else {
			value = m.inputs[i].View()
		}
		b.WriteString(label.Render(fieldLabels[i]+":") + value + "\n")
	}

	if m.Err != "" {
		b.WriteString("\n" + theme.StyleError.Width(panelWidth-4).Render(m.Err) + "\n")
	}
	if m.Submitting {
		b.WriteString("\n" + theme.StyleDimmed.Render("Saving...") + "\n")
	}

	b.WriteString("\n" + theme.StyleDimmed.Render("tab/shift+tab: field  ←/→: category  enter: save  esc: cancel"))
	return stylePanel.Width(panelWidth).Render(b.String())
}

func (m Model) renderCategory() string {
	name := m.categoryName()
	if name == "" {
		name = "none"
	}
	if m.focus == fieldCategory {
		return theme.StyleSelected.Render("‹ " + name + " ›")
	}
	return name
}

func (m Model) categoryName() string {
	if m.catIdx < 0 || m.catIdx >= len(m.categories) {
		return ""
	}
	return m.categories[m.catIdx].Name
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	if i == fieldCategory {
		return nil
	}
	return m.inputs[i].Focus()
}

func (m Model) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func parseCoord(s string, limit float64) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, errors.New("required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a number")
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("must be between %g and %g", -limit, limit)
	}
	return v, nil
}

// FormatCoord formats a coordinate with 8 significant digits in fixed
// notation.
func FormatCoord(v float64) string {
	if v == 0 {
		return "0"
	}
	intDigits := int(math.Floor(math.Log10(math.Abs(v)))) + 1
	decimals := 8 - intDigits
	if decimals < 0 {
		decimals = 0
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
