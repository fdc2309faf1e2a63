// Package login renders the sign-in and sign-up forms.
package login

import (
	"errors"
	"strings"

	"github.com/FeS1111/TSP/internal/theme"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Mode selects which form is shown.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldCount
)

const (
	panelWidth = 46
	labelWidth = 10
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorBorder).
			Padding(1, 2)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleFocusedLabel = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorBright).
				Width(labelWidth)
)

// Model holds the form state.
type Model struct {
	mode   Mode
	inputs [fieldCount]textinput.Model
	focus  int

	Flash    string
	FlashErr bool
	Busy     bool
}

// New creates an empty login form.
func New() Model {
	var m Model
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Cursor.SetMode(cursor.CursorStatic)
		ti.Width = panelWidth - labelWidth - 8
		ti.CharLimit = 150
		switch i {
		case fieldUsername:
			ti.Placeholder = "username"
		case fieldEmail:
			ti.Placeholder = "you@example.com"
		case fieldPassword:
			ti.Placeholder = "password"
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.inputs[i] = ti
	}
	m.inputs[fieldUsername].Focus()
	return m
}

// Mode returns the active form.
func (m Model) Mode() Mode {
	return m.mode
}

// SetMode switches between the login and register forms, keeping the
// username.
func (m *Model) SetMode(mode Mode) tea.Cmd {
	m.mode = mode
	m.inputs[fieldPassword].Reset()
	m.inputs[fieldEmail].Reset()
	return m.setFocus(fieldUsername)
}

// SetFlash sets the banner shown above the form.
func (m *Model) SetFlash(msg string, isErr bool) {
	m.Flash = msg
	m.FlashErr = isErr
}

// ClearPassword empties the password field.
func (m *Model) ClearPassword() {
	m.inputs[fieldPassword].Reset()
}

// SetUsername prefills the username.
func (m *Model) SetUsername(s string) {
	m.inputs[fieldUsername].SetValue(s)
}

// SetValues fills every field at once.
func (m *Model) SetValues(username, email, password string) {
	m.inputs[fieldUsername].SetValue(username)
	m.inputs[fieldEmail].SetValue(email)
	m.inputs[fieldPassword].SetValue(password)
}

// Credentials returns the trimmed username and email and the raw password.
func (m Model) Credentials() (username, email, password string) {
	return strings.TrimSpace(m.inputs[fieldUsername].Value()),
		strings.TrimSpace(m.inputs[fieldEmail].Value()),
		m.inputs[fieldPassword].Value()
}

// Validate checks that the required fields are filled in.
func (m Model) Validate() error {
	username, email, password := m.Credentials()
	if username == "" {
		return errors.New("username is required")
	}
	if m.mode == ModeRegister {
		if email == "" {
			return errors.New("email is required")
		}
		if !strings.Contains(email, "@") {
			return errors.New("email is not valid")
		}
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}

// Next moves focus to the next visible field.
func (m *Model) Next() tea.Cmd {
	i := (m.focus + 1) % fieldCount
	if i == fieldEmail && m.mode == ModeLogin {
		i++
	}
	return m.setFocus(i)
}

// Prev moves focus to the previous visible field.
func (m *Model) Prev() tea.Cmd {
	i := (m.focus - 1 + fieldCount) % fieldCount
	if i == fieldEmail && m.mode == ModeLogin {
		i--
	}
	return m.setFocus(i)
}

// Update forwards input to the focused field.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// View renders the form centered in width x height.
func (m Model) View(width, height int) string {
	var b strings.Builder

	title := "Sign in"
	if m.mode == ModeRegister {
		title = "Create an account"
	}
	b.WriteString(theme.StyleHeader.Render(title) + "\n\n")

	if m.Flash != "" {
		style := theme.StyleOK
		if m.FlashErr {
			style = theme.StyleError
		}
		b.WriteString(style.Width(panelWidth-6).Render(m.Flash) + "\n\n")
	}

	m.writeField(&b, fieldUsername, "Username")
	if m.mode == ModeRegister {
		m.writeField(&b, fieldEmail, "Email")
	}
	m.writeField(&b, fieldPassword, "Password")

	b.WriteString("\n")
	if m.Busy {
		b.WriteString(theme.StyleDimmed.Render("Please wait...") + "\n")
	}
	help := "enter: sign in  ctrl+r: register  esc: quit"
	if m.mode == ModeRegister {
		help = "enter: sign up  esc: back to sign in"
	}
	b.WriteString(theme.StyleDimmed.Render(help))

	panel := stylePanel.Width(panelWidth).Render(b.String())
	if width <= 0 || height <= 0 {
		return panel
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, panel)
}

func (m Model) writeField(b *strings.Builder, i int, label string) {
	style := styleLabel
	if i == m.focus {
		style = styleFocusedLabel
	}
	b.WriteString(style.Render(label+":") + m.inputs[i].View() + "\n")
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}
