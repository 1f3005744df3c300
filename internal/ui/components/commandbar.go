package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxHistory = 50

type CommandBarModel struct {
	textInput textinput.Model
	width     int
	active    bool

	history []string
	// cursor indexes history while browsing; len(history) means the fresh line.
	cursor int
}

func NewCommandBar() *CommandBarModel {
	ti := textinput.New()
	ti.Placeholder = "connect, disconnect, token <value>, refresh, orgs, logs, help, q"
	ti.CharLimit = 512
	ti.Width = 50

	return &CommandBarModel{
		textInput: ti,
	}
}

func (m *CommandBarModel) SetWidth(width int) {
	m.width = width
	if width > 10 {
		m.textInput.Width = width - 10
	}
}

func (m *CommandBarModel) Activate() {
	m.active = true
	m.cursor = len(m.history)
	m.textInput.Focus()
	m.textInput.SetValue(":")
	m.textInput.CursorEnd()
}

func (m *CommandBarModel) Deactivate() {
	m.active = false
	m.textInput.Blur()
	m.textInput.SetValue("")
}

func (m *CommandBarModel) IsActive() bool {
	return m.active
}

func (m *CommandBarModel) Value() string {
	return m.textInput.Value()
}

// Submit returns the typed command, records it in the history and closes
// the bar. Credentials typed with :token are not kept.
func (m *CommandBarModel) Submit() string {
	value := m.textInput.Value()
	if value != ":" && value != "" && !isTokenCommand(value) {
		if n := len(m.history); n == 0 || m.history[n-1] != value {
			m.history = append(m.history, value)
			if len(m.history) > maxHistory {
				m.history = m.history[len(m.history)-maxHistory:]
			}
		}
	}
	m.Deactivate()
	return value
}

func (m *CommandBarModel) History() []string {
	return append([]string(nil), m.history...)
}

func (m *CommandBarModel) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up":
			if m.cursor > 0 {
				m.cursor--
				m.textInput.SetValue(m.history[m.cursor])
				m.textInput.CursorEnd()
			}
			return nil
		case "down":
			if m.cursor < len(m.history) {
				m.cursor++
				value := ":"
				if m.cursor < len(m.history) {
					value = m.history[m.cursor]
				}
				m.textInput.SetValue(value)
				m.textInput.CursorEnd()
			}
			return nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return cmd
}

func (m *CommandBarModel) View() string {
	if !m.active {
		return ""
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F9FAFB")).
		Background(lipgloss.Color("#1F2937")).
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Width(m.width)

	return style.Render(" " + m.textInput.View())
}

func isTokenCommand(value string) bool {
	return strings.HasPrefix(value, ":token") || strings.HasPrefix(value, ":t ")
}
