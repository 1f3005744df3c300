package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

type StatusBarModel struct {
	width   int
	message string
	hint    string
	isError bool
}

func NewStatusBar() *StatusBarModel {
	return &StatusBarModel{}
}

func (m *StatusBarModel) SetWidth(width int) {
	m.width = width
}

// SetMessage shows message on the left. Multi-line messages are folded onto
// one line.
func (m *StatusBarModel) SetMessage(message string, isError bool) {
	m.message = strings.Join(strings.Fields(strings.ReplaceAll(message, "\n", " · ")), " ")
	m.isError = isError
}

func (m *StatusBarModel) ClearMessage() {
	m.message = ""
	m.isError = false
}

// SetHint shows text right-aligned, behind the message.
func (m *StatusBarModel) SetHint(hint string) {
	m.hint = hint
}

func (m *StatusBarModel) Message() string {
	return m.message
}

func (m *StatusBarModel) IsError() bool {
	return m.isError
}

func (m *StatusBarModel) View() string {
	content := " " + m.message
	hint := ""
	if m.hint != "" {
		hint = m.hint + " "
	}

	room := m.width - lipgloss.Width(hint)
	if lipgloss.Width(content) > room {
		content = ansi.Truncate(content, max(0, room-1), "…")
	}
	if padding := m.width - lipgloss.Width(content) - lipgloss.Width(hint); padding > 0 {
		content += strings.Repeat(" ", padding)
	}
	content += hint

	bgColor := lipgloss.Color("#374151")
	if m.isError {
		bgColor = lipgloss.Color("#991B1B")
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F9FAFB")).
		Background(bgColor).
		Width(m.width)

	return style.Render(content)
}
