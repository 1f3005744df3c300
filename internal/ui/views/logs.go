package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/johanforsgren/orgpulse/internal/logger"
)

type LogsViewModel struct {
	width     int
	height    int
	offset    int
	active    bool
	errorOnly bool
	all       []logger.LogEntry
	logs      []logger.LogEntry
}

func NewLogsView() *LogsViewModel {
	return &LogsViewModel{}
}

func (m *LogsViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *LogsViewModel) Activate() {
	m.active = true
	m.all = logger.GetLogs()
	m.filter()
	m.scrollToEnd()
}

func (m *LogsViewModel) Deactivate() {
	m.active = false
	m.offset = 0
}

func (m *LogsViewModel) IsActive() bool {
	return m.active
}

func (m *LogsViewModel) visibleLines() int {
	return max(1, m.height-8)
}

func (m *LogsViewModel) maxOffset() int {
	return max(0, len(m.logs)-m.visibleLines())
}

func (m *LogsViewModel) scrollToEnd() {
	m.offset = m.maxOffset()
}

func (m *LogsViewModel) filter() {
	if !m.errorOnly {
		m.logs = m.all
		return
	}
	m.logs = m.logs[:0:0]
	for _, entry := range m.all {
		if entry.Level == logger.LevelError {
			m.logs = append(m.logs, entry)
		}
	}
}

func (m *LogsViewModel) Update(msg tea.Msg) tea.Cmd {
	if !m.active {
		return nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch key.String() {
	case "up", "k":
		m.offset = max(0, m.offset-1)
	case "down", "j":
		m.offset = min(m.maxOffset(), m.offset+1)
	case "pgup":
		m.offset = max(0, m.offset-m.visibleLines())
	case "pgdown":
		m.offset = min(m.maxOffset(), m.offset+m.visibleLines())
	case "g", "home":
		m.offset = 0
	case "G", "end":
		m.scrollToEnd()
	case "e":
		m.errorOnly = !m.errorOnly
		m.filter()
		m.scrollToEnd()
	case "r":
		m.all = logger.GetLogs()
		m.filter()
		m.scrollToEnd()
	}
	return nil
}

func levelColor(level logger.Level) lipgloss.Color {
	switch level {
	case logger.LevelError:
		return lipgloss.Color("#EF4444")
	case logger.LevelDebug:
		return lipgloss.Color("#6B7280")
	default:
		return lipgloss.Color("#E5E7EB")
	}
}

func (m *LogsViewModel) View() string {
	if !m.active {
		return ""
	}

	var b strings.Builder

	title := fmt.Sprintf("Session Logs (%d entries)", len(m.logs))
	if m.errorOnly {
		title = fmt.Sprintf("Session Logs (%d errors)", len(m.logs))
	}
	b.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true).
		Padding(1, 0).
		Render(title))
	b.WriteString("\n\n")

	if len(m.logs) == 0 {
		b.WriteString(emptyStyle.Render("No logs yet"))
	} else {
		end := min(len(m.logs), m.offset+m.visibleLines())
		for _, entry := range m.logs[m.offset:end] {
			line := fmt.Sprintf("[%s] %-5s %s", entry.Timestamp.Format("15:04:05.000"), entry.Level, entry.Message)
			b.WriteString(lipgloss.NewStyle().Foreground(levelColor(entry.Level)).Render(truncateString(line, m.width-8)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")

	scrollInfo := ""
	if len(m.logs) > m.visibleLines() {
		scrollInfo = fmt.Sprintf(" | Showing %d-%d of %d", m.offset+1, min(len(m.logs), m.offset+m.visibleLines()), len(m.logs))
	}
	b.WriteString(helpStyle.Render("j/k: Scroll | PgUp/PgDn: Page | g/G: Top/Bottom | e: Errors only | r: Reload | Esc: Close" + scrollInfo))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Padding(1, 2).
		Width(max(20, m.width-4))

	return boxStyle.Render(b.String())
}
