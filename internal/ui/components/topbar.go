package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

type TopBarModel struct {
	width        int
	session      string
	connected    bool
	username     string
	organization string
	orgCount     int
	entityKind   string
	search       string
	searchDirty  bool
	currentView  string
	shortcuts    []string
}

var (
	titleStyle        = lipgloss.NewStyle().Padding(1, 2)
	titleOrangeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	valueWhiteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	valueGreenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	valueRedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	shortcutBlueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	descGrayStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

const (
	contextRows     = 5
	contextColWidth = 45
	colMargin       = 4
	maxValueWidth   = 32
)

func NewTopBar() *TopBarModel {
	return &TopBarModel{session: "checking"}
}

func (m *TopBarModel) SetWidth(width int) {
	m.width = width
}

// SetSession describes the link state; username is shown when connected.
func (m *TopBarModel) SetSession(status string, connected bool, username string) {
	m.session = status
	m.connected = connected
	m.username = username
}

func (m *TopBarModel) SetOrganization(org string, total int) {
	m.organization = org
	m.orgCount = total
}

func (m *TopBarModel) SetEntityKind(label string) {
	m.entityKind = label
}

// SetSearch shows the committed search text. dirty marks typed text that has
// not settled yet.
func (m *TopBarModel) SetSearch(text string, dirty bool) {
	m.search = text
	m.searchDirty = dirty
}

func (m *TopBarModel) SetView(view string) {
	m.currentView = view
}

func (m *TopBarModel) SetShortcuts(shortcuts []string) {
	m.shortcuts = shortcuts
}

func (m *TopBarModel) Shortcuts() []string {
	return m.shortcuts
}

func (m *TopBarModel) View() string {
	titleLine := titleOrangeStyle.Render("orgpulse")

	contextLines := m.buildContextInfo()
	shortcutCol1, shortcutCol2, col1Width := m.buildShortcutsDisplay(len(contextLines))

	topSection := []string{titleLine, ""}

	for i := 0; i < contextRows; i++ {
		var contextCol, sc1, sc2 string

		if i < len(contextLines) {
			contextCol = contextLines[i]
		}
		if i < len(shortcutCol1) {
			sc1 = shortcutCol1[i]
		}
		if i < len(shortcutCol2) {
			sc2 = shortcutCol2[i]
		}

		padding1 := contextColWidth - lipgloss.Width(contextCol)
		if padding1 < 1 {
			padding1 = 1
		}

		line := contextCol + strings.Repeat(" ", padding1) + sc1

		if sc2 != "" {
			padding2 := col1Width - lipgloss.Width(sc1) + colMargin
			if padding2 < colMargin {
				padding2 = colMargin
			}
			line += strings.Repeat(" ", padding2) + sc2
		}

		topSection = append(topSection, line)
	}

	return titleStyle.Width(m.width).Render(strings.Join(topSection, "\n"))
}

func (m *TopBarModel) buildContextInfo() []string {
	var lines []string

	sessionValue := valueRedStyle.Render(m.session)
	if m.connected {
		sessionValue = valueGreenStyle.Render(m.session)
		if m.username != "" {
			sessionValue += valueWhiteStyle.Render(" as " + shorten(m.username))
		}
	}
	lines = append(lines, "🔗 "+titleOrangeStyle.Render("GitHub: ")+sessionValue)

	org := "none"
	if m.organization != "" {
		org = shorten(m.organization)
	}
	orgLine := "🏢 " + titleOrangeStyle.Render("Org: ") + valueWhiteStyle.Render(org)
	if m.orgCount > 0 {
		orgLine += descGrayStyle.Render(fmt.Sprintf(" [%d]", m.orgCount))
	}
	lines = append(lines, orgLine)

	if m.organization != "" && m.entityKind != "" {
		lines = append(lines, "📊 "+titleOrangeStyle.Render("Stats: ")+valueWhiteStyle.Render(m.entityKind))
	}

	if m.search != "" || m.searchDirty {
		search := fmt.Sprintf("%q", shorten(m.search))
		if m.searchDirty {
			search += descGrayStyle.Render(" …")
		}
		lines = append(lines, "🔍 "+titleOrangeStyle.Render("Search: ")+valueWhiteStyle.Render(search))
	}

	viewName := m.currentView
	if viewName == "" {
		viewName = "Session"
	}
	lines = append(lines, "🎯 "+titleOrangeStyle.Render("View: ")+valueWhiteStyle.Render(viewName))

	for len(lines) < contextRows {
		lines = append(lines, "")
	}
	return lines
}

func (m *TopBarModel) buildShortcutsDisplay(contextHeight int) ([]string, []string, int) {
	var formattedShortcuts []string
	maxWidth := 0

	for _, shortcut := range m.shortcuts {
		parts := strings.SplitN(shortcut, ">", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimPrefix(parts[0], "<")
		desc := strings.TrimSpace(parts[1])

		formatted := shortcutBlueStyle.Render("<"+key+">") + " " + descGrayStyle.Render(desc)
		formattedShortcuts = append(formattedShortcuts, formatted)

		if width := lipgloss.Width(formatted); width > maxWidth {
			maxWidth = width
		}
	}

	rows := contextRows
	if contextHeight > rows {
		rows = contextHeight
	}

	if len(formattedShortcuts) <= rows {
		return formattedShortcuts, nil, maxWidth
	}
	col2 := formattedShortcuts[rows:]
	if len(col2) > rows {
		col2 = col2[:rows]
	}
	return formattedShortcuts[:rows], col2, maxWidth
}

func shorten(s string) string {
	return ansi.Truncate(s, maxValueWidth, "...")
}
