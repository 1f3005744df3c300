package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/johanforsgren/orgpulse/internal/domain"
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9FAFB")).
			Background(lipgloss.Color("#7C3AED")).
			Bold(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6B7280")).
				Padding(0, 1)

	searchLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F59E0B")).
				Bold(true)
)

const summaryHeight = 5

var summaryColumns = []table.Column{
	{Title: "UserID", Width: 12},
	{Title: "User", Width: 20},
	{Title: "Total Commits", Width: 14},
	{Title: "Total Pull Requests", Width: 20},
	{Title: "Total Issues", Width: 13},
}

func statColumns(kind domain.EntityKind) []table.Column {
	switch kind {
	case domain.EntityPullRequests:
		return []table.Column{
			{Title: "User", Width: 20},
			{Title: "Repository", Width: 30},
			{Title: "Opened", Width: 8},
			{Title: "Merged", Width: 8},
			{Title: "Closed", Width: 8},
		}
	case domain.EntityIssues:
		return []table.Column{
			{Title: "User", Width: 20},
			{Title: "Repository", Width: 30},
			{Title: "Opened", Width: 8},
			{Title: "Closed", Width: 8},
		}
	default:
		return []table.Column{
			{Title: "User", Width: 20},
			{Title: "Repository", Width: 30},
			{Title: "Commits", Width: 9},
			{Title: "Additions", Width: 10},
			{Title: "Deletions", Width: 10},
			{Title: "Last commit", Width: 12},
		}
	}
}

// StatsViewModel renders the organization summary and one page of the
// selected entity kind.
type StatsViewModel struct {
	summary   table.Model
	detail    table.Model
	paginator paginator.Model
	search    textinput.Model

	selection  domain.QuerySelection
	totalCount int
	rowCount   int
	hasSummary bool

	width  int
	height int
}

func NewStatsView() *StatsViewModel {
	p := paginator.New()
	p.Type = paginator.Arabic
	p.ArabicFormat = "Page %d of %d"

	ti := textinput.New()
	ti.Placeholder = "Search by user or repository..."
	ti.CharLimit = 100
	ti.Prompt = ""

	return &StatsViewModel{
		summary:   newTable(summaryColumns, summaryHeight, false),
		detail:    newTable(statColumns(domain.DefaultEntityKind), 10, true),
		paginator: p,
		search:    ti,
		selection: domain.QuerySelection{EntityKind: domain.DefaultEntityKind, Page: 1},
	}
}

func (m *StatsViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.detail.SetHeight(max(3, height-summaryHeight-20))
	m.search.Width = clamp(width-20, 10, 60)
}

// SetSelection follows the query selection. Changing the entity kind swaps
// the detail columns.
func (m *StatsViewModel) SetSelection(sel domain.QuerySelection) {
	if sel.EntityKind != m.selection.EntityKind {
		replaceColumns(&m.detail, statColumns(sel.EntityKind), nil)
		m.rowCount = 0
	}
	m.selection = sel
	m.paginator.PerPage = max(1, sel.PageSize)
	m.paginator.Page = max(0, sel.Page-1)
}

func (m *StatsViewModel) SetSummary(totals []domain.ContributorTotals) {
	rows := make([]table.Row, len(totals))
	for i, t := range totals {
		rows[i] = table.Row(t.Cells())
	}
	m.hasSummary = len(totals) > 0
	m.summary.SetRows(rows)
}

// SetPage shows page, which belongs to the current entity kind. pageCount is
// at least 1.
func (m *StatsViewModel) SetPage(page domain.ResultPage[domain.StatRow], pageCount int) {
	rows := make([]table.Row, len(page.Rows))
	for i, r := range page.Rows {
		rows[i] = table.Row(r.Cells())
	}
	m.detail.SetRows(rows)
	if m.detail.Cursor() >= len(rows) {
		m.detail.SetCursor(max(0, len(rows)-1))
	}
	m.rowCount = len(rows)
	m.totalCount = page.TotalCount
	m.paginator.TotalPages = max(1, pageCount)
}

func (m *StatsViewModel) StartSearch() tea.Cmd {
	return m.search.Focus()
}

func (m *StatsViewModel) StopSearch() {
	m.search.Blur()
}

func (m *StatsViewModel) Searching() bool {
	return m.search.Focused()
}

func (m *StatsViewModel) SearchValue() string {
	return m.search.Value()
}

// ClearSearch empties the input. The caller pushes the empty text to the
// query machine.
func (m *StatsViewModel) ClearSearch() {
	m.search.SetValue("")
}

// UpdateSearch feeds msg to the search input and reports whether its text
// changed.
func (m *StatsViewModel) UpdateSearch(msg tea.Msg) (tea.Cmd, bool) {
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd, m.search.Value() != before
}

func (m *StatsViewModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return cmd
}

func (m *StatsViewModel) View() string {
	var b strings.Builder

	b.WriteString(m.tabsView())
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Contributors"))
	b.WriteString("\n")
	if m.hasSummary {
		b.WriteString(m.summary.View())
	} else {
		b.WriteString(emptyStyle.Render("No totals for this organization"))
	}
	b.WriteString("\n\n")

	b.WriteString(searchLabelStyle.Render("Search: "))
	if m.search.Focused() || m.search.Value() != "" {
		b.WriteString(m.search.View())
	} else {
		b.WriteString(helpStyle.Render("press / to search"))
	}
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render(m.selection.EntityKind.Label()))
	b.WriteString("\n")
	if m.rowCount == 0 {
		b.WriteString(emptyStyle.Render("No rows on this page"))
	} else {
		b.WriteString(m.detail.View())
	}
	b.WriteString("\n")

	footer := fmt.Sprintf("%s · %d rows · %d per page", m.paginator.View(), m.totalCount, m.paginator.PerPage)
	b.WriteString(helpStyle.Render(footer))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.helpText()))

	return b.String()
}

func (m *StatsViewModel) tabsView() string {
	tabs := make([]string, len(domain.EntityKinds))
	for i, kind := range domain.EntityKinds {
		label := fmt.Sprintf("%d %s", i+1, kind.Label())
		if kind == m.selection.EntityKind {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = inactiveTabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *StatsViewModel) helpText() string {
	if m.search.Focused() {
		return "Type to search | Enter/Esc: Done | Ctrl+U: Clear"
	}
	return "Tab/1-3: Kind | ←/→: Page | s: Page size | /: Search | r: Refresh | q: Back"
}
