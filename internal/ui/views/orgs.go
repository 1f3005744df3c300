package views

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/orgpulse/internal/domain"
)

// OrgsViewModel lists the organizations the linked account can see. The
// included marker is rendering state only.
type OrgsViewModel struct {
	table table.Model

	organizations []domain.Organization
	included      string

	width  int
	height int
}

const (
	includedWidth = 3
	idWidth       = 12
	loginWidth    = 24
	slugWidth     = 24
	minLinkWidth  = 20
	maxLinkWidth  = 80
)

func NewOrgsView() *OrgsViewModel {
	return &OrgsViewModel{
		table: newTable(orgColumns(minLinkWidth), 10, true),
	}
}

func orgColumns(linkWidth int) []table.Column {
	return []table.Column{
		{Title: "", Width: includedWidth},
		{Title: "Id", Width: idWidth},
		{Title: "Name", Width: loginWidth},
		{Title: "Link", Width: linkWidth},
		{Title: "Repo Name", Width: slugWidth},
	}
}

func (m *OrgsViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(1, height-12))

	fixed := includedWidth + idWidth + loginWidth + slugWidth + 2
	linkWidth := clamp(width-fixed, minLinkWidth, maxLinkWidth)
	m.table.SetColumns(orgColumns(linkWidth))
	m.rebuild()
}

func (m *OrgsViewModel) SetOrganizations(orgs []domain.Organization) {
	m.organizations = orgs
	m.rebuild()
	if m.table.Cursor() >= len(orgs) {
		m.table.SetCursor(max(0, len(orgs)-1))
	}
}

// SetIncluded marks login as the picked organization.
func (m *OrgsViewModel) SetIncluded(login string) {
	if login == m.included {
		return
	}
	m.included = login
	m.rebuild()
}

func (m *OrgsViewModel) Included() string {
	return m.included
}

func (m *OrgsViewModel) Count() int {
	return len(m.organizations)
}

func (m *OrgsViewModel) rebuild() {
	linkWidth := m.table.Columns()[3].Width
	rows := make([]table.Row, len(m.organizations))
	for i, org := range m.organizations {
		marker := "[ ]"
		if org.Login == m.included {
			marker = "[x]"
		}
		rows[i] = table.Row{
			marker,
			strconv.FormatInt(org.ID, 10),
			truncateString(org.Login, loginWidth),
			truncateString(org.ProfileURL(), linkWidth),
			truncateString(org.Slug(), slugWidth),
		}
	}
	m.table.SetRows(rows)
}

func (m *OrgsViewModel) GetSelectedOrganization() *domain.Organization {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.organizations) {
		return nil
	}
	return &m.organizations[idx]
}

func (m *OrgsViewModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

func (m *OrgsViewModel) View() string {
	if len(m.organizations) == 0 {
		return sectionStyle.Render("Organizations") + "\n\n" +
			emptyStyle.Render("No organizations yet") + "\n" +
			helpStyle.Render("\nr: Reload | q: Quit")
	}

	return sectionStyle.Render("Organizations") + "\n\n" +
		m.table.View() + "\n" +
		helpStyle.Render("\nEnter: Statistics | Space: Include/Exclude | r: Reload | q: Quit")
}
