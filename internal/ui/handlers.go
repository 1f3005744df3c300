package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/logger"
)

// pageSizes are the sizes "s" cycles through.
var pageSizes = []int{10, 20, 50, 100}

func handleForceQuitKey(m Model) (Model, tea.Cmd) {
	return m, tea.Quit
}

func handleQuitKey(m Model) (Model, tea.Cmd) {
	logger.Log("UI: Quit requested")
	return m, tea.Quit
}

func handleBackKey(m Model) (Model, tea.Cmd) {
	if m.state != ViewStats {
		return m, nil
	}
	m.setState(ViewOrganizations)
	return m, nil
}

func handleDismissKey(m Model) (Model, tea.Cmd) {
	m.machine.Results().DismissError()
	m.session.DismissError()
	m.statusBar.ClearMessage()
	return m, nil
}

func handleCommandKey(m Model) (Model, tea.Cmd) {
	m.commandBar.Activate()
	return m, nil
}

func handleConnectKey(m Model) (Model, tea.Cmd) {
	if m.session.Connected() {
		m.statusBar.SetMessage("Already connected to GitHub", false)
		return m, nil
	}
	logKey("connect", m)
	m.statusBar.SetMessage("Opening GitHub in your browser...", false)
	return m, m.session.Connect()
}

func handleDisconnectKey(m Model) (Model, tea.Cmd) {
	cmd := m.session.Disconnect()
	if cmd == nil {
		if m.session.Revoking() {
			m.statusBar.SetMessage("A disconnect is already in progress", false)
		} else {
			m.statusBar.SetMessage("Not connected to GitHub", true)
		}
		return m, nil
	}

	logKey("disconnect", m)
	m.sessionView.SetState(m.session.State(), true)
	m.statusBar.SetMessage("Disconnecting from GitHub...", false)
	return m, cmd
}

func handleOrganizationsKey(m Model) (Model, tea.Cmd) {
	if !m.session.Connected() {
		m.statusBar.SetMessage("Connect to GitHub first (press c)", true)
		return m, nil
	}
	m.setState(ViewOrganizations)
	return m, nil
}

func handleAccountKey(m Model) (Model, tea.Cmd) {
	m.setState(ViewSession)
	return m, nil
}

func handleEnterKey(m Model) (Model, tea.Cmd) {
	org := m.orgsView.GetSelectedOrganization()
	if org == nil {
		return m, nil
	}

	logger.Log("UI: Showing statistics for %s", org.Login)
	cmd := m.machine.SetOrganization(org.Login)
	m.setState(ViewStats)
	syncCmd := m.sync()
	return m, tea.Batch(cmd, syncCmd)
}

// handleToggleKey includes the highlighted organization, or excludes it
// when it is already the included one.
func handleToggleKey(m Model) (Model, tea.Cmd) {
	org := m.orgsView.GetSelectedOrganization()
	if org == nil {
		return m, nil
	}

	target := org.Login
	if m.machine.Selection().Organization == org.Login {
		target = ""
	}
	cmd := m.machine.SetOrganization(target)
	syncCmd := m.sync()
	return m, tea.Batch(cmd, syncCmd)
}

func handleReloadKey(m Model) (Model, tea.Cmd) {
	if !m.session.Connected() {
		return m, nil
	}
	cmd := m.machine.LoadOrganizations()
	syncCmd := m.sync()
	return m, tea.Batch(cmd, syncCmd)
}

func handleRefreshKey(m Model) (Model, tea.Cmd) {
	cmd := m.machine.Refresh()
	syncCmd := m.sync()
	return m, tea.Batch(cmd, syncCmd)
}

func kindKey(index int) KeyHandler {
	return func(m Model) (Model, tea.Cmd) {
		return m.selectKind(domain.EntityKinds[index])
	}
}

func handleNextKindKey(m Model) (Model, tea.Cmd) {
	return m.selectKind(stepKind(m.machine.Selection().EntityKind, 1))
}

func handlePrevKindKey(m Model) (Model, tea.Cmd) {
	return m.selectKind(stepKind(m.machine.Selection().EntityKind, -1))
}

func stepKind(kind domain.EntityKind, step int) domain.EntityKind {
	n := len(domain.EntityKinds)
	for i, k := range domain.EntityKinds {
		if k == kind {
			return domain.EntityKinds[((i+step)%n+n)%n]
		}
	}
	return domain.DefaultEntityKind
}

func (m Model) selectKind(kind domain.EntityKind) (Model, tea.Cmd) {
	cmd := m.machine.SetEntityKind(kind)
	syncCmd := m.sync()
	return m, tea.Batch(cmd, syncCmd)
}

func handleNextPageKey(m Model) (Model, tea.Cmd) {
	sel := m.machine.Selection()
	last := m.machine.Results().PageCount(sel.EntityKind, sel.PageSize)
	if sel.Page >= last {
		return m, nil
	}
	return m.goToPage(sel.Page+1, sel.PageSize)
}

func handlePrevPageKey(m Model) (Model, tea.Cmd) {
	sel := m.machine.Selection()
	if sel.Page <= 1 {
		return m, nil
	}
	return m.goToPage(sel.Page-1, sel.PageSize)
}

func handlePageSizeKey(m Model) (Model, tea.Cmd) {
	current := m.machine.Selection().PageSize
	next := pageSizes[0]
	for _, size := range pageSizes {
		if size > current {
			next = size
			break
		}
	}
	m.statusBar.SetMessage(fmt.Sprintf("%d rows per page", next), false)
	return m.goToPage(1, next)
}

func (m Model) goToPage(page, pageSize int) (Model, tea.Cmd) {
	cmd := m.machine.SetPage(page, pageSize)
	syncCmd := m.sync()
	return m, tea.Batch(cmd, syncCmd)
}

func handleSearchKey(m Model) (Model, tea.Cmd) {
	cmd := m.statsView.StartSearch()
	return m, cmd
}

func handleLogsKey(m Model) (Model, tea.Cmd) {
	m.logsView.Activate()
	return m, nil
}

func handleHelpKey(m Model) (Model, tea.Cmd) {
	m.showHelp = !m.showHelp
	return m, nil
}

func handleTokenCommand(m Model, args []string) (Model, tea.Cmd) {
	if len(args) != 1 {
		m.statusBar.SetMessage("Usage: :token <value>", true)
		return m, nil
	}
	logger.Log("UI: Credential supplied on the command line")
	m.statusBar.SetMessage("Credential stored, checking the GitHub link...", false)
	return m, m.session.HandleCallback(args[0])
}
