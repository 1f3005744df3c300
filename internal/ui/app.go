package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/orgpulse/internal/logger"
	"github.com/johanforsgren/orgpulse/internal/query"
	"github.com/johanforsgren/orgpulse/internal/session"
	"github.com/johanforsgren/orgpulse/internal/ui/components"
	"github.com/johanforsgren/orgpulse/internal/ui/views"
)

type ViewState int

const (
	ViewSession ViewState = iota
	ViewOrganizations
	ViewStats
)

func (s ViewState) String() string {
	switch s {
	case ViewSession:
		return "Session"
	case ViewOrganizations:
		return "Organizations"
	case ViewStats:
		return "Statistics"
	default:
		return "Unknown"
	}
}

// DefaultErrorTimeout is how long an error stays in the status bar.
const DefaultErrorTimeout = 8 * time.Second

type Options struct {
	// InitialToken is stored before the first status check, as if the
	// authorization callback had delivered it.
	InitialToken string
	CallbackURL  string
	ErrorTimeout time.Duration
	// Schedule delivers the error dismiss timer. Defaults to
	// query.TickScheduler.
	Schedule query.Scheduler
}

type Model struct {
	state           ViewState
	width           int
	height          int
	topBar          *components.TopBarModel
	statusBar       *components.StatusBarModel
	commandBar      *components.CommandBarModel
	sessionView     *views.SessionViewModel
	orgsView        *views.OrgsViewModel
	statsView       *views.StatsViewModel
	logsView        *views.LogsViewModel
	spinner         spinner.Model
	session         *session.Controller
	machine         *query.Machine
	commandRegistry *CommandRegistry

	initialToken string
	errorTimeout time.Duration
	schedule     query.Scheduler
	connectedAs  string
	noticeSeq    uint64
	showHelp     bool
}

func NewModel(sessionController *session.Controller, machine *query.Machine, opts Options) Model {
	if opts.ErrorTimeout <= 0 {
		opts.ErrorTimeout = DefaultErrorTimeout
	}
	if opts.Schedule == nil {
		opts.Schedule = query.TickScheduler
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		state:           ViewSession,
		topBar:          components.NewTopBar(),
		statusBar:       components.NewStatusBar(),
		commandBar:      components.NewCommandBar(),
		sessionView:     views.NewSessionView(),
		orgsView:        views.NewOrgsView(),
		statsView:       views.NewStatsView(),
		logsView:        views.NewLogsView(),
		spinner:         s,
		session:         sessionController,
		machine:         machine,
		commandRegistry: NewCommandRegistry(),
		initialToken:    opts.InitialToken,
		errorTimeout:    opts.ErrorTimeout,
		schedule:        opts.Schedule,
	}
	m.sessionView.SetCallbackURL(opts.CallbackURL)
	m.setState(ViewSession)
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.session.Init(m.initialToken), m.spinner.Tick)
}

func (m Model) isInInputMode() bool {
	if m.commandBar.IsActive() || m.logsView.IsActive() || m.showHelp {
		return true
	}
	return m.state == ViewStats && m.statsView.Searching()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.topBar.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.commandBar.SetWidth(msg.Width)
		m.sessionView.SetSize(msg.Width, msg.Height)
		m.orgsView.SetSize(msg.Width, msg.Height)
		m.statsView.SetSize(msg.Width, msg.Height)
		m.logsView.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case CallbackTokenMsg:
		logger.Log("UI: Credential delivered by the authorization callback")
		m.statusBar.SetMessage("Received a credential from GitHub, checking the link...", false)
		return m, m.session.HandleCallback(msg.Token)

	case session.ChangedMsg:
		return m.handleSessionChanged(msg)

	case session.OpenedMsg:
		if msg.Err == nil {
			m.statusBar.SetMessage("Finish linking in your browser", false)
		}
		cmd := m.session.Update(msg)
		return m, cmd

	case session.StatusCheckedMsg, session.RevokedMsg:
		cmd := m.session.Update(msg)
		return m, cmd

	case query.AuthFailedMsg:
		return m, m.session.Expire(msg.Err)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.statusBar.SetHint(m.loadingHint())
		return m, cmd

	case dismissNoticeMsg:
		if notice, ok := m.machine.Results().Error(); ok && notice.Seq == msg.seq {
			m.machine.Results().DismissError()
			m.statusBar.ClearMessage()
		}
		return m, nil
	}

	// Query completions and settled searches.
	cmd := m.machine.Update(msg)
	syncCmd := m.sync()
	return m, tea.Batch(cmd, syncCmd)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.isInInputMode() {
		if m.commandBar.IsActive() {
			switch key {
			case "enter":
				return m.handleCommand()
			case "esc":
				m.commandBar.Deactivate()
				return m, nil
			default:
				return m, m.commandBar.Update(msg)
			}
		}

		if m.logsView.IsActive() {
			switch key {
			case "esc", "q":
				m.logsView.Deactivate()
				return m, nil
			default:
				return m, m.logsView.Update(msg)
			}
		}

		if m.showHelp {
			if key == "ctrl+c" {
				return m, tea.Quit
			}
			m.showHelp = false
			return m, nil
		}

		return m.handleSearchInput(msg)
	}

	newModel, cmd, handled := m.commandRegistry.HandleKey(m, key)
	if handled {
		return newModel, cmd
	}

	switch m.state {
	case ViewOrganizations:
		return m, m.orgsView.Update(msg)
	case ViewStats:
		return m, m.statsView.Update(msg)
	}
	return m, nil
}

// handleSearchInput pushes every edit of the search text into the query
// machine, which debounces it.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter", "esc":
		m.statsView.StopSearch()
		return m, nil
	case "ctrl+u":
		m.statsView.ClearSearch()
		cmd := m.machine.SetSearchText("")
		syncCmd := m.sync()
		return m, tea.Batch(cmd, syncCmd)
	}

	inputCmd, changed := m.statsView.UpdateSearch(msg)
	if !changed {
		return m, inputCmd
	}
	cmd := m.machine.SetSearchText(m.statsView.SearchValue())
	syncCmd := m.sync()
	return m, tea.Batch(inputCmd, cmd, syncCmd)
}

func (m Model) handleCommand() (tea.Model, tea.Cmd) {
	input := m.commandBar.Submit()
	command := ParseCommand(input)
	if command.Type == CommandToken {
		logger.Log("UI: Executing command: token")
	} else {
		logger.Log("UI: Executing command: %s", strings.TrimSpace(input))
	}
	return m.commandRegistry.ExecuteCommand(m, command)
}

// handleSessionChanged starts loading organizations when a session becomes
// connected and drops all query state when it stops being connected.
func (m Model) handleSessionChanged(msg session.ChangedMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.State.Status {
	case session.StatusConnected:
		user := ""
		if msg.State.User != nil {
			user = msg.State.User.Username
		}
		if msg.Previous != session.StatusConnected || user != m.connectedAs {
			m.machine.Reset()
			m.statsView.ClearSearch()
			m.connectedAs = user
			cmds = append(cmds, m.machine.LoadOrganizations())
			m.setState(ViewOrganizations)
			m.statusBar.SetMessage(fmt.Sprintf("Connected to GitHub as %s", user), false)
		}

	default:
		if msg.Previous == session.StatusConnected {
			m.machine.Reset()
			m.statsView.ClearSearch()
			m.connectedAs = ""
			m.statusBar.SetMessage("Disconnected from GitHub", false)
		}
		m.setState(ViewSession)
	}

	if msg.State.Err != "" {
		m.statusBar.SetMessage(msg.State.Err, true)
	}

	cmds = append(cmds, m.sync())
	return m, tea.Batch(cmds...)
}

func (m *Model) setState(state ViewState) {
	m.state = state
	m.topBar.SetView(state.String())
	m.topBar.SetShortcuts(m.commandRegistry.GetContextualShortcuts(state))
}

// sync copies the session and the reconciler output into the views. A new
// error notice is shown and a dismiss timer started for it.
func (m *Model) sync() tea.Cmd {
	state := m.session.State()
	m.sessionView.SetState(state, m.session.Revoking())
	username := ""
	if state.User != nil {
		username = state.User.Username
	}
	m.topBar.SetSession(sessionLabel(state.Status), state.Status == session.StatusConnected, username)

	res := m.machine.Results()
	sel := m.machine.Selection()

	m.orgsView.SetOrganizations(res.Organizations())
	m.orgsView.SetIncluded(sel.Organization)

	m.statsView.SetSelection(sel)
	m.statsView.SetSummary(res.Summary())
	m.statsView.SetPage(res.Page(sel.EntityKind), res.PageCount(sel.EntityKind, sel.PageSize))

	m.topBar.SetOrganization(sel.Organization, len(res.Organizations()))
	m.topBar.SetEntityKind(sel.EntityKind.Label())
	m.topBar.SetSearch(m.machine.PendingSearch(), m.machine.PendingSearch() != sel.SearchText)
	m.statusBar.SetHint(m.loadingHint())

	notice, ok := res.Error()
	if !ok || notice.Seq == m.noticeSeq {
		return nil
	}
	m.noticeSeq = notice.Seq
	m.statusBar.SetMessage(notice.Message, true)

	return m.schedule(m.errorTimeout, dismissNoticeMsg{seq: notice.Seq})
}

func (m Model) loadingHint() string {
	res := m.machine.Results()
	var what []string
	if m.session.State().Status == session.StatusUnknown {
		what = append(what, "checking link")
	}
	if m.session.Revoking() {
		what = append(what, "disconnecting")
	}
	if res.OrganizationsLoading() {
		what = append(what, "organizations")
	}
	if res.StatsLoading() {
		what = append(what, "statistics")
	}
	if len(what) == 0 {
		return ""
	}
	return m.spinner.View() + " " + strings.Join(what, ", ")
}

func sessionLabel(status session.Status) string {
	switch status {
	case session.StatusConnected:
		return "connected"
	case session.StatusDisconnected:
		return "not connected"
	default:
		return "checking"
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch {
	case m.logsView.IsActive():
		content = m.logsView.View()
	case m.showHelp:
		content = m.helpView()
	default:
		switch m.state {
		case ViewSession:
			content = m.sessionView.View()
		case ViewOrganizations:
			content = m.orgsView.View()
		case ViewStats:
			content = m.statsView.View()
		}
	}

	topBar := m.topBar.View()
	if commandBar := m.commandBar.View(); commandBar != "" {
		return topBar + "\n" + content + "\n" + commandBar
	}
	return topBar + "\n" + content + "\n" + m.statusBar.View()
}

func (m Model) helpView() string {
	var b strings.Builder
	b.WriteString(HelpTitleStyle.Render(fmt.Sprintf("Keys in %s", m.state)))
	b.WriteString("\n\n")
	for _, binding := range m.commandRegistry.Bindings(m.state) {
		b.WriteString(fmt.Sprintf("  %-18s %s\n", strings.Join(binding.Keys, ", "), binding.Description))
	}
	b.WriteString("\n")
	b.WriteString(HelpTitleStyle.Render("Commands"))
	b.WriteString("\n\n")
	for _, line := range []string{
		":connect            link a GitHub account",
		":disconnect         unlink it",
		":token <value>      use a credential you already have",
		":refresh            reload the current view",
		":orgs               organizations",
		":logs               session logs",
		":q                  quit",
	} {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString(HelpStyle.Render("Press any key to close"))
	return BorderStyle.Width(max(20, m.width-4)).Render(b.String())
}

// CallbackTokenMsg carries a credential delivered to the local callback
// listener while the program runs.
type CallbackTokenMsg struct {
	Token string
}

type dismissNoticeMsg struct {
	seq uint64
}
