package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/johanforsgren/orgpulse/internal/session"
)

var (
	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	pendingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	labelStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Width(14)
)

// SessionViewModel shows the GitHub link state and how to change it.
type SessionViewModel struct {
	width       int
	height      int
	state       session.State
	revoking    bool
	callbackURL string
}

func NewSessionView() *SessionViewModel {
	return &SessionViewModel{}
}

func (m *SessionViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *SessionViewModel) SetState(state session.State, revoking bool) {
	m.state = state
	m.revoking = revoking
}

// SetCallbackURL names the local listener the authorization redirect returns
// to. Empty when the listener is disabled.
func (m *SessionViewModel) SetCallbackURL(u string) {
	m.callbackURL = u
}

func (m *SessionViewModel) View() string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("GitHub link"))
	b.WriteString("\n\n")

	switch m.state.Status {
	case session.StatusConnected:
		b.WriteString(labelStyle.Render("Status") + connectedStyle.Render("Connected"))
		if m.revoking {
			b.WriteString(pendingStyle.Render("  (disconnecting…)"))
		}
		b.WriteString("\n")
		if u := m.state.User; u != nil {
			b.WriteString(labelStyle.Render("Username") + u.Username + "\n")
			b.WriteString(labelStyle.Render("GitHub ID") + u.ID + "\n")
			if !u.ConnectedAt.IsZero() {
				b.WriteString(labelStyle.Render("Linked since") + u.ConnectedAt.Local().Format("2006-01-02 15:04") + "\n")
			}
		}
		b.WriteString(helpStyle.Render("\no: Organizations | D: Disconnect"))

	case session.StatusDisconnected:
		b.WriteString(labelStyle.Render("Status") + disconnectedStyle.Render("Not connected") + "\n\n")
		b.WriteString("Press c (or :connect) to open GitHub in your browser and link your account.\n")
		if m.callbackURL != "" {
			b.WriteString(fmt.Sprintf("GitHub returns to %s when you are done.\n", m.callbackURL))
		}
		b.WriteString("A credential can also be supplied with :token <value>.\n")
		b.WriteString(helpStyle.Render("\nc: Connect | :token <value> | q: Quit"))

	default:
		b.WriteString(labelStyle.Render("Status") + pendingStyle.Render("Checking…") + "\n")
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Padding(1, 2).
		Width(width)

	return box.Render(b.String())
}
