package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/orgpulse/internal/logger"
)

type KeyHandler func(m Model) (Model, tea.Cmd)

type CommandHandler func(m Model, args []string) (Model, tea.Cmd)

type KeyBinding struct {
	Keys        []string
	Description string
	AvailableIn []ViewState
	Handler     KeyHandler
	// Hidden bindings work but are not listed in the top bar.
	Hidden bool
}

func (b *KeyBinding) availableIn(state ViewState) bool {
	for _, s := range b.AvailableIn {
		if s == state {
			return true
		}
	}
	return false
}

type CommandRegistry struct {
	keyBindings []*KeyBinding
	commands    map[CommandType]CommandHandler
}

var allViews = []ViewState{ViewSession, ViewOrganizations, ViewStats}

func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{
		commands: make(map[CommandType]CommandHandler),
	}
	r.registerKeys()
	r.registerCommands()
	return r
}

func (r *CommandRegistry) RegisterKey(binding *KeyBinding) {
	r.keyBindings = append(r.keyBindings, binding)
}

func (r *CommandRegistry) RegisterCommand(t CommandType, handler CommandHandler) {
	r.commands[t] = handler
}

func (r *CommandRegistry) registerKeys() {
	r.RegisterKey(&KeyBinding{Keys: []string{"ctrl+c"}, Description: "Quit", AvailableIn: allViews, Handler: handleForceQuitKey, Hidden: true})
	r.RegisterKey(&KeyBinding{Keys: []string{"esc"}, Description: "Dismiss error", AvailableIn: allViews, Handler: handleDismissKey, Hidden: true})
	r.RegisterKey(&KeyBinding{Keys: []string{":"}, Description: "Command", AvailableIn: allViews, Handler: handleCommandKey})

	r.RegisterKey(&KeyBinding{Keys: []string{"c"}, Description: "Connect", AvailableIn: []ViewState{ViewSession}, Handler: handleConnectKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"D"}, Description: "Disconnect", AvailableIn: []ViewState{ViewSession}, Handler: handleDisconnectKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"o"}, Description: "Organizations", AvailableIn: []ViewState{ViewSession, ViewStats}, Handler: handleOrganizationsKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"a"}, Description: "Account", AvailableIn: []ViewState{ViewOrganizations, ViewStats}, Handler: handleAccountKey})

	r.RegisterKey(&KeyBinding{Keys: []string{"enter"}, Description: "Statistics", AvailableIn: []ViewState{ViewOrganizations}, Handler: handleEnterKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"space", " "}, Description: "Include/Exclude", AvailableIn: []ViewState{ViewOrganizations}, Handler: handleToggleKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"r"}, Description: "Reload", AvailableIn: []ViewState{ViewOrganizations}, Handler: handleReloadKey})

	r.RegisterKey(&KeyBinding{Keys: []string{"tab"}, Description: "Next kind", AvailableIn: []ViewState{ViewStats}, Handler: handleNextKindKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"shift+tab"}, Description: "Previous kind", AvailableIn: []ViewState{ViewStats}, Handler: handlePrevKindKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"1"}, Description: "Commits", AvailableIn: []ViewState{ViewStats}, Handler: kindKey(0), Hidden: true})
	r.RegisterKey(&KeyBinding{Keys: []string{"2"}, Description: "Pull requests", AvailableIn: []ViewState{ViewStats}, Handler: kindKey(1), Hidden: true})
	r.RegisterKey(&KeyBinding{Keys: []string{"3"}, Description: "Issues", AvailableIn: []ViewState{ViewStats}, Handler: kindKey(2), Hidden: true})
	r.RegisterKey(&KeyBinding{Keys: []string{"right", "l"}, Description: "Next page", AvailableIn: []ViewState{ViewStats}, Handler: handleNextPageKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"left", "h"}, Description: "Previous page", AvailableIn: []ViewState{ViewStats}, Handler: handlePrevPageKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"s"}, Description: "Page size", AvailableIn: []ViewState{ViewStats}, Handler: handlePageSizeKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"/"}, Description: "Search", AvailableIn: []ViewState{ViewStats}, Handler: handleSearchKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"r"}, Description: "Refresh", AvailableIn: []ViewState{ViewStats}, Handler: handleRefreshKey})

	r.RegisterKey(&KeyBinding{Keys: []string{"L"}, Description: "Logs", AvailableIn: allViews, Handler: handleLogsKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"?"}, Description: "Help", AvailableIn: allViews, Handler: handleHelpKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"q"}, Description: "Back", AvailableIn: []ViewState{ViewStats}, Handler: handleBackKey})
	r.RegisterKey(&KeyBinding{Keys: []string{"q"}, Description: "Quit", AvailableIn: []ViewState{ViewSession, ViewOrganizations}, Handler: handleQuitKey})
}

func (r *CommandRegistry) registerCommands() {
	r.RegisterCommand(CommandQuit, func(m Model, _ []string) (Model, tea.Cmd) { return handleQuitKey(m) })
	r.RegisterCommand(CommandConnect, func(m Model, _ []string) (Model, tea.Cmd) { return handleConnectKey(m) })
	r.RegisterCommand(CommandDisconnect, func(m Model, _ []string) (Model, tea.Cmd) { return handleDisconnectKey(m) })
	r.RegisterCommand(CommandToken, handleTokenCommand)
	r.RegisterCommand(CommandRefresh, func(m Model, _ []string) (Model, tea.Cmd) {
		if m.state == ViewStats {
			return handleRefreshKey(m)
		}
		return handleReloadKey(m)
	})
	r.RegisterCommand(CommandOrgs, func(m Model, _ []string) (Model, tea.Cmd) { return handleOrganizationsKey(m) })
	r.RegisterCommand(CommandLogs, func(m Model, _ []string) (Model, tea.Cmd) { return handleLogsKey(m) })
	r.RegisterCommand(CommandHelp, func(m Model, _ []string) (Model, tea.Cmd) { return handleHelpKey(m) })
}

// HandleKey runs the first binding for key available in the current view.
func (r *CommandRegistry) HandleKey(m Model, key string) (tea.Model, tea.Cmd, bool) {
	for _, binding := range r.keyBindings {
		if !binding.availableIn(m.state) {
			continue
		}
		for _, k := range binding.Keys {
			if k == key {
				newModel, cmd := binding.Handler(m)
				return newModel, cmd, true
			}
		}
	}
	return m, nil, false
}

func (r *CommandRegistry) ExecuteCommand(m Model, command Command) (tea.Model, tea.Cmd) {
	handler, ok := r.commands[command.Type]
	if !ok {
		m.statusBar.SetMessage("Unknown command. Type :help for the list.", true)
		return m, nil
	}
	return handler(m, command.Args)
}

// GetContextualShortcuts lists the visible bindings of state as "<key> desc".
func (r *CommandRegistry) GetContextualShortcuts(state ViewState) []string {
	var shortcuts []string
	for _, binding := range r.keyBindings {
		if binding.Hidden || !binding.availableIn(state) {
			continue
		}
		shortcuts = append(shortcuts, "<"+binding.Keys[0]+"> "+binding.Description)
	}
	return shortcuts
}

// Bindings returns every binding available in state, hidden ones included.
func (r *CommandRegistry) Bindings(state ViewState) []*KeyBinding {
	var out []*KeyBinding
	for _, binding := range r.keyBindings {
		if binding.availableIn(state) {
			out = append(out, binding)
		}
	}
	return out
}

func logKey(name string, m Model) {
	logger.Debug("UI: %s in %s", name, m.state)
}
