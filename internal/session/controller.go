package session

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/logger"
	"github.com/johanforsgren/orgpulse/internal/provider/common"
	"github.com/johanforsgren/orgpulse/internal/provider/statsapi"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusConnected
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// State is the session as last computed. User is only set when Connected.
type State struct {
	Status Status
	User   *domain.User
	// Err is the last user-visible failure, cleared by the next transition.
	Err string
}

type StatusCheckedMsg struct {
	seq    uint64
	Status *domain.ConnectionStatus
	Err    error
}

type RevokedMsg struct {
	Err error
}

type OpenedMsg struct {
	URL string
	Err error
}

// ChangedMsg follows every state change.
type ChangedMsg struct {
	Previous Status
	State    State
}

type Controller struct {
	store   domain.CredentialStore
	service domain.StatsService
	auth    Authorizer
	open    Opener

	state    State
	checkSeq uint64
	revoking bool

	// credentialSeq counts stores; revokedSeq is its value when the pending
	// revoke started.
	credentialSeq uint64
	revokedSeq    uint64
}

func NewController(store domain.CredentialStore, service domain.StatsService, auth Authorizer, open Opener) *Controller {
	if open == nil {
		open = OpenBrowser
	}
	return &Controller{
		store:   store,
		service: service,
		auth:    auth,
		open:    open,
	}
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Connected() bool {
	return c.state.Status == StatusConnected
}

func (c *Controller) Revoking() bool {
	return c.revoking
}

func (c *Controller) DismissError() {
	c.state.Err = ""
}

// Init stores callbackToken if one was delivered, then either checks the
// status of the stored credential or settles on Disconnected without any
// network call.
func (c *Controller) Init(callbackToken string) tea.Cmd {
	if callbackToken != "" {
		if err := c.store.Store(callbackToken); err != nil {
			logger.LogError("SESSION_STORE", "callback token", err)
			return c.transition(StatusDisconnected, nil, common.UserMessage(err))
		}
		c.credentialSeq++
		logger.Log("Session: Stored credential from callback")
	}

	_, ok, err := c.store.Read()
	if err != nil {
		logger.LogError("SESSION_READ", "credential", err)
		return c.transition(StatusDisconnected, nil, common.UserMessage(err))
	}
	if !ok {
		logger.Log("Session: No stored credential")
		return c.transition(StatusDisconnected, nil, "")
	}

	return c.checkStatus()
}

// HandleCallback stores a token delivered after startup and re-checks the
// status. Any status check already in flight is superseded.
func (c *Controller) HandleCallback(token string) tea.Cmd {
	if token == "" {
		return nil
	}
	if err := c.store.Store(token); err != nil {
		logger.LogError("SESSION_STORE", "callback token", err)
		return c.fail(err)
	}
	c.credentialSeq++
	logger.Log("Session: Stored credential from callback")
	return c.checkStatus()
}

// Connect sends the user to the authorization page. The session itself does
// not change until a token comes back.
func (c *Controller) Connect() tea.Cmd {
	target, err := c.auth.URL()
	if err != nil {
		logger.LogError("SESSION_CONNECT", "authorize url", err)
		return c.fail(err)
	}

	open := c.open
	return func() tea.Msg {
		logger.Log("Session: Opening authorization page")
		return OpenedMsg{URL: target, Err: open(target)}
	}
}

// Disconnect revokes the link. It does nothing unless Connected with no
// revoke already outstanding.
func (c *Controller) Disconnect() tea.Cmd {
	if c.state.Status != StatusConnected || c.revoking {
		return nil
	}
	c.revoking = true
	c.revokedSeq = c.credentialSeq

	service := c.service
	return func() tea.Msg {
		return RevokedMsg{Err: service.Disconnect(context.Background())}
	}
}

// Expire drops a connected session whose credential the service rejected.
// The credential stays stored until an explicit disconnect.
func (c *Controller) Expire(err error) tea.Cmd {
	if c.state.Status != StatusConnected {
		return nil
	}
	c.checkSeq++
	logger.LogError("SESSION_EXPIRED", c.username(), err)
	return c.transition(StatusDisconnected, nil, common.UserMessage(err))
}

func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case StatusCheckedMsg:
		if msg.seq != c.checkSeq {
			return nil
		}
		if msg.Err != nil {
			return c.transition(StatusDisconnected, nil, statusErrorMessage(msg.Err))
		}
		if msg.Status == nil || !msg.Status.Connected {
			logger.Log("Session: Service reports no GitHub link")
			return c.transition(StatusDisconnected, nil, "")
		}
		user := msg.Status.User
		logger.Log("Session: Connected as %s", user.Username)
		return c.transition(StatusConnected, &user, "")

	case RevokedMsg:
		c.revoking = false
		if msg.Err != nil {
			return c.fail(msg.Err)
		}
		if c.revokedSeq != c.credentialSeq {
			logger.Log("Session: Revoke finished after a new credential arrived, keeping it")
			return c.transition(c.state.Status, c.state.User, c.state.Err)
		}
		if err := c.store.Clear(); err != nil {
			logger.LogError("SESSION_CLEAR", "credential", err)
			return c.transition(StatusDisconnected, nil, common.UserMessage(err))
		}
		c.checkSeq++
		logger.Log("Session: Disconnected")
		return c.transition(StatusDisconnected, nil, "")

	case OpenedMsg:
		if msg.Err != nil {
			logger.LogError("SESSION_CONNECT", msg.URL, msg.Err)
			return c.fail(&common.Notice{
				Text:    fmt.Sprintf("open %s: %v", msg.URL, msg.Err),
				Message: "Could not open a browser. Visit " + msg.URL,
			})
		}
	}

	return nil
}

func (c *Controller) checkStatus() tea.Cmd {
	c.checkSeq++
	seq := c.checkSeq
	service := c.service

	return func() tea.Msg {
		status, err := service.Status(context.Background())
		return StatusCheckedMsg{seq: seq, Status: status, Err: err}
	}
}

func (c *Controller) transition(status Status, user *domain.User, errText string) tea.Cmd {
	previous := c.state.Status
	c.state = State{Status: status, User: user, Err: errText}
	state := c.state

	return func() tea.Msg {
		return ChangedMsg{Previous: previous, State: state}
	}
}

// fail surfaces err without changing the status.
func (c *Controller) fail(err error) tea.Cmd {
	return c.transition(c.state.Status, c.state.User, common.UserMessage(err))
}

func (c *Controller) username() string {
	if c.state.User == nil {
		return "session"
	}
	return c.state.User.Username
}

// statusErrorMessage formats a failed status check the way the dashboard
// shows it: the HTTP status code and the server's message.
func statusErrorMessage(err error) string {
	var apiErr *statsapi.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Error Code: %d\nMessage: %s", apiErr.StatusCode, common.UserMessage(err))
	}
	return common.UserMessage(err)
}
