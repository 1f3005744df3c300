package query

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/logger"
	"github.com/johanforsgren/orgpulse/internal/results"
)

const (
	DefaultPageSize       = 10
	DefaultSearchDebounce = 800 * time.Millisecond
)

// Scheduler delivers msg after d. The default is tea.Tick.
type Scheduler func(d time.Duration, msg tea.Msg) tea.Cmd

func TickScheduler(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return msg
	})
}

type Options struct {
	PageSize       int
	SearchDebounce time.Duration
	Schedule       Scheduler
}

// Machine owns the selection and decides which request is current. Every
// method runs on the event loop; the returned commands do the I/O.
type Machine struct {
	service domain.StatsService
	results *results.Reconciler
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	selection domain.QuerySelection

	pendingSearch string
	searchSeq     uint64

	// detailDeferred is set while the summary for the selected organization
	// is outstanding. The detail request goes out once it settles.
	detailDeferred bool
}

func New(service domain.StatsService, reconciler *results.Reconciler, opts Options) *Machine {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = DefaultSearchDebounce
	}
	if opts.Schedule == nil {
		opts.Schedule = TickScheduler
	}

	m := &Machine{
		service: service,
		results: reconciler,
		opts:    opts,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.selection = m.initialSelection()
	return m
}

func (m *Machine) initialSelection() domain.QuerySelection {
	return domain.QuerySelection{
		EntityKind: domain.DefaultEntityKind,
		Page:       1,
		PageSize:   m.opts.PageSize,
	}
}

func (m *Machine) Selection() domain.QuerySelection {
	return m.selection
}

// PendingSearch is the text typed so far, committed or not.
func (m *Machine) PendingSearch() string {
	return m.pendingSearch
}

func (m *Machine) Results() *results.Reconciler {
	return m.results
}

func (m *Machine) LoadOrganizations() tea.Cmd {
	ticket := m.results.Begin(results.StreamOrganizations, m.selection)
	ctx, service := m.ctx, m.service

	return func() tea.Msg {
		orgs, err := service.ListOrganizations(ctx)
		return OrganizationsLoadedMsg{Ticket: ticket, Organizations: orgs, Err: err}
	}
}

// SetOrganization selects org, resets the page and entity kind and loads the
// organization summary. Selecting the current organization again does nothing.
func (m *Machine) SetOrganization(org string) tea.Cmd {
	if org == m.selection.Organization {
		return nil
	}

	logger.Debug("Query: organization %q -> %q", m.selection.Organization, org)
	m.selection.Organization = org
	m.selection.EntityKind = domain.DefaultEntityKind
	m.selection.Page = 1

	m.results.Cancel(results.StreamSummary)
	m.results.Cancel(results.StreamStats)
	m.results.ClearSelection()
	m.detailDeferred = false

	if org == "" {
		return nil
	}
	return m.fetchSummary()
}

func (m *Machine) SetEntityKind(kind domain.EntityKind) tea.Cmd {
	if !kind.Valid() || m.selection.Organization == "" {
		return nil
	}
	if kind == m.selection.EntityKind {
		return nil
	}

	logger.Debug("Query: entity kind %s -> %s", m.selection.EntityKind, kind)
	m.selection.EntityKind = kind
	m.selection.Page = 1
	m.results.ClearPage(kind)
	return m.fetchStats()
}

func (m *Machine) SetPage(page, pageSize int) tea.Cmd {
	if page < 1 || pageSize <= 0 {
		return nil
	}
	if page == m.selection.Page && pageSize == m.selection.PageSize {
		return nil
	}

	m.selection.Page = page
	m.selection.PageSize = pageSize
	return m.fetchStats()
}

// SetSearchText records text and schedules a settle check after the quiet
// period. Only the last text typed within the window is considered.
func (m *Machine) SetSearchText(text string) tea.Cmd {
	m.pendingSearch = text
	m.searchSeq++
	return m.opts.Schedule(m.opts.SearchDebounce, searchSettledMsg{seq: m.searchSeq, text: text})
}

// Refresh re-issues the detail request for the current selection.
func (m *Machine) Refresh() tea.Cmd {
	return m.fetchStats()
}

// Reset drops everything in flight and returns to the initial selection.
func (m *Machine) Reset() {
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.results.Reset()
	m.selection = m.initialSelection()
	m.pendingSearch = ""
	m.searchSeq++
	m.detailDeferred = false
}

// Update applies completion messages and debounce ticks. Messages for
// superseded requests are dropped without effect.
func (m *Machine) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case OrganizationsLoadedMsg:
		if !m.results.ApplyOrganizations(msg.Ticket, msg.Organizations, msg.Err) {
			return nil
		}
		return authFailed(msg.Err)

	case SummaryLoadedMsg:
		if !m.results.ApplySummary(msg.Ticket, msg.Totals, msg.Err) {
			return nil
		}
		m.detailDeferred = false
		if results.IsAuthError(msg.Err) {
			return authFailed(msg.Err)
		}
		return m.fetchStats()

	case StatsLoadedMsg:
		if !m.results.ApplyStats(msg.Ticket, msg.Page, msg.Err) {
			return nil
		}
		return authFailed(msg.Err)

	case searchSettledMsg:
		return m.settleSearch(msg)
	}

	return nil
}

func (m *Machine) settleSearch(msg searchSettledMsg) tea.Cmd {
	if msg.seq != m.searchSeq {
		return nil
	}
	if msg.text == m.selection.SearchText {
		return nil
	}

	logger.Debug("Query: search %q -> %q", m.selection.SearchText, msg.text)
	m.selection.SearchText = msg.text
	m.selection.Page = 1
	return m.fetchStats()
}

func (m *Machine) fetchSummary() tea.Cmd {
	ticket := m.results.Begin(results.StreamSummary, m.selection)
	m.detailDeferred = true
	ctx, service := m.ctx, m.service
	orgIDs := []string{m.selection.Organization}

	return func() tea.Msg {
		totals, err := service.OrganizationTotals(ctx, orgIDs)
		return SummaryLoadedMsg{Ticket: ticket, Totals: totals, Err: err}
	}
}

func (m *Machine) fetchStats() tea.Cmd {
	if m.selection.Organization == "" || m.detailDeferred {
		return nil
	}

	ticket := m.results.Begin(results.StreamStats, m.selection)
	ctx, service, selection := m.ctx, m.service, m.selection

	return func() tea.Msg {
		page, err := fetchPage(ctx, service, selection)
		return StatsLoadedMsg{Ticket: ticket, Page: page, Err: err}
	}
}

func fetchPage(ctx context.Context, service domain.StatsService, selection domain.QuerySelection) (domain.ResultPage[domain.StatRow], error) {
	q := selection.StatsQuery()

	switch selection.EntityKind {
	case domain.EntityPullRequests:
		page, err := service.PullRequestStats(ctx, q)
		return rows(page, err)
	case domain.EntityIssues:
		page, err := service.IssueStats(ctx, q)
		return rows(page, err)
	default:
		page, err := service.CommitStats(ctx, q)
		return rows(page, err)
	}
}

func rows[T domain.StatRow](page domain.ResultPage[T], err error) (domain.ResultPage[domain.StatRow], error) {
	if err != nil {
		return domain.ResultPage[domain.StatRow]{}, err
	}
	return domain.Rows(page), nil
}

func authFailed(err error) tea.Cmd {
	if !results.IsAuthError(err) {
		return nil
	}
	return func() tea.Msg {
		return AuthFailedMsg{Err: err}
	}
}
