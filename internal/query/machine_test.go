package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/provider/statsapi"
	"github.com/johanforsgren/orgpulse/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsCall struct {
	kind  domain.EntityKind
	query domain.StatsQuery
}

type fakeService struct {
	mu           sync.Mutex
	total        int
	summaryCalls [][]string
	statsCalls   []statsCall
	summaryErr   error
	statsErr     error
}

func newFakeService() *fakeService {
	return &fakeService{total: 95}
}

func (f *fakeService) Status(context.Context) (*domain.ConnectionStatus, error) {
	return &domain.ConnectionStatus{Connected: true}, nil
}

func (f *fakeService) Disconnect(context.Context) error { return nil }

func (f *fakeService) ListOrganizations(context.Context) ([]domain.Organization, error) {
	return []domain.Organization{{ID: 1, Login: "acme"}, {ID: 2, Login: "globex"}}, nil
}

func (f *fakeService) OrganizationTotals(_ context.Context, orgIDs []string) ([]domain.ContributorTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls = append(f.summaryCalls, orgIDs)
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return []domain.ContributorTotals{{User: orgIDs[0] + "-lead", TotalCommits: 10}}, nil
}

func (f *fakeService) CommitStats(_ context.Context, q domain.StatsQuery) (domain.ResultPage[domain.CommitStat], error) {
	if err := f.record(domain.EntityCommits, q); err != nil {
		return domain.ResultPage[domain.CommitStat]{}, err
	}
	rows := make([]domain.CommitStat, f.rowCount(q))
	for i := range rows {
		rows[i] = domain.CommitStat{User: fmt.Sprintf("%s-%d", q.OrgIDs[0], i), Commits: i}
	}
	return domain.ResultPage[domain.CommitStat]{Rows: rows, TotalCount: f.total}, nil
}

func (f *fakeService) PullRequestStats(_ context.Context, q domain.StatsQuery) (domain.ResultPage[domain.PullRequestStat], error) {
	if err := f.record(domain.EntityPullRequests, q); err != nil {
		return domain.ResultPage[domain.PullRequestStat]{}, err
	}
	rows := make([]domain.PullRequestStat, f.rowCount(q))
	return domain.ResultPage[domain.PullRequestStat]{Rows: rows, TotalCount: f.total}, nil
}

func (f *fakeService) IssueStats(_ context.Context, q domain.StatsQuery) (domain.ResultPage[domain.IssueStat], error) {
	if err := f.record(domain.EntityIssues, q); err != nil {
		return domain.ResultPage[domain.IssueStat]{}, err
	}
	rows := make([]domain.IssueStat, f.rowCount(q))
	return domain.ResultPage[domain.IssueStat]{Rows: rows, TotalCount: f.total}, nil
}

func (f *fakeService) record(kind domain.EntityKind, q domain.StatsQuery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls = append(f.statsCalls, statsCall{kind: kind, query: q})
	return f.statsErr
}

func (f *fakeService) rowCount(q domain.StatsQuery) int {
	remaining := f.total - (q.Page-1)*q.PageSize
	if remaining < 0 {
		return 0
	}
	if remaining > q.PageSize {
		return q.PageSize
	}
	return remaining
}

func (f *fakeService) calls() []statsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statsCall(nil), f.statsCalls...)
}

// fakeClock collects scheduled messages instead of sleeping.
type fakeClock struct {
	now   time.Duration
	queue []scheduled
}

type scheduled struct {
	at  time.Duration
	msg tea.Msg
}

func (c *fakeClock) schedule(d time.Duration, msg tea.Msg) tea.Cmd {
	c.queue = append(c.queue, scheduled{at: c.now + d, msg: msg})
	return nil
}

// advance moves the clock to t and feeds every due message to the machine,
// returning the commands they produced.
func (c *fakeClock) advance(m *Machine, t time.Duration) []tea.Cmd {
	c.now = t
	var cmds []tea.Cmd
	var later []scheduled
	for _, s := range c.queue {
		if s.at <= t {
			if cmd := m.Update(s.msg); cmd != nil {
				cmds = append(cmds, cmd)
			}
			continue
		}
		later = append(later, s)
	}
	c.queue = later
	return cmds
}

func newMachine(service domain.StatsService) (*Machine, *fakeClock) {
	clock := &fakeClock{}
	m := New(service, results.New(), Options{PageSize: 10, Schedule: clock.schedule})
	return m, clock
}

// drive runs cmd and every follow-up command to completion.
func drive(m *Machine, cmd tea.Cmd) []tea.Msg {
	var seen []tea.Msg
	for cmd != nil {
		msg := cmd()
		seen = append(seen, msg)
		cmd = m.Update(msg)
	}
	return seen
}

func selectOrganization(t *testing.T, m *Machine, org string) {
	t.Helper()
	cmd := m.SetOrganization(org)
	require.NotNil(t, cmd)
	drive(m, cmd)
}

func TestSetOrganizationIsIdempotent(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)

	first := m.SetOrganization("acme")
	second := m.SetOrganization("acme")
	require.NotNil(t, first)
	assert.Nil(t, second)

	drive(m, first)
	assert.Len(t, service.summaryCalls, 1)
	assert.Len(t, service.calls(), 1)
}

func TestSetOrganizationResetsPageAndKind(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)

	selectOrganization(t, m, "acme")
	drive(m, m.SetEntityKind(domain.EntityIssues))
	drive(m, m.SetPage(3, 10))
	require.Equal(t, 3, m.Selection().Page)

	cmd := m.SetOrganization("globex")
	sel := m.Selection()
	assert.Equal(t, "globex", sel.Organization)
	assert.Equal(t, domain.EntityCommits, sel.EntityKind)
	assert.Equal(t, 1, sel.Page)
	assert.Empty(t, m.Results().Page(domain.EntityIssues).Rows)

	drive(m, cmd)
	calls := service.calls()
	last := calls[len(calls)-1]
	assert.Equal(t, domain.EntityCommits, last.kind)
	assert.Equal(t, []string{"globex"}, last.query.OrgIDs)
	assert.Equal(t, 1, last.query.Page)
}

func TestEntityKindRoutesToOneFetcher(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)
	selectOrganization(t, m, "acme")

	drive(m, m.SetEntityKind(domain.EntityPullRequests))
	drive(m, m.SetEntityKind(domain.EntityIssues))

	calls := service.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, domain.EntityCommits, calls[0].kind)
	assert.Equal(t, domain.EntityPullRequests, calls[1].kind)
	assert.Equal(t, domain.EntityIssues, calls[2].kind)
	assert.Len(t, m.Results().Page(domain.EntityIssues).Rows, 10)
}

func TestGuardsSkipRequests(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)

	assert.Nil(t, m.SetEntityKind(domain.EntityIssues))
	assert.Nil(t, m.SetPage(2, 10))
	assert.Nil(t, m.Refresh())
	assert.Equal(t, domain.EntityCommits, m.Selection().EntityKind)

	selectOrganization(t, m, "acme")
	assert.Nil(t, m.SetEntityKind("bogus"))
	assert.Nil(t, m.SetEntityKind(domain.EntityCommits))
	assert.Nil(t, m.SetPage(0, 10))
	assert.Nil(t, m.SetPage(1, 0))
	assert.Nil(t, m.SetPage(1, 10))
	assert.Len(t, service.calls(), 1)
}

func TestSearchDebounce(t *testing.T) {
	service := newFakeService()
	m, clock := newMachine(service)
	selectOrganization(t, m, "acme")
	before := len(service.calls())

	type keystroke struct {
		at   time.Duration
		text string
	}
	for _, k := range []keystroke{
		{0, "f"},
		{200 * time.Millisecond, "fo"},
		{400 * time.Millisecond, "foox"},
		{900 * time.Millisecond, "foo"},
	} {
		for _, cmd := range clock.advance(m, k.at) {
			drive(m, cmd)
		}
		m.SetSearchText(k.text)
	}

	assert.Empty(t, clock.advance(m, 1699*time.Millisecond))
	assert.Len(t, service.calls(), before)

	cmds := clock.advance(m, 1700*time.Millisecond)
	require.Len(t, cmds, 1)
	assert.GreaterOrEqual(t, clock.now, 1200*time.Millisecond)
	drive(m, cmds[0])

	calls := service.calls()
	require.Len(t, calls, before+1)
	assert.Equal(t, "foo", calls[len(calls)-1].query.Search)
	assert.Equal(t, "foo", m.Selection().SearchText)
}

func TestSearchDeduplicatesAndResetsPage(t *testing.T) {
	service := newFakeService()
	m, clock := newMachine(service)
	selectOrganization(t, m, "acme")
	drive(m, m.SetPage(4, 10))

	m.SetSearchText("foo")
	for _, cmd := range clock.advance(m, time.Second) {
		drive(m, cmd)
	}
	assert.Equal(t, 1, m.Selection().Page)
	count := len(service.calls())

	m.SetSearchText("foob")
	m.SetSearchText("foo")
	assert.Empty(t, clock.advance(m, 2*time.Second))
	assert.Len(t, service.calls(), count)
	assert.Equal(t, "foo", m.PendingSearch())
}

func TestStaleResponseIsDropped(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)

	// org A: summary resolves, detail stays in flight
	summaryA := m.SetOrganization("a")
	detailA := m.Update(summaryA())
	require.NotNil(t, detailA)

	// org B resolves completely first
	selectOrganization(t, m, "b")

	assert.Nil(t, m.Update(detailA()))

	page := m.Results().Page(domain.EntityCommits)
	require.NotEmpty(t, page.Rows)
	assert.Equal(t, "b-0", page.Rows[0].(domain.CommitStat).User)
	assert.Equal(t, "b-lead", m.Results().Summary()[0].User)
	assert.False(t, m.Results().StatsLoading())
}

func TestPaginationBounds(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)
	selectOrganization(t, m, "acme")

	drive(m, m.SetPage(10, 10))
	page := m.Results().Page(domain.EntityCommits)
	assert.NotEmpty(t, page.Rows)
	assert.LessOrEqual(t, len(page.Rows), 10)
	assert.Equal(t, 95, page.TotalCount)
	assert.Equal(t, 10, m.Results().PageCount(domain.EntityCommits, 10))

	drive(m, m.SetPage(11, 10))
	page = m.Results().Page(domain.EntityCommits)
	assert.Empty(t, page.Rows)
	_, hasErr := m.Results().Error()
	assert.False(t, hasErr)
}

func TestDetailWaitsForSummary(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)

	summary := m.SetOrganization("acme")
	assert.True(t, m.Results().StatsLoading())

	assert.Nil(t, m.SetEntityKind(domain.EntityIssues))
	assert.Nil(t, m.SetPage(2, 10))
	assert.Empty(t, service.calls())
	assert.True(t, m.Results().StatsLoading())

	detail := m.Update(summary())
	require.NotNil(t, detail)
	assert.True(t, m.Results().StatsLoading())
	drive(m, detail)

	calls := service.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.EntityIssues, calls[0].kind)
	assert.Equal(t, 2, calls[0].query.Page)
	assert.False(t, m.Results().StatsLoading())
}

func TestSummaryFailureStillLoadsDetail(t *testing.T) {
	service := newFakeService()
	service.summaryErr = &statsapi.APIError{StatusCode: 500, Message: "summary broke"}
	m, _ := newMachine(service)

	selectOrganization(t, m, "acme")

	assert.Len(t, service.calls(), 1)
	notice, ok := m.Results().Error()
	require.True(t, ok)
	assert.Equal(t, "summary broke", notice.Message)
	assert.NotEmpty(t, m.Results().Page(domain.EntityCommits).Rows)
}

func TestErrorKeepsRows(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)
	selectOrganization(t, m, "acme")

	service.statsErr = errors.New("connection reset")
	drive(m, m.SetPage(2, 10))

	assert.Len(t, m.Results().Page(domain.EntityCommits).Rows, 10)
	assert.False(t, m.Results().StatsLoading())
	_, ok := m.Results().Error()
	assert.True(t, ok)
}

func TestKindSwitchDropsOldPageOfThatKind(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)
	selectOrganization(t, m, "acme")

	drive(m, m.SetPage(3, 10))
	require.Len(t, m.Results().Page(domain.EntityCommits).Rows, 10)

	drive(m, m.SetEntityKind(domain.EntityIssues))
	service.statsErr = errors.New("connection reset")
	drive(m, m.SetEntityKind(domain.EntityCommits))

	assert.Equal(t, 1, m.Selection().Page)
	assert.Empty(t, m.Results().Page(domain.EntityCommits).Rows)
	assert.Equal(t, 1, m.Results().PageCount(domain.EntityCommits, 10))
	_, ok := m.Results().Error()
	assert.True(t, ok)
}

func TestAuthFailureIsReported(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)
	selectOrganization(t, m, "acme")

	service.statsErr = &statsapi.APIError{StatusCode: 401}
	msgs := drive(m, m.SetPage(2, 10))

	require.Len(t, msgs, 2)
	authMsg, ok := msgs[1].(AuthFailedMsg)
	require.True(t, ok)
	assert.ErrorIs(t, authMsg.Err, statsapi.ErrUnauthorized)
}

func TestResponseAfterResetIsIgnored(t *testing.T) {
	service := newFakeService()
	m, _ := newMachine(service)
	selectOrganization(t, m, "acme")

	service.statsErr = fmt.Errorf("GET /commit: %w", statsapi.ErrNotConnected)
	inflight := m.SetPage(2, 10)
	require.NotNil(t, inflight)

	m.Reset()
	assert.Nil(t, m.Update(inflight()))

	_, ok := m.Results().Error()
	assert.False(t, ok)
	assert.Equal(t, "", m.Selection().Organization)
	assert.False(t, m.Results().StatsLoading())
}

func TestLoadOrganizations(t *testing.T) {
	m, _ := newMachine(newFakeService())

	cmd := m.LoadOrganizations()
	assert.True(t, m.Results().OrganizationsLoading())
	drive(m, cmd)

	assert.False(t, m.Results().OrganizationsLoading())
	assert.Len(t, m.Results().Organizations(), 2)
}
