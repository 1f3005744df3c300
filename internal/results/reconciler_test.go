package results

import (
	"errors"
	"fmt"
	"testing"

	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/provider/common"
	"github.com/johanforsgren/orgpulse/internal/provider/statsapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitsPage(total int, users ...string) domain.ResultPage[domain.StatRow] {
	rows := make([]domain.CommitStat, len(users))
	for i, u := range users {
		rows[i] = domain.CommitStat{User: u, Commits: i + 1}
	}
	return domain.Rows(domain.ResultPage[domain.CommitStat]{Rows: rows, TotalCount: total})
}

func selection(org string) domain.QuerySelection {
	return domain.QuerySelection{Organization: org, EntityKind: domain.EntityCommits, Page: 1, PageSize: 10}
}

func TestBeginRaisesLoadingFlags(t *testing.T) {
	r := New()
	assert.False(t, r.OrganizationsLoading())
	assert.False(t, r.StatsLoading())

	orgs := r.Begin(StreamOrganizations, domain.QuerySelection{})
	assert.True(t, r.OrganizationsLoading())
	assert.False(t, r.StatsLoading())

	summary := r.Begin(StreamSummary, selection("acme"))
	assert.True(t, r.StatsLoading())

	require.True(t, r.ApplyOrganizations(orgs, []domain.Organization{{Login: "acme"}}, nil))
	assert.False(t, r.OrganizationsLoading())
	assert.True(t, r.StatsLoading())

	require.True(t, r.ApplySummary(summary, nil, nil))
	assert.False(t, r.StatsLoading())
}

func TestStaleTicketIsDropped(t *testing.T) {
	r := New()

	first := r.Begin(StreamStats, selection("a"))
	second := r.Begin(StreamStats, selection("b"))

	require.True(t, r.ApplyStats(second, commitsPage(1, "bob"), nil))
	assert.False(t, r.ApplyStats(first, commitsPage(1, "alice"), nil))

	page := r.Page(domain.EntityCommits)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "bob", page.Rows[0].(domain.CommitStat).User)
	assert.False(t, r.StatsLoading())
}

func TestStaleErrorIsSilent(t *testing.T) {
	r := New()

	first := r.Begin(StreamStats, selection("a"))
	r.Begin(StreamStats, selection("b"))

	assert.False(t, r.ApplyStats(first, domain.ResultPage[domain.StatRow]{}, errors.New("boom")))
	_, ok := r.Error()
	assert.False(t, ok)
	assert.True(t, r.StatsLoading())
}

func TestErrorKeepsLastGoodRows(t *testing.T) {
	r := New()

	ok := r.Begin(StreamStats, selection("acme"))
	require.True(t, r.ApplyStats(ok, commitsPage(2, "ana", "bo"), nil))

	failed := r.Begin(StreamStats, selection("acme"))
	require.True(t, r.ApplyStats(failed, domain.ResultPage[domain.StatRow]{}, &statsapi.APIError{StatusCode: 500, Message: "database down"}))

	assert.False(t, r.StatsLoading())
	assert.Len(t, r.Page(domain.EntityCommits).Rows, 2)

	notice, present := r.Error()
	require.True(t, present)
	assert.Equal(t, "database down", notice.Message)
	assert.False(t, notice.Auth)
}

func TestErrorFallbackAndSequence(t *testing.T) {
	r := New()

	first := r.Begin(StreamOrganizations, domain.QuerySelection{})
	r.ApplyOrganizations(first, nil, fmt.Errorf("dial: %w", errors.New("connection refused")))
	notice, _ := r.Error()
	assert.Equal(t, common.FallbackErrorMessage, notice.Message)

	second := r.Begin(StreamOrganizations, domain.QuerySelection{})
	r.ApplyOrganizations(second, nil, errors.New("again"))
	next, _ := r.Error()
	assert.Greater(t, next.Seq, notice.Seq)

	r.DismissError()
	_, present := r.Error()
	assert.False(t, present)
}

func TestAuthErrorsAreFlagged(t *testing.T) {
	tests := []struct {
		name string
		err  error
		auth bool
	}{
		{"not connected", fmt.Errorf("GET /commit: %w", statsapi.ErrNotConnected), true},
		{"unauthorized", &statsapi.APIError{StatusCode: 401}, true},
		{"forbidden", &statsapi.APIError{StatusCode: 403}, true},
		{"server", &statsapi.APIError{StatusCode: 502}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			ticket := r.Begin(StreamStats, selection("acme"))
			r.ApplyStats(ticket, domain.ResultPage[domain.StatRow]{}, tt.err)
			notice, ok := r.Error()
			require.True(t, ok)
			assert.Equal(t, tt.auth, notice.Auth)
		})
	}
}

func TestCancelDropsInFlight(t *testing.T) {
	r := New()
	ticket := r.Begin(StreamStats, selection("acme"))
	r.Cancel(StreamStats)

	assert.False(t, r.StatsLoading())
	assert.False(t, r.ApplyStats(ticket, commitsPage(1, "ana"), nil))
	assert.Empty(t, r.Page(domain.EntityCommits).Rows)
}

func TestPageCount(t *testing.T) {
	r := New()
	ticket := r.Begin(StreamStats, selection("acme"))
	r.ApplyStats(ticket, commitsPage(95, "ana"), nil)

	assert.Equal(t, 10, r.PageCount(domain.EntityCommits, 10))
	assert.Equal(t, 1, r.PageCount(domain.EntityCommits, 100))
	assert.Equal(t, 1, r.PageCount(domain.EntityIssues, 10))
	assert.Equal(t, 1, r.PageCount(domain.EntityCommits, 0))
}

func TestPagesAreKeptPerKind(t *testing.T) {
	r := New()

	commits := r.Begin(StreamStats, selection("acme"))
	r.ApplyStats(commits, commitsPage(1, "ana"), nil)

	sel := selection("acme")
	sel.EntityKind = domain.EntityIssues
	issues := r.Begin(StreamStats, sel)
	r.ApplyStats(issues, domain.Rows(domain.ResultPage[domain.IssueStat]{
		Rows:       []domain.IssueStat{{User: "bo", Opened: 3}},
		TotalCount: 1,
	}), nil)

	assert.Len(t, r.Page(domain.EntityCommits).Rows, 1)
	assert.Len(t, r.Page(domain.EntityIssues).Rows, 1)
}

func TestResetInvalidatesEverything(t *testing.T) {
	r := New()

	orgs := r.Begin(StreamOrganizations, domain.QuerySelection{})
	r.ApplyOrganizations(orgs, []domain.Organization{{Login: "acme"}}, nil)
	stats := r.Begin(StreamStats, selection("acme"))
	summary := r.Begin(StreamSummary, selection("acme"))

	r.Reset()

	assert.False(t, r.StatsLoading())
	assert.Empty(t, r.Organizations())
	assert.False(t, r.ApplyStats(stats, commitsPage(1, "ana"), nil))
	assert.False(t, r.ApplySummary(summary, nil, statsapi.ErrNotConnected))
	_, present := r.Error()
	assert.False(t, present)
}
