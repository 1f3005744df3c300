package statsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/provider/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *memoryStore) Store(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memoryStore) Read() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != "", nil
}

func (m *memoryStore) Clear() error {
	return m.Store("")
}

func newTestProvider(t *testing.T, handler http.HandlerFunc, opts Options) (*Provider, *memoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts.BaseURL = server.URL
	store := &memoryStore{token: "tok"}
	provider, err := NewProvider(store, opts)
	require.NoError(t, err)
	return provider, store
}

func TestStatusSendsBearerAndRequestID(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(common.RequestIDHeader))
		_, _ = w.Write([]byte(`{"connected":true,"githubUserId":42,"username":"octo","connectedAt":"2024-01-02T03:04:05Z"}`))
	}, Options{})

	status, err := provider.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "42", status.User.ID)
	assert.Equal(t, "octo", status.User.Username)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), status.User.ConnectedAt.UTC())
}

func TestStatusAcceptsStringIDAndEmptyDate(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"connected":true,"githubUserId":"abc","username":"octo","connectedAt":""}`))
	}, Options{})

	status, err := provider.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", status.User.ID)
	assert.True(t, status.User.ConnectedAt.IsZero())
}

func TestNoCredentialFailsWithoutNetwork(t *testing.T) {
	var hits int32
	provider, store := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}, Options{})
	require.NoError(t, store.Clear())

	_, err := provider.ListOrganizations(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.Equal(t, ErrNotConnected.Message, common.UserMessage(err))
}

func TestCredentialIsReadPerRequest(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	provider, store := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"connected":false}`))
	}, Options{})

	_, err := provider.Status(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Store("rotated"))
	_, err = provider.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer tok", "Bearer rotated"}, seen)
}

func TestStatsQueryParameters(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pull-request", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "acme", q.Get("orgIds"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("pageSize"))
		assert.Equal(t, "foo bar", q.Get("search"))
		_, _ = w.Write([]byte(`{"data":[{"userId":"1","user":"ana","repo":"api","totalPRs":5,"mergedPRs":3,"closedPRs":1}],"totalCount":31}`))
	}, Options{})

	page, err := provider.PullRequestStats(context.Background(), domain.StatsQuery{
		OrgIDs:   []string{"acme"},
		Page:     2,
		PageSize: 10,
		Search:   "foo bar",
	})
	require.NoError(t, err)
	assert.Equal(t, 31, page.TotalCount)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, domain.PullRequestStat{UserID: "1", User: "ana", Repository: "api", Opened: 5, Merged: 3, Closed: 1}, page.Rows[0])
}

func TestEmptyPageHasNonNilRows(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"totalCount":0}`))
	}, Options{})

	page, err := provider.IssueStats(context.Background(), domain.StatsQuery{OrgIDs: []string{"acme"}, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.NotNil(t, page.Rows)
	assert.Empty(t, page.Rows)
}

func TestOrganizationTotalsPostsOrgIDs(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orgs-stats", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			OrgIDs []string `json:"orgIds"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"acme"}, body.OrgIDs)

		_, _ = w.Write([]byte(`[{"userId":"7","user":"bo","totalCommits":12,"totalPRs":4,"totalIssues":2}]`))
	}, Options{})

	totals, err := provider.OrganizationTotals(context.Background(), []string{"acme"})
	require.NoError(t, err)
	assert.Equal(t, []domain.ContributorTotals{{UserID: "7", User: "bo", TotalCommits: 12, TotalPRs: 4, TotalIssues: 2}}, totals)
}

func TestListOrganizationsConverts(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":9,"login":"acme","url":"https://api.github.com/orgs/acme","description":"Widgets","avatar_url":"https://a/9","repos_url":"https://api.github.com/orgs/acme/repos"}]`))
	}, Options{})

	orgs, err := provider.ListOrganizations(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, domain.Organization{
		ID:          9,
		Login:       "acme",
		URL:         "https://api.github.com/orgs/acme",
		Description: "Widgets",
		AvatarURL:   "https://a/9",
		ReposURL:    "https://api.github.com/orgs/acme/repos",
	}, orgs[0])
	assert.Equal(t, "https://github.com/orgs/acme", orgs[0].ProfileURL())
}

func TestUnauthorizedResponse(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"token expired"}`))
	}, Options{})

	_, err := provider.Status(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "token expired", common.UserMessage(err))
}

func TestErrorFieldShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"error":"boom"}`, "boom"},
		{"object", `{"error":{"message":"nested boom"}}`, "nested boom"},
		{"missing", `{"status":"bad"}`, ""},
		{"not json", `<html>oops</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorField([]byte(tt.body)))
		})
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits int32
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, Options{BreakerFailures: 2, BreakerCooldown: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := provider.Status(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
	}

	_, err := provider.Status(context.Background())
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits int32
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}, Options{BreakerFailures: 1, BreakerCooldown: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := provider.Status(context.Background())
		assert.NotErrorIs(t, err, ErrServiceUnavailable)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestRequestTimeout(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, Options{Timeout: 50 * time.Millisecond})

	_, err := provider.Status(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Equal(t, common.FallbackErrorMessage, common.UserMessage(err))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(&memoryStore{}, Options{BaseURL: "not a url"})
	assert.Error(t, err)
}
