package statsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"
	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/logger"
	"github.com/johanforsgren/orgpulse/internal/provider/common"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

type Options struct {
	BaseURL string
	// Timeout bounds every request, including reading the body.
	Timeout         time.Duration
	RateLimit       float64
	Burst           int
	BreakerFailures uint32
	BreakerCooldown time.Duration
	Transport       http.RoundTripper
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// storeTokenSource reads the credential on every request so a disconnect or
// a new callback token takes effect immediately.
type storeTokenSource struct {
	store domain.CredentialStore
}

func (s storeTokenSource) Token() (*oauth2.Token, error) {
	token, ok, err := s.store.Read()
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	if !ok {
		return nil, ErrNotConnected
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

func NewClient(store domain.CredentialStore, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: scheme and host are required", opts.BaseURL)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "statsapi",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return !isServerFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &oauth2.Transport{
				Source: storeTokenSource{store: store},
				Base:   common.NewLoggingTransport(opts.Transport),
			},
		},
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
	}, nil
}

// isServerFailure decides what counts against the breaker. Client-side
// problems and 4xx answers do not.
func isServerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConnected) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, query, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w", method, path, ErrServiceUnavailable)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.RequestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(req, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// flexibleID accepts a JSON string or number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

// flexibleTime tolerates empty and non-RFC3339 timestamps by leaving them zero.
type flexibleTime struct {
	time.Time
}

func (f *flexibleTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		f.Time = t
	}
	return nil
}

type StatusResponse struct {
	Connected    bool         `json:"connected"`
	GitHubUserID flexibleID   `json:"githubUserId"`
	Username     string       `json:"username"`
	ConnectedAt  flexibleTime `json:"connectedAt"`
}

type pageResponse[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"totalCount"`
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/disconnect", nil, nil, nil)
}

func (c *Client) Organizations(ctx context.Context) ([]*github.Organization, error) {
	var orgs []*github.Organization
	if err := c.do(ctx, http.MethodGet, "/organizations", nil, nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (c *Client) OrganizationTotals(ctx context.Context, orgIDs []string) ([]domain.ContributorTotals, error) {
	body := struct {
		OrgIDs []string `json:"orgIds"`
	}{OrgIDs: orgIDs}

	var totals []domain.ContributorTotals
	if err := c.do(ctx, http.MethodPost, "/orgs-stats", nil, body, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

func (c *Client) CommitStats(ctx context.Context, q domain.StatsQuery) (domain.ResultPage[domain.CommitStat], error) {
	return fetchPage[domain.CommitStat](ctx, c, "/commit", q)
}

func (c *Client) PullRequestStats(ctx context.Context, q domain.StatsQuery) (domain.ResultPage[domain.PullRequestStat], error) {
	return fetchPage[domain.PullRequestStat](ctx, c, "/pull-request", q)
}

func (c *Client) IssueStats(ctx context.Context, q domain.StatsQuery) (domain.ResultPage[domain.IssueStat], error) {
	return fetchPage[domain.IssueStat](ctx, c, "/issue", q)
}

func fetchPage[T any](ctx context.Context, c *Client, path string, q domain.StatsQuery) (domain.ResultPage[T], error) {
	var resp pageResponse[T]
	if err := c.do(ctx, http.MethodGet, path, statsValues(q), nil, &resp); err != nil {
		return domain.ResultPage[T]{}, err
	}
	if resp.Data == nil {
		resp.Data = []T{}
	}
	return domain.ResultPage[T]{Rows: resp.Data, TotalCount: resp.TotalCount}, nil
}

func statsValues(q domain.StatsQuery) url.Values {
	values := url.Values{}
	values.Set("orgIds", strings.Join(q.OrgIDs, ","))
	values.Set("page", strconv.Itoa(q.Page))
	values.Set("pageSize", strconv.Itoa(q.PageSize))
	values.Set("search", q.Search)
	return values
}
