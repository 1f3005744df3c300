package statsapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/logger"
)

// Provider adapts the HTTP client to domain.StatsService.
type Provider struct {
	client *Client
}

var _ domain.StatsService = (*Provider)(nil)

func NewProvider(store domain.CredentialStore, opts Options) (*Provider, error) {
	client, err := NewClient(store, opts)
	if err != nil {
		return nil, err
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Status(ctx context.Context) (*domain.ConnectionStatus, error) {
	logger.Log("Stats: Checking connection status")
	resp, err := p.client.Status(ctx)
	if err != nil {
		logger.LogError("STATS_STATUS", "status", err)
		return nil, err
	}

	status := &domain.ConnectionStatus{Connected: resp.Connected}
	if resp.Connected {
		status.User = domain.User{
			ID:          string(resp.GitHubUserID),
			Username:    resp.Username,
			ConnectedAt: resp.ConnectedAt.Time,
		}
		logger.Log("Stats: Connected as %s", resp.Username)
	} else {
		logger.Log("Stats: Not connected")
	}
	return status, nil
}

func (p *Provider) Disconnect(ctx context.Context) error {
	logger.Log("Stats: Revoking GitHub link")
	if err := p.client.Disconnect(ctx); err != nil {
		logger.LogError("STATS_DISCONNECT", "disconnect", err)
		return err
	}
	return nil
}

func (p *Provider) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	logger.Log("Stats: Listing organizations")
	ghOrgs, err := p.client.Organizations(ctx)
	if err != nil {
		logger.LogError("STATS_LIST_ORGS", "organizations", err)
		return nil, err
	}

	orgs := make([]domain.Organization, 0, len(ghOrgs))
	for _, ghOrg := range ghOrgs {
		if ghOrg == nil {
			continue
		}
		orgs = append(orgs, convertOrganization(ghOrg))
	}

	logger.Log("Stats: Found %d organizations", len(orgs))
	return orgs, nil
}

func (p *Provider) OrganizationTotals(ctx context.Context, orgIDs []string) ([]domain.ContributorTotals, error) {
	subject := strings.Join(orgIDs, ",")
	logger.Log("Stats: Loading summary for %s", subject)
	totals, err := p.client.OrganizationTotals(ctx, orgIDs)
	if err != nil {
		logger.LogError("STATS_SUMMARY", subject, err)
		return nil, err
	}
	if totals == nil {
		totals = []domain.ContributorTotals{}
	}
	logger.Log("Stats: Summary for %s has %d contributors", subject, len(totals))
	return totals, nil
}

func (p *Provider) CommitStats(ctx context.Context, q domain.StatsQuery) (domain.ResultPage[domain.CommitStat], error) {
	return logPage(domain.EntityCommits, q, func() (domain.ResultPage[domain.CommitStat], error) {
		return p.client.CommitStats(ctx, q)
	})
}

func (p *Provider) PullRequestStats(ctx context.Context, q domain.StatsQuery) (domain.ResultPage[domain.PullRequestStat], error) {
	return logPage(domain.EntityPullRequests, q, func() (domain.ResultPage[domain.PullRequestStat], error) {
		return p.client.PullRequestStats(ctx, q)
	})
}

func (p *Provider) IssueStats(ctx context.Context, q domain.StatsQuery) (domain.ResultPage[domain.IssueStat], error) {
	return logPage(domain.EntityIssues, q, func() (domain.ResultPage[domain.IssueStat], error) {
		return p.client.IssueStats(ctx, q)
	})
}

func logPage[T any](kind domain.EntityKind, q domain.StatsQuery, fetch func() (domain.ResultPage[T], error)) (domain.ResultPage[T], error) {
	subject := fmt.Sprintf("%s %s page %d", strings.Join(q.OrgIDs, ","), kind, q.Page)
	if q.Search != "" {
		subject += fmt.Sprintf(" search %q", q.Search)
	}

	logger.Log("Stats: Loading %s", subject)
	page, err := fetch()
	if err != nil {
		logger.LogError("STATS_PAGE", subject, err)
		return page, err
	}
	logger.Log("Stats: %s returned %d of %d rows", subject, len(page.Rows), page.TotalCount)
	return page, nil
}

func convertOrganization(org *github.Organization) domain.Organization {
	return domain.Organization{
		ID:          org.GetID(),
		Login:       org.GetLogin(),
		URL:         org.GetURL(),
		Description: org.GetDescription(),
		AvatarURL:   org.GetAvatarURL(),
		ReposURL:    org.GetReposURL(),
	}
}
