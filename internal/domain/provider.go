package domain

import "context"

// StatsService is the remote statistics service as seen by the controller.
type StatsService interface {
	Status(ctx context.Context) (*ConnectionStatus, error)

	Disconnect(ctx context.Context) error

	ListOrganizations(ctx context.Context) ([]Organization, error)

	OrganizationTotals(ctx context.Context, orgIDs []string) ([]ContributorTotals, error)

	CommitStats(ctx context.Context, query StatsQuery) (ResultPage[CommitStat], error)

	PullRequestStats(ctx context.Context, query StatsQuery) (ResultPage[PullRequestStat], error)

	IssueStats(ctx context.Context, query StatsQuery) (ResultPage[IssueStat], error)
}
