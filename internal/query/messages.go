package query

import (
	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/results"
)

type OrganizationsLoadedMsg struct {
	Ticket        results.Ticket
	Organizations []domain.Organization
	Err           error
}

type SummaryLoadedMsg struct {
	Ticket results.Ticket
	Totals []domain.ContributorTotals
	Err    error
}

type StatsLoadedMsg struct {
	Ticket results.Ticket
	Page   domain.ResultPage[domain.StatRow]
	Err    error
}

// AuthFailedMsg is emitted when a current response says the credential is
// missing or rejected.
type AuthFailedMsg struct {
	Err error
}

type searchSettledMsg struct {
	seq  uint64
	text string
}
