package domain

import (
	"strconv"
	"strings"
	"time"
)

type EntityKind string

const (
	EntityCommits      EntityKind = "commits"
	EntityPullRequests EntityKind = "pull_requests"
	EntityIssues       EntityKind = "issues"
)

// DefaultEntityKind is selected whenever the organization changes.
const DefaultEntityKind = EntityCommits

// EntityKinds lists the kinds in tab order.
var EntityKinds = []EntityKind{EntityCommits, EntityPullRequests, EntityIssues}

func (k EntityKind) Label() string {
	switch k {
	case EntityCommits:
		return "Commits"
	case EntityPullRequests:
		return "Pull Requests"
	case EntityIssues:
		return "Issues"
	default:
		return string(k)
	}
}

func (k EntityKind) Valid() bool {
	switch k {
	case EntityCommits, EntityPullRequests, EntityIssues:
		return true
	}
	return false
}

type User struct {
	ID          string
	Username    string
	ConnectedAt time.Time
}

type ConnectionStatus struct {
	Connected bool
	User      User
}

// Organization is an organization the linked account can see. It is
// read-only on the client.
type Organization struct {
	ID          int64
	Login       string
	URL         string
	Description string
	AvatarURL   string
	ReposURL    string
}

// ProfileURL turns the API url into the browsable one.
func (o Organization) ProfileURL() string {
	return strings.Replace(o.URL, "api.github.com", "github.com", 1)
}

// Slug is the last path segment of the API url.
func (o Organization) Slug() string {
	if o.URL == "" {
		return o.Login
	}
	parts := strings.Split(strings.TrimRight(o.URL, "/"), "/")
	return parts[len(parts)-1]
}

// ContributorTotals is one row of the organization summary.
type ContributorTotals struct {
	UserID       string `json:"userId"`
	User         string `json:"user"`
	TotalCommits int    `json:"totalCommits"`
	TotalPRs     int    `json:"totalPRs"`
	TotalIssues  int    `json:"totalIssues"`
}

func (c ContributorTotals) Cells() []string {
	return []string{
		c.UserID,
		c.User,
		strconv.Itoa(c.TotalCommits),
		strconv.Itoa(c.TotalPRs),
		strconv.Itoa(c.TotalIssues),
	}
}

// StatRow is a single rendered line of a statistics page.
type StatRow interface {
	Cells() []string
}

type CommitStat struct {
	UserID     string    `json:"userId"`
	User       string    `json:"user"`
	Repository string    `json:"repo"`
	Commits    int       `json:"totalCommits"`
	Additions  int       `json:"additions"`
	Deletions  int       `json:"deletions"`
	LastCommit time.Time `json:"lastCommitAt"`
}

func (s CommitStat) Cells() []string {
	return []string{
		s.User,
		s.Repository,
		strconv.Itoa(s.Commits),
		strconv.Itoa(s.Additions),
		strconv.Itoa(s.Deletions),
		formatDate(s.LastCommit),
	}
}

type PullRequestStat struct {
	UserID     string `json:"userId"`
	User       string `json:"user"`
	Repository string `json:"repo"`
	Opened     int    `json:"totalPRs"`
	Merged     int    `json:"mergedPRs"`
	Closed     int    `json:"closedPRs"`
}

func (s PullRequestStat) Cells() []string {
	return []string{
		s.User,
		s.Repository,
		strconv.Itoa(s.Opened),
		strconv.Itoa(s.Merged),
		strconv.Itoa(s.Closed),
	}
}

type IssueStat struct {
	UserID     string `json:"userId"`
	User       string `json:"user"`
	Repository string `json:"repo"`
	Opened     int    `json:"totalIssues"`
	Closed     int    `json:"closedIssues"`
}

func (s IssueStat) Cells() []string {
	return []string{
		s.User,
		s.Repository,
		strconv.Itoa(s.Opened),
		strconv.Itoa(s.Closed),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// ResultPage is one page of a server-side filtered result set. TotalCount
// counts the whole filtered set, not just Rows.
type ResultPage[T any] struct {
	Rows       []T
	TotalCount int
}

// Rows converts a typed page into a page of renderable rows.
func Rows[T StatRow](p ResultPage[T]) ResultPage[StatRow] {
	rows := make([]StatRow, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = r
	}
	return ResultPage[StatRow]{Rows: rows, TotalCount: p.TotalCount}
}

// QuerySelection is what the user has picked. EntityKind only matters once
// Organization is set.
type QuerySelection struct {
	Organization string
	EntityKind   EntityKind
	Page         int
	PageSize     int
	SearchText   string
}

type StatsQuery struct {
	OrgIDs   []string
	Page     int
	PageSize int
	Search   string
}

// StatsQuery builds the request for the detail fetch.
func (s QuerySelection) StatsQuery() StatsQuery {
	return StatsQuery{
		OrgIDs:   []string{s.Organization},
		Page:     s.Page,
		PageSize: s.PageSize,
		Search:   s.SearchText,
	}
}
