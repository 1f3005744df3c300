package results

import (
	"errors"

	"github.com/johanforsgren/orgpulse/internal/domain"
	"github.com/johanforsgren/orgpulse/internal/logger"
	"github.com/johanforsgren/orgpulse/internal/provider/common"
	"github.com/johanforsgren/orgpulse/internal/provider/statsapi"
)

// Stream is an independently loading request channel.
type Stream int

const (
	StreamOrganizations Stream = iota
	StreamSummary
	StreamStats
	streamCount
)

func (s Stream) String() string {
	switch s {
	case StreamOrganizations:
		return "organizations"
	case StreamSummary:
		return "summary"
	case StreamStats:
		return "stats"
	default:
		return "unknown"
	}
}

// Ticket identifies one issued request. Only the latest ticket of a stream
// may change state.
type Ticket struct {
	Stream    Stream
	Seq       uint64
	Selection domain.QuerySelection
}

// Notice is the current user-visible error. Seq changes on every new error
// so a dismiss timer can tell whether it is still looking at the same one.
type Notice struct {
	Message string
	Seq     uint64
	// Auth is set when the credential is missing or was rejected.
	Auth bool
}

// Reconciler holds what the presentation layer renders. It is not safe for
// concurrent use; all calls come from the event loop.
type Reconciler struct {
	seq     [streamCount]uint64
	pending [streamCount]bool

	organizations []domain.Organization
	summary       []domain.ContributorTotals
	pages         map[domain.EntityKind]domain.ResultPage[domain.StatRow]

	notice   Notice
	errorSeq uint64
}

func New() *Reconciler {
	return &Reconciler{
		pages: make(map[domain.EntityKind]domain.ResultPage[domain.StatRow]),
	}
}

// Begin supersedes any outstanding request on the stream and raises its
// loading flag.
func (r *Reconciler) Begin(stream Stream, selection domain.QuerySelection) Ticket {
	r.seq[stream]++
	r.pending[stream] = true
	return Ticket{Stream: stream, Seq: r.seq[stream], Selection: selection}
}

// Cancel drops the outstanding request on the stream without issuing a new one.
func (r *Reconciler) Cancel(stream Stream) {
	r.seq[stream]++
	r.pending[stream] = false
}

func (r *Reconciler) Current(t Ticket) bool {
	return t.Stream >= 0 && t.Stream < streamCount && t.Seq == r.seq[t.Stream]
}

func (r *Reconciler) OrganizationsLoading() bool {
	return r.pending[StreamOrganizations]
}

// StatsLoading covers both the summary and the detail request.
func (r *Reconciler) StatsLoading() bool {
	return r.pending[StreamSummary] || r.pending[StreamStats]
}

func (r *Reconciler) ApplyOrganizations(t Ticket, orgs []domain.Organization, err error) bool {
	if !r.settle(t, err) {
		return false
	}
	if err == nil {
		r.organizations = orgs
	}
	return true
}

func (r *Reconciler) ApplySummary(t Ticket, totals []domain.ContributorTotals, err error) bool {
	if !r.settle(t, err) {
		return false
	}
	if err == nil {
		r.summary = totals
	}
	return true
}

func (r *Reconciler) ApplyStats(t Ticket, page domain.ResultPage[domain.StatRow], err error) bool {
	if !r.settle(t, err) {
		return false
	}
	if err == nil {
		r.pages[t.Selection.EntityKind] = page
	}
	return true
}

// settle clears the loading flag for a current ticket and records err.
// Rows already on display are left alone when err is set.
func (r *Reconciler) settle(t Ticket, err error) bool {
	if !r.Current(t) {
		logger.Debug("Results: dropped stale %s response (seq %d, current %d)", t.Stream, t.Seq, r.seq[t.Stream])
		return false
	}
	r.pending[t.Stream] = false
	if err != nil {
		r.fail(err)
	}
	return true
}

func (r *Reconciler) fail(err error) {
	r.errorSeq++
	r.notice = Notice{
		Message: common.UserMessage(err),
		Seq:     r.errorSeq,
		Auth:    IsAuthError(err),
	}
}

// IsAuthError reports whether err means the credential is missing or was
// rejected. The user has to reconnect; retrying will not help.
func IsAuthError(err error) bool {
	return errors.Is(err, statsapi.ErrNotConnected) || errors.Is(err, statsapi.ErrUnauthorized)
}

// Error returns the current notice, if any.
func (r *Reconciler) Error() (Notice, bool) {
	return r.notice, r.notice.Message != ""
}

func (r *Reconciler) DismissError() {
	r.notice = Notice{}
}

func (r *Reconciler) Organizations() []domain.Organization {
	return r.organizations
}

func (r *Reconciler) Summary() []domain.ContributorTotals {
	return r.summary
}

func (r *Reconciler) Page(kind domain.EntityKind) domain.ResultPage[domain.StatRow] {
	return r.pages[kind]
}

// PageCount is the number of pages for kind at pageSize, never less than one.
func (r *Reconciler) PageCount(kind domain.EntityKind, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	total := r.pages[kind].TotalCount
	count := (total + pageSize - 1) / pageSize
	if count < 1 {
		return 1
	}
	return count
}

// ClearPage forgets the rows of kind, which belong to an earlier page of it.
func (r *Reconciler) ClearPage(kind domain.EntityKind) {
	delete(r.pages, kind)
}

// ClearSelection forgets the summary and pages of a previous organization.
func (r *Reconciler) ClearSelection() {
	r.summary = nil
	r.pages = make(map[domain.EntityKind]domain.ResultPage[domain.StatRow])
}

// Reset invalidates every outstanding ticket and drops all data.
func (r *Reconciler) Reset() {
	for s := Stream(0); s < streamCount; s++ {
		r.Cancel(s)
	}
	r.organizations = nil
	r.ClearSelection()
	r.notice = Notice{}
}
