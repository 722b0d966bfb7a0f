package attendance

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

// Vote is a teacher's attendance submission for a student on a day.
type Vote struct {
	TenantID  string
	StudentID string
	TeacherID string
	Date      Date
	Status    Status
}

// Resolver turns independent teacher reports into pending or confirmed statuses.
// It holds no state: every decision is re-derived from the Repository and the RosterOracle.
type Resolver struct {
	repo   Repository
	roster RosterOracle
	logger core.Logger
}

func NewResolver(repo Repository, roster RosterOracle, logger core.Logger) *Resolver {
	return &Resolver{repo: repo, roster: roster, logger: logger}
}

func (r *Resolver) isCoTeaching(ctx context.Context, tenantID, studentID string) bool {
	coTeaching, err := r.roster.IsCoTeaching(ctx, tenantID, studentID)
	if err != nil {
		r.logger.Warn(
			fmt.Sprintf("roster lookup failed for student %q, using single-teacher mode", studentID),
			errors.Wrap(err, "checking co-teaching"),
		)
		return false
	}
	return coTeaching
}

// coTeachers returns the teachers assigned to the student, or nil in single-teacher mode.
func (r *Resolver) coTeachers(ctx context.Context, tenantID, studentID string) []string {
	if !r.isCoTeaching(ctx, tenantID, studentID) {
		return nil
	}
	teachers, err := r.roster.AssignedTeachers(ctx, tenantID, studentID)
	if err != nil {
		r.logger.Warn(
			fmt.Sprintf("roster lookup failed for student %q, using single-teacher mode", studentID),
			errors.Wrap(err, "listing assigned teachers"),
		)
		return nil
	}
	if len(teachers) < 2 {
		return nil
	}
	return teachers
}

// DetermineInitialStatus returns the status a first submission starts with.
// Co-taught students start PENDING_*; others keep the requested status.
func (r *Resolver) DetermineInitialStatus(ctx context.Context, tenantID, studentID string, requested Status) Status {
	if !r.isCoTeaching(ctx, tenantID, studentID) {
		return requested
	}
	switch requested {
	case StatusPresent:
		return StatusPendingPresent
	case StatusAbsent:
		return StatusPendingAbsent
	default:
		return requested
	}
}

// Reconcile computes the status to store for v given every other teacher's current report.
// The caller's own stored report, if any, is replaced by v.
func (r *Resolver) Reconcile(ctx context.Context, v Vote) (Status, error) {
	teachers := r.coTeachers(ctx, v.TenantID, v.StudentID)
	if teachers == nil {
		return v.Status, nil
	}

	recs, err := r.repo.QueryRecords(ctx, QueryFilter{TenantID: v.TenantID, StudentID: v.StudentID, Date: &v.Date})
	if err != nil {
		return StatusInvalid, errors.Wrap(err, "listing sibling records")
	}
	return tally(teachers, recs, v.TeacherID, v.Status), nil
}

// tally applies the consensus rule over the assigned teachers' votes.
// While an assigned teacher has not voted the result is the pending form of the caller's vote.
// Once all have voted, unanimity confirms; disagreement keeps the caller's vote pending.
func tally(assigned []string, recs []Record, teacherID string, status Status) Status {
	vote := status.Normalize()

	votes := make(map[string]Status, len(recs)+1)
	for _, rec := range recs {
		votes[rec.TeacherID] = rec.Status.Normalize()
	}
	votes[teacherID] = vote

	unanimous := true
	for _, t := range assigned {
		v, voted := votes[t]
		if !voted {
			return vote.Pending()
		}
		if v != vote {
			unanimous = false
		}
	}
	if unanimous {
		return vote.Confirmed()
	}
	return vote.Pending()
}

// HasConsensus reports whether any teacher's record for the student on date is confirmed.
func (r *Resolver) HasConsensus(ctx context.Context, tenantID, studentID string, date Date) (bool, error) {
	recs, err := r.repo.QueryRecords(ctx, QueryFilter{TenantID: tenantID, StudentID: studentID, Date: &date})
	if err != nil {
		return false, errors.Wrap(err, "listing records")
	}
	return hasConfirmed(recs), nil
}

func hasConfirmed(recs []Record) bool {
	for _, rec := range recs {
		if rec.Status.IsConfirmed() {
			return true
		}
	}
	return false
}

// View builds the ConsensusView of a student on date.
func (r *Resolver) View(ctx context.Context, tenantID, studentID string, date Date) (ConsensusView, error) {
	recs, err := r.repo.QueryRecords(
		ctx,
		QueryFilter{TenantID: tenantID, StudentID: studentID, Date: &date},
		core.DBOrdering{Field: "updated_at", Ascending: true},
	)
	if err != nil {
		return ConsensusView{}, errors.Wrap(err, "listing records")
	}

	view := ConsensusView{
		StudentID:        studentID,
		Date:             date,
		Records:          recs,
		AssignedTeachers: []string{},
		HasConsensus:     hasConfirmed(recs),
		Effective:        effectiveStatus(recs),
	}
	if teachers := r.coTeachers(ctx, tenantID, studentID); teachers != nil {
		view.CoTeaching = true
		view.AssignedTeachers = teachers
		sort.Strings(view.AssignedTeachers)

		voted := make(map[string]bool, len(recs))
		for _, rec := range recs {
			voted[rec.TeacherID] = true
		}
		for _, t := range teachers {
			if voted[t] {
				view.Turnout++
			}
		}
	} else {
		view.Turnout = len(recs)
	}
	return view, nil
}

// effectiveStatus is the latest confirmed status. Without one, it is the latest reported status
// when every record carries the same vote, and nil when the records disagree.
// recs must be ordered by UpdatedAt ascending.
func effectiveStatus(recs []Record) *Status {
	var latest, latestConfirmed *Status
	agree := true
	for i := range recs {
		s := recs[i].Status
		if s.IsConfirmed() {
			latestConfirmed = &s
		}
		if latest != nil && latest.Normalize() != s.Normalize() {
			agree = false
		}
		latest = &s
	}
	switch {
	case latestConfirmed != nil:
		return latestConfirmed
	case agree:
		return latest
	default:
		return nil
	}
}
