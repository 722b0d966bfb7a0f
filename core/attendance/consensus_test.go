package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
)

var (
	errRosterDown = errors.New("roster down")
	errRepoDown   = errors.New("repo down")
	testDay       = MustParseDate("2024-03-04")
)

// fakeRoster assigns teachers to students of a single tenant.
type fakeRoster struct {
	assigned map[string][]string
	err      error
}

func (r fakeRoster) IsCoTeaching(_ context.Context, _, studentID string) (bool, error) {
	return len(r.assigned[studentID]) > 1, r.err
}

func (r fakeRoster) AssignedTeachers(_ context.Context, _, studentID string) ([]string, error) {
	return r.assigned[studentID], r.err
}

func (r fakeRoster) CanTeacherAccessStudent(_ context.Context, _, teacherID, studentID string) (bool, error) {
	for _, t := range r.assigned[studentID] {
		if t == teacherID {
			return true, r.err
		}
	}
	return false, r.err
}

func (r fakeRoster) TeacherStudents(context.Context, string, string) ([]string, error) {
	return nil, r.err
}

// fakeRepo only answers QueryRecords, with records kept in insertion order.
type fakeRepo struct {
	Repository
	recs []Record
	err  error
}

func (r *fakeRepo) QueryRecords(_ context.Context, filter QueryFilter, _ ...core.DBOrdering) ([]Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	recs := make([]Record, 0)
	for _, rec := range r.recs {
		if rec.StudentID == filter.StudentID && (filter.Date == nil || rec.Date.Equal(*filter.Date)) {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func newRec(studentID, teacherID string, status Status, updatedAt time.Time) Record {
	return Record{
		ID:        studentID + "-" + teacherID,
		TenantID:  "tenant-1",
		StudentID: studentID,
		TeacherID: teacherID,
		Date:      testDay,
		Status:    status,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

func newTestResolver(repo Repository, roster RosterOracle) *Resolver {
	return NewResolver(repo, roster, logsvc.NewDiscardLogger())
}

func TestResolver_DetermineInitialStatus(t *testing.T) {
	roster := fakeRoster{assigned: map[string][]string{
		"solo": {"t1"},
		"duo":  {"t1", "t2"},
	}}

	tests := []struct {
		name      string
		roster    RosterOracle
		studentID string
		requested Status
		want      Status
	}{
		{"single teacher present", roster, "solo", StatusPresent, StatusPresent},
		{"single teacher absent", roster, "solo", StatusAbsent, StatusAbsent},
		{"single teacher keeps confirmed", roster, "solo", StatusConfirmedAbsent, StatusConfirmedAbsent},
		{"co-teaching present", roster, "duo", StatusPresent, StatusPendingPresent},
		{"co-teaching absent", roster, "duo", StatusAbsent, StatusPendingAbsent},
		{"co-teaching keeps pending", roster, "duo", StatusPendingAbsent, StatusPendingAbsent},
		{"roster failure", fakeRoster{assigned: roster.assigned, err: errRosterDown}, "duo", StatusPresent, StatusPresent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(new(fakeRepo), tt.roster)
			if got := r.DetermineInitialStatus(context.Background(), "tenant-1", tt.studentID, tt.requested); got != tt.want {
				t.Errorf("DetermineInitialStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_tally(t *testing.T) {
	now := time.Now()
	assigned := []string{"t1", "t2", "t3"}

	tests := []struct {
		name   string
		recs   []Record
		status Status
		want   Status
	}{
		{
			name:   "first vote",
			status: StatusPresent,
			want:   StatusPendingPresent,
		},
		{
			name:   "partial turnout agreeing",
			recs:   []Record{newRec("s", "t2", StatusPendingPresent, now)},
			status: StatusPendingPresent,
			want:   StatusPendingPresent,
		},
		{
			name: "unanimous",
			recs: []Record{
				newRec("s", "t2", StatusPendingAbsent, now),
				newRec("s", "t3", StatusPendingAbsent, now),
			},
			status: StatusAbsent,
			want:   StatusConfirmedAbsent,
		},
		{
			name: "unanimous with a confirmed sibling",
			recs: []Record{
				newRec("s", "t2", StatusConfirmedPresent, now),
				newRec("s", "t3", StatusPendingPresent, now),
			},
			status: StatusPendingPresent,
			want:   StatusConfirmedPresent,
		},
		{
			name: "disagreement",
			recs: []Record{
				newRec("s", "t2", StatusPendingPresent, now),
				newRec("s", "t3", StatusPendingPresent, now),
			},
			status: StatusAbsent,
			want:   StatusPendingAbsent,
		},
		{
			name: "own stored vote is replaced",
			recs: []Record{
				newRec("s", "t1", StatusPendingAbsent, now),
				newRec("s", "t2", StatusPendingPresent, now),
				newRec("s", "t3", StatusPendingPresent, now),
			},
			status: StatusPresent,
			want:   StatusConfirmedPresent,
		},
		{
			name: "unassigned votes are ignored",
			recs: []Record{
				newRec("s", "t2", StatusPendingPresent, now),
				newRec("s", "t3", StatusPendingPresent, now),
				newRec("s", "t9", StatusPendingAbsent, now),
			},
			status: StatusPresent,
			want:   StatusConfirmedPresent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tally(assigned, tt.recs, "t1", tt.status); got != tt.want {
				t.Errorf("tally() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_Reconcile(t *testing.T) {
	now := time.Now()
	roster := fakeRoster{assigned: map[string][]string{
		"solo": {"t1"},
		"duo":  {"t1", "t2"},
	}}
	repo := &fakeRepo{recs: []Record{
		newRec("solo", "t1", StatusAbsent, now),
		newRec("duo", "t2", StatusPendingPresent, now),
	}}
	vote := func(studentID string, status Status) Vote {
		return Vote{TenantID: "tenant-1", StudentID: studentID, TeacherID: "t1", Date: testDay, Status: status}
	}

	tests := []struct {
		name    string
		repo    Repository
		roster  RosterOracle
		vote    Vote
		want    Status
		wantErr error
	}{
		{name: "single teacher", repo: repo, roster: roster, vote: vote("solo", StatusPresent), want: StatusPresent},
		{name: "co-teachers agree", repo: repo, roster: roster, vote: vote("duo", StatusPendingPresent), want: StatusConfirmedPresent},
		{name: "co-teachers disagree", repo: repo, roster: roster, vote: vote("duo", StatusPendingAbsent), want: StatusPendingAbsent},
		{
			name:   "roster failure falls back to single teacher",
			repo:   repo,
			roster: fakeRoster{assigned: roster.assigned, err: errRosterDown},
			vote:   vote("duo", StatusPendingAbsent),
			want:   StatusPendingAbsent,
		},
		{
			name:    "repository failure",
			repo:    &fakeRepo{err: errRepoDown},
			roster:  roster,
			vote:    vote("duo", StatusPendingPresent),
			wantErr: errRepoDown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestResolver(tt.repo, tt.roster).Reconcile(context.Background(), tt.vote)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("Reconcile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Reconcile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_View(t *testing.T) {
	now := time.Now()
	roster := fakeRoster{assigned: map[string][]string{
		"duo":   {"t2", "t1"},
		"trio":  {"t1", "t2", "t3"},
		"solo":  {"t1"},
		"split": {"t1", "t2"},
	}}
	repo := &fakeRepo{recs: []Record{
		newRec("duo", "t1", StatusPendingPresent, now),
		newRec("duo", "t2", StatusConfirmedPresent, now.Add(time.Minute)),
		newRec("trio", "t1", StatusConfirmedAbsent, now),
		newRec("trio", "t2", StatusPendingPresent, now.Add(time.Minute)),
		newRec("solo", "t1", StatusAbsent, now),
		newRec("split", "t1", StatusPendingPresent, now),
		newRec("split", "t2", StatusPendingAbsent, now.Add(time.Minute)),
	}}
	r := newTestResolver(repo, roster)
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		view, err := r.View(ctx, "tenant-1", "duo", testDay)
		require.NoError(t, err)
		assert.True(t, view.CoTeaching)
		assert.True(t, view.HasConsensus)
		assert.Equal(t, []string{"t1", "t2"}, view.AssignedTeachers)
		assert.Equal(t, 2, view.Turnout)
		require.NotNil(t, view.Effective)
		assert.Equal(t, StatusConfirmedPresent, *view.Effective)
	})

	t.Run("latest confirmed wins over later pending", func(t *testing.T) {
		view, err := r.View(ctx, "tenant-1", "trio", testDay)
		require.NoError(t, err)
		assert.Equal(t, 2, view.Turnout)
		require.NotNil(t, view.Effective)
		assert.Equal(t, StatusConfirmedAbsent, *view.Effective)
	})

	t.Run("single teacher", func(t *testing.T) {
		view, err := r.View(ctx, "tenant-1", "solo", testDay)
		require.NoError(t, err)
		assert.False(t, view.CoTeaching)
		assert.False(t, view.HasConsensus)
		assert.Equal(t, []string{}, view.AssignedTeachers)
		assert.Equal(t, 1, view.Turnout)
		require.NotNil(t, view.Effective)
		assert.Equal(t, StatusAbsent, *view.Effective)
	})

	t.Run("disagreement", func(t *testing.T) {
		view, err := r.View(ctx, "tenant-1", "split", testDay)
		require.NoError(t, err)
		assert.False(t, view.HasConsensus)
		assert.Equal(t, 2, view.Turnout)
		assert.Nil(t, view.Effective)
	})

	t.Run("no records", func(t *testing.T) {
		view, err := r.View(ctx, "tenant-1", "ghost", testDay)
		require.NoError(t, err)
		assert.Empty(t, view.Records)
		assert.Nil(t, view.Effective)
	})

	t.Run("has consensus", func(t *testing.T) {
		ok, err := r.HasConsensus(ctx, "tenant-1", "duo", testDay)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.HasConsensus(ctx, "tenant-1", "solo", testDay)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
