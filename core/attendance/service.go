package attendance

import (
	"context"
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound     = errors.New("attendance record not found")
	ErrConflict     = errors.New("attendance already recorded for this student today")
	ErrForbidden    = errors.New("permission denied")
	ErrUnauthorized = errors.New("not authenticated")

	NowFunc   = time.Now      // mockable
	NewIDFunc = uuid.NewString // mockable
)

type (
	Repository interface {
		// CreateRecord inserts rec atomically; ErrConflict if the (tenant, student, teacher, date) tuple exists.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, filter GetFilter) (Record, error)
		UpdateRecord(ctx context.Context, filter GetFilter, patch RecordPatch) (Record, error)
		DeleteRecord(ctx context.Context, filter GetFilter) (bool, error)
		// QueryRecords applies AND operation on available QueryFilter fields.
		// Records are ordered by created_at ascending when no ordering is given.
		QueryRecords(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Record, error)
	}

	// RosterOracle answers teacher-student assignment questions.
	RosterOracle interface {
		IsCoTeaching(ctx context.Context, tenantID, studentID string) (bool, error)
		AssignedTeachers(ctx context.Context, tenantID, studentID string) ([]string, error)
		CanTeacherAccessStudent(ctx context.Context, tenantID, teacherID, studentID string) (bool, error)
		TeacherStudents(ctx context.Context, tenantID, teacherID string) ([]string, error)
	}

	// Auditor receives record mutations. Failures are logged and never fail the mutation.
	Auditor interface {
		Audit(ctx context.Context, ev AuditEvent) error
	}

	ServiceInterface interface {
		Authorize(ctx context.Context, p core.Principal, studentID string) error
		Record(ctx context.Context, p core.Principal, nr NewRecord) (Record, error)
		Update(ctx context.Context, p core.Principal, id string, ur UpdateRecord) (Record, error)
		Delete(ctx context.Context, p core.Principal, id string) (bool, error)
		DailyView(ctx context.Context, p core.Principal, date string) (DailyView, error)
		StudentHistory(ctx context.Context, p core.Principal, studentID string, q HistoryQuery) ([]Record, error)
		Consensus(ctx context.Context, p core.Principal, studentID, date string) (ConsensusView, error)
	}

	Service struct {
		repo       Repository
		roster     RosterOracle
		auditor    Auditor
		resolver   *Resolver
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		conf       *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(
	repo Repository,
	roster RosterOracle,
	auditor Auditor,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		roster:     roster,
		auditor:    auditor,
		resolver:   NewResolver(repo, roster, logger),
		logger:     logger,
		validate:   validate,
		translator: translator,
		conf:       conf,
	}
}

func now() time.Time {
	return NowFunc().UTC().Truncate(time.Microsecond)
}

func checkPrincipal(p core.Principal) error {
	if p.UserID == "" || p.TenantID == "" {
		return ErrUnauthorized
	}
	return nil
}

func parseDateField(date string) (Date, error) {
	d, err := ParseDate(core.CleanString(date))
	if err != nil {
		return Date{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: "date must be a date formatted as YYYY-MM-DD"})
	}
	return d, nil
}

// Authorize checks that the teacher p may record attendance for the student.
func (svc *Service) Authorize(ctx context.Context, p core.Principal, studentID string) error {
	if err := checkPrincipal(p); err != nil {
		return err
	}
	ok, err := svc.roster.CanTeacherAccessStudent(ctx, p.TenantID, p.UserID, studentID)
	if err != nil {
		return errors.Wrap(err, "checking roster access")
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// authorizeRead lets admins read any student of their tenant; teachers only their own students.
func (svc *Service) authorizeRead(ctx context.Context, p core.Principal, studentID string) error {
	if err := checkPrincipal(p); err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	return svc.Authorize(ctx, p, studentID)
}

func (svc *Service) audit(ctx context.Context, p core.Principal, action AuditAction, rec Record) {
	ev := AuditEvent{
		ID:         NewIDFunc(),
		Action:     action,
		TenantID:   rec.TenantID,
		ActorID:    p.UserID,
		RecordID:   rec.ID,
		StudentID:  rec.StudentID,
		Date:       rec.Date,
		OccurredAt: now(),
	}
	if action != AuditDelete {
		ev.Status = rec.Status
	}
	if err := svc.auditor.Audit(ctx, ev); err != nil {
		svc.logger.Warn("attendance audit failed", errors.Wrapf(err, "auditing %s of %s", action, rec.ID), p)
	}
}

// Record stores the teacher's first attendance report of the day for a student.
func (svc *Service) Record(ctx context.Context, p core.Principal, nr NewRecord) (Record, error) {
	if err := checkPrincipal(p); err != nil {
		return Record{}, err
	}
	if err := nr.Validate(svc.validate); err != nil {
		return Record{}, core.TranslateValidationError(err, svc.translator)
	}
	date, err := parseDateField(nr.Date)
	if err != nil {
		return Record{}, err
	}
	requested, err := ParseStatus(nr.Status)
	if err != nil {
		return Record{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: statusText})
	}

	if err = svc.Authorize(ctx, p, nr.StudentID); err != nil {
		return Record{}, err
	}

	initial := svc.resolver.DetermineInitialStatus(ctx, p.TenantID, nr.StudentID, requested)
	status, err := svc.resolver.Reconcile(ctx, Vote{
		TenantID:  p.TenantID,
		StudentID: nr.StudentID,
		TeacherID: p.UserID,
		Date:      date,
		Status:    initial,
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "reconciling status")
	}

	tstamp := now()
	rec, err := svc.repo.CreateRecord(ctx, Record{
		ID:        NewIDFunc(),
		TenantID:  p.TenantID,
		StudentID: nr.StudentID,
		TeacherID: p.UserID,
		Date:      date,
		Status:    status,
		Notes:     nr.Notes,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		if errors.Cause(err) == ErrConflict {
			return Record{}, ErrConflict
		}
		return Record{}, errors.Wrap(err, "creating record")
	}

	svc.audit(ctx, p, AuditCreate, rec)
	return rec, nil
}

// Update modifies the teacher's own record. The stored status is always re-reconciled,
// so an update without a status still picks up the latest consensus.
func (svc *Service) Update(ctx context.Context, p core.Principal, id string, ur UpdateRecord) (Record, error) {
	if err := checkPrincipal(p); err != nil {
		return Record{}, err
	}
	if err := ur.Validate(svc.validate); err != nil {
		return Record{}, core.TranslateValidationError(err, svc.translator)
	}

	rec, err := svc.repo.GetRecord(ctx, GetFilter{TenantID: p.TenantID, ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Record{}, ErrNotFound
		}
		return Record{}, errors.Wrap(err, "getting record")
	}
	if rec.TeacherID != p.UserID {
		return Record{}, ErrForbidden
	}
	if err = svc.Authorize(ctx, p, rec.StudentID); err != nil {
		return Record{}, err
	}

	vote := rec.Status
	if ur.Status != nil {
		if vote, err = ParseStatus(*ur.Status); err != nil {
			return Record{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: statusText})
		}
	}
	status, err := svc.resolver.Reconcile(ctx, Vote{
		TenantID:  p.TenantID,
		StudentID: rec.StudentID,
		TeacherID: p.UserID,
		Date:      rec.Date,
		Status:    vote,
	})
	if err != nil {
		return Record{}, errors.Wrap(err, "reconciling status")
	}

	rec, err = svc.repo.UpdateRecord(
		ctx,
		GetFilter{TenantID: p.TenantID, ID: id, TeacherID: p.UserID},
		RecordPatch{Status: &status, Notes: ur.Notes, UpdatedAt: now()},
	)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Record{}, ErrNotFound
		}
		return Record{}, errors.Wrap(err, "updating record")
	}

	svc.audit(ctx, p, AuditUpdate, rec)
	return rec, nil
}

// Delete removes the teacher's own record. Other teachers' records for the day are left untouched.
func (svc *Service) Delete(ctx context.Context, p core.Principal, id string) (bool, error) {
	if err := checkPrincipal(p); err != nil {
		return false, err
	}

	rec, err := svc.repo.GetRecord(ctx, GetFilter{TenantID: p.TenantID, ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting record")
	}
	if rec.TeacherID != p.UserID {
		return false, ErrForbidden
	}

	deleted, err := svc.repo.DeleteRecord(ctx, GetFilter{TenantID: p.TenantID, ID: id, TeacherID: p.UserID})
	if err != nil {
		return false, errors.Wrap(err, "deleting record")
	}
	if deleted {
		svc.audit(ctx, p, AuditDelete, rec)
	}
	return deleted, nil
}

// DailyView returns the teacher's records for date and the roster students still missing a record.
func (svc *Service) DailyView(ctx context.Context, p core.Principal, date string) (DailyView, error) {
	if err := checkPrincipal(p); err != nil {
		return DailyView{}, err
	}
	day, err := parseDateField(date)
	if err != nil {
		return DailyView{}, err
	}

	students, err := svc.roster.TeacherStudents(ctx, p.TenantID, p.UserID)
	if err != nil {
		return DailyView{}, errors.Wrap(err, "getting teacher roster")
	}
	recs, err := svc.repo.QueryRecords(
		ctx,
		QueryFilter{TenantID: p.TenantID, TeacherID: p.UserID, Date: &day},
		core.DBOrdering{Field: "student_id", Ascending: true},
	)
	if err != nil {
		return DailyView{}, errors.Wrap(err, "listing records")
	}
	return buildDailyView(day, students, recs), nil
}

func buildDailyView(day Date, students []string, recs []Record) DailyView {
	recorded := make(map[string]bool, len(recs))
	var pending int
	for _, rec := range recs {
		recorded[rec.StudentID] = true
		if rec.Status.IsPending() {
			pending++
		}
	}

	roster := make(map[string]bool, len(students))
	missing := make([]string, 0, len(students))
	for _, s := range students {
		if roster[s] {
			continue
		}
		roster[s] = true
		if !recorded[s] {
			missing = append(missing, s)
		}
	}
	sort.Strings(missing)

	if recs == nil {
		recs = []Record{}
	}
	return DailyView{
		Date:            day,
		Records:         recs,
		MissingStudents: missing,
		Metadata: ViewMetadata{
			TotalStudents:      len(roster),
			RecordedAttendance: len(recs),
			PendingConsensus:   pending,
		},
	}
}

// StudentHistory returns the student's records, most recent day first.
func (svc *Service) StudentHistory(ctx context.Context, p core.Principal, studentID string, q HistoryQuery) ([]Record, error) {
	if err := checkPrincipal(p); err != nil {
		return nil, err
	}
	if err := svc.validate.Struct(q); err != nil {
		return nil, core.TranslateValidationError(err, svc.translator)
	}
	if err := svc.authorizeRead(ctx, p, studentID); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit == 0 {
		limit = svc.conf.Attendance.HistoryDefaultLimit
	}
	if maxLimit := svc.conf.Attendance.HistoryMaxLimit; maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	recs, err := svc.repo.QueryRecords(
		ctx,
		QueryFilter{TenantID: p.TenantID, StudentID: studentID, Limit: limit},
		core.DBOrdering{Field: "date", Ascending: false},
		core.DBOrdering{Field: "updated_at", Ascending: false},
	)
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	return recs, nil
}

// Consensus returns every teacher's report for the student on date and the effective status.
func (svc *Service) Consensus(ctx context.Context, p core.Principal, studentID, date string) (ConsensusView, error) {
	if err := checkPrincipal(p); err != nil {
		return ConsensusView{}, err
	}
	day, err := parseDateField(date)
	if err != nil {
		return ConsensusView{}, err
	}
	if err = svc.authorizeRead(ctx, p, studentID); err != nil {
		return ConsensusView{}, err
	}
	return svc.resolver.View(ctx, p.TenantID, studentID, day)
}
