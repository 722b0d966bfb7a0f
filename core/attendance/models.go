package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

const NotesMaxLen = 500

// Record is one teacher's attendance report for one student on one day.
type Record struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	StudentID string    `json:"student_id"`
	TeacherID string    `json:"teacher_id"`
	Date      Date      `json:"date"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewRecord contains information needed to record a student's attendance.
type NewRecord struct {
	StudentID string `json:"student_id" validate:"required,max=64,identifier"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,attendance_status"`
	Notes     string `json:"notes" validate:"max=500"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.Date = core.CleanString(nr.Date)
	nr.Status = core.CleanString(nr.Status)
	nr.Notes = core.CleanString(nr.Notes)
	return validate.Struct(nr)
}

// UpdateRecord defines what information may be provided to modify an existing Record.
// Nil fields are left untouched.
type UpdateRecord struct {
	Status *string `json:"status" validate:"omitempty,attendance_status"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

func (ur *UpdateRecord) Validate(validate *validator.Validate) error {
	if ur.Status != nil {
		s := core.CleanString(*ur.Status)
		ur.Status = &s
	}
	if ur.Notes != nil {
		n := core.CleanString(*ur.Notes)
		ur.Notes = &n
	}
	return validate.Struct(ur)
}

// RecordPatch is the storage-level form of UpdateRecord.
type RecordPatch struct {
	Status    *Status
	Notes     *string
	UpdatedAt time.Time
}

type (
	// DailyView is a teacher's attendance sheet for one day.
	DailyView struct {
		Date            Date         `json:"date"`
		Records         []Record     `json:"records"`
		MissingStudents []string     `json:"missing_students"`
		Metadata        ViewMetadata `json:"metadata"`
	}

	ViewMetadata struct {
		TotalStudents      int `json:"total_students"`
		RecordedAttendance int `json:"recorded_attendance"`
		PendingConsensus   int `json:"pending_consensus"`
	}
)

// ConsensusView is every teacher's report for a student on a day, with the resulting effective status.
type ConsensusView struct {
	StudentID        string   `json:"student_id"`
	Date             Date     `json:"date"`
	Records          []Record `json:"records"`
	AssignedTeachers []string `json:"assigned_teachers"`
	CoTeaching       bool     `json:"co_teaching"`
	Turnout          int      `json:"turnout"`
	HasConsensus     bool     `json:"has_consensus"`
	// Effective is nil until at least one record exists.
	Effective *Status `json:"effective_status"`
}

type HistoryQuery struct {
	Limit int `query:"limit" json:"limit" validate:"gte=0"`
}

type GetFilter struct {
	TenantID  string
	ID        string
	TeacherID string // optional; restricts to the author's records
}

type QueryFilter struct {
	TenantID  string
	StudentID string
	TeacherID string
	Date      *Date
	Limit     int
}

// AuditAction names a mutation reported to the Auditor.
type AuditAction string

const (
	AuditCreate AuditAction = "attendance.create"
	AuditUpdate AuditAction = "attendance.update"
	AuditDelete AuditAction = "attendance.delete"
)

// AuditEvent describes a mutation of a Record.
type AuditEvent struct {
	ID         string
	Action     AuditAction
	TenantID   string
	ActorID    string
	RecordID   string
	StudentID  string
	Date       Date
	Status     Status // zero on delete
	OccurredAt time.Time
}
