package gormrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/mahudhurio/core/attendance"
)

// Assignment assigns a teacher to a student within a tenant.
type Assignment struct {
	TenantID  string    `gorm:"primaryKey;size:64"`
	StudentID string    `gorm:"primaryKey;size:64"`
	TeacherID string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Assignment) TableName() string {
	return "teacher_assignment"
}

// Roster is an attendance.RosterOracle backed by the teacher_assignment table.
type Roster struct {
	db *gorm.DB
}

var _ attendance.RosterOracle = (*Roster)(nil) // interface compliance check

func NewRoster(db *gorm.DB) *Roster {
	return &Roster{db: db}
}

func (r *Roster) assignments(ctx context.Context, tenantID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&Assignment{}).Where("tenant_id = ?", tenantID)
}

func (r *Roster) AssignedTeachers(ctx context.Context, tenantID, studentID string) ([]string, error) {
	teachers := make([]string, 0)
	err := r.assignments(ctx, tenantID).
		Where("student_id = ?", studentID).
		Order("teacher_id").
		Pluck("teacher_id", &teachers).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying assigned teachers")
	}
	return teachers, nil
}

func (r *Roster) IsCoTeaching(ctx context.Context, tenantID, studentID string) (bool, error) {
	var count int64
	err := r.assignments(ctx, tenantID).
		Where("student_id = ?", studentID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "counting assigned teachers")
	}
	return count > 1, nil
}

func (r *Roster) CanTeacherAccessStudent(ctx context.Context, tenantID, teacherID, studentID string) (bool, error) {
	var count int64
	err := r.assignments(ctx, tenantID).
		Where("student_id = ? AND teacher_id = ?", studentID, teacherID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "checking assignment")
	}
	return count > 0, nil
}

func (r *Roster) TeacherStudents(ctx context.Context, tenantID, teacherID string) ([]string, error) {
	students := make([]string, 0)
	err := r.assignments(ctx, tenantID).
		Where("teacher_id = ?", teacherID).
		Order("student_id").
		Pluck("student_id", &students).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher students")
	}
	return students, nil
}

// Assign assigns the teacher to the student. Existing assignments are left as is.
func (r *Roster) Assign(ctx context.Context, tenantID, studentID, teacherID string) error {
	a := Assignment{
		TenantID:  tenantID,
		StudentID: studentID,
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&a).Error
	return errors.Wrap(err, "creating assignment")
}

// Unassign removes the assignment and reports whether it existed.
func (r *Roster) Unassign(ctx context.Context, tenantID, studentID, teacherID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ? AND teacher_id = ?", tenantID, studentID, teacherID).
		Delete(&Assignment{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "deleting assignment")
	}
	return res.RowsAffected > 0, nil
}
