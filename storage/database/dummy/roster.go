package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/mahudhurio/core/attendance"
)

// Roster is an in-memory attendance.RosterOracle.
type Roster struct {
	db *rosterTable
}

var _ attendance.RosterOracle = (*Roster)(nil) // interface compliance check

func NewRoster(db *DB) *Roster {
	return &Roster{db: db.roster}
}

// Assign assigns the teachers to the student.
func (r *Roster) Assign(tenantID, studentID string, teacherIDs ...string) {
	r.db.Lock()
	defer r.db.Unlock()

	students, ok := r.db.table[tenantID]
	if !ok {
		students = make(map[string]map[string]bool)
		r.db.table[tenantID] = students
	}
	teachers, ok := students[studentID]
	if !ok {
		teachers = make(map[string]bool)
		students[studentID] = teachers
	}
	for _, t := range teacherIDs {
		teachers[t] = true
	}
}

func (r *Roster) Unassign(tenantID, studentID, teacherID string) {
	r.db.Lock()
	defer r.db.Unlock()

	if teachers, ok := r.db.table[tenantID][studentID]; ok {
		delete(teachers, teacherID)
	}
}

func (r *Roster) AssignedTeachers(_ context.Context, tenantID, studentID string) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	teachers := make([]string, 0)
	for t := range r.db.table[tenantID][studentID] {
		teachers = append(teachers, t)
	}
	sort.Strings(teachers)
	return teachers, nil
}

func (r *Roster) IsCoTeaching(ctx context.Context, tenantID, studentID string) (bool, error) {
	teachers, err := r.AssignedTeachers(ctx, tenantID, studentID)
	if err != nil {
		return false, err
	}
	return len(teachers) > 1, nil
}

func (r *Roster) CanTeacherAccessStudent(_ context.Context, tenantID, teacherID, studentID string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()
	return r.db.table[tenantID][studentID][teacherID], nil
}

func (r *Roster) TeacherStudents(_ context.Context, tenantID, teacherID string) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	students := make([]string, 0)
	for s, teachers := range r.db.table[tenantID] {
		if teachers[teacherID] {
			students = append(students, s)
		}
	}
	sort.Strings(students)
	return students, nil
}
