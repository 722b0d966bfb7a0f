package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func sameTuple(a, b attendance.Record) bool {
	return a.TenantID == b.TenantID &&
		a.StudentID == b.StudentID &&
		a.TeacherID == b.TeacherID &&
		a.Date.Equal(b.Date)
}

func (repo *attendanceRepository) CreateRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, r := range repo.db.table {
		if sameTuple(*r, rec) {
			return attendance.Record{}, attendance.ErrConflict
		}
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *attendanceRepository) get(filter attendance.GetFilter) (*attendance.Record, error) {
	rec, ok := repo.db.table[filter.ID]
	if !ok || rec.TenantID != filter.TenantID {
		return nil, attendance.ErrNotFound
	}
	if filter.TeacherID != "" && rec.TeacherID != filter.TeacherID {
		return nil, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo *attendanceRepository) GetRecord(_ context.Context, filter attendance.GetFilter) (attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rec, err := repo.get(filter)
	if err != nil {
		return attendance.Record{}, err
	}
	return *rec, nil
}

func (repo *attendanceRepository) UpdateRecord(
	_ context.Context,
	filter attendance.GetFilter,
	patch attendance.RecordPatch,
) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, err := repo.get(filter)
	if err != nil {
		return attendance.Record{}, err
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.Notes != nil {
		rec.Notes = *patch.Notes
	}
	rec.UpdatedAt = patch.UpdatedAt
	return *rec, nil
}

func (repo *attendanceRepository) DeleteRecord(_ context.Context, filter attendance.GetFilter) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, err := repo.get(filter)
	if err != nil {
		return false, nil
	}
	delete(repo.db.table, rec.ID)
	return true, nil
}

func (repo *attendanceRepository) QueryRecords(
	_ context.Context,
	filter attendance.QueryFilter,
	ordering ...core.DBOrdering,
) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	for _, ord := range ordering {
		if _, ok := comparators[ord.Field]; !ok {
			return nil, errors.Errorf("unknown ordering field %q", ord.Field)
		}
	}

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.table {
		if rec.TenantID != filter.TenantID {
			continue
		}
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != "" && rec.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Date != nil && !rec.Date.Equal(*filter.Date) {
			continue
		}
		recs = append(recs, *rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		for _, ord := range ordering {
			c := comparators[ord.Field](recs[i], recs[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return recs[i].ID < recs[j].ID
	})

	if filter.Limit > 0 && len(recs) > filter.Limit {
		recs = recs[:filter.Limit]
	}
	return recs, nil
}

var comparators = map[string]func(a, b attendance.Record) int{
	"date": func(a, b attendance.Record) int { return a.Date.Compare(b.Date.Time) },
	"created_at": func(a, b attendance.Record) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	},
	"updated_at": func(a, b attendance.Record) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	},
	"student_id": func(a, b attendance.Record) int { return strings.Compare(a.StudentID, b.StudentID) },
	"teacher_id": func(a, b attendance.Record) int { return strings.Compare(a.TeacherID, b.TeacherID) },
}
