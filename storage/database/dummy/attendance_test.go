package dummydb

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

func newRecord(id, teacherID, date string, createdAt time.Time) attendance.Record {
	return attendance.Record{
		ID:        id,
		TenantID:  "tenant-1",
		StudentID: "s1",
		TeacherID: teacherID,
		Date:      attendance.MustParseDate(date),
		Status:    attendance.StatusPresent,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestAttendanceRepository_concurrentCreate(t *testing.T) {
	repo := NewAttendanceRepository(Open())
	now := time.Now().UTC()

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var created, conflicts int
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.CreateRecord(context.Background(), newRecord(fmt.Sprintf("rec-%d", i), "t1", "2024-03-04", now))
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				created++
			case attendance.ErrConflict:
				conflicts++
			default:
				t.Errorf("CreateRecord() unexpected error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}

func TestAttendanceRepository_QueryRecords(t *testing.T) {
	db := Open()
	repo := NewAttendanceRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, rec := range []attendance.Record{
		newRecord("b", "t2", "2024-03-04", now),
		newRecord("a", "t1", "2024-03-04", now),
		newRecord("c", "t1", "2024-03-03", now.Add(-time.Hour)),
	} {
		_, err := repo.CreateRecord(ctx, rec)
		require.NoError(t, err)
	}

	ids := func(recs []attendance.Record) []string {
		out := make([]string, 0, len(recs))
		for _, rec := range recs {
			out = append(out, rec.ID)
		}
		return out
	}

	recs, err := repo.QueryRecords(ctx, attendance.QueryFilter{TenantID: "tenant-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(recs)) // created_at, then id

	recs, err = repo.QueryRecords(ctx, attendance.QueryFilter{TenantID: "tenant-1", Limit: 1}, core.DBOrdering{Field: "date"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(recs))

	_, err = repo.QueryRecords(ctx, attendance.QueryFilter{TenantID: "tenant-1"}, core.DBOrdering{Field: "status"})
	assert.Error(t, err)

	db.Reset()
	recs, err = repo.QueryRecords(ctx, attendance.QueryFilter{TenantID: "tenant-1"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
