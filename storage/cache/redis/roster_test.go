package rediscache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rediscache "github.com/trezcool/mahudhurio/storage/cache/redis"
	dummydb "github.com/trezcool/mahudhurio/storage/database/dummy"
	"github.com/trezcool/mahudhurio/tests"
)

// countingRoster counts the lookups reaching the wrapped roster.
type countingRoster struct {
	*dummydb.Roster
	assigned, students int
}

func (r *countingRoster) AssignedTeachers(ctx context.Context, tenantID, studentID string) ([]string, error) {
	r.assigned++
	return r.Roster.AssignedTeachers(ctx, tenantID, studentID)
}

func (r *countingRoster) TeacherStudents(ctx context.Context, tenantID, teacherID string) ([]string, error) {
	r.students++
	return r.Roster.TeacherStudents(ctx, tenantID, teacherID)
}

func setup(t *testing.T) (*rediscache.Roster, *countingRoster, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	next := &countingRoster{Roster: dummydb.NewRoster(dummydb.Open())}
	return rediscache.NewRoster(next, rdb, time.Minute, testutil.NewLogger()), next, mr
}

func TestRoster_cachesLookups(t *testing.T) {
	roster, next, mr := setup(t)
	next.Assign(testutil.TenantID, "s1", "t1", "t2")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		teachers, err := roster.AssignedTeachers(ctx, testutil.TenantID, "s1")
		require.NoError(t, err)
		assert.Equal(t, []string{"t1", "t2"}, teachers)
	}
	assert.Equal(t, 1, next.assigned)

	coTeaching, err := roster.IsCoTeaching(ctx, testutil.TenantID, "s1")
	require.NoError(t, err)
	assert.True(t, coTeaching)

	ok, err := roster.CanTeacherAccessStudent(ctx, testutil.TenantID, "t2", "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = roster.CanTeacherAccessStudent(ctx, testutil.TenantID, "t3", "s1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, next.assigned)

	students, err := roster.TeacherStudents(ctx, testutil.TenantID, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, students)
	_, err = roster.TeacherStudents(ctx, testutil.TenantID, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, next.students)

	assert.True(t, mr.Exists("roster:"+testutil.TenantID+":student:s1:teachers"))
	assert.True(t, mr.Exists("roster:"+testutil.TenantID+":teacher:t1:students"))
	assert.Equal(t, time.Minute, mr.TTL("roster:"+testutil.TenantID+":student:s1:teachers"))
}

func TestRoster_Invalidate(t *testing.T) {
	roster, next, _ := setup(t)
	next.Assign(testutil.TenantID, "s1", "t1")
	ctx := context.Background()

	coTeaching, err := roster.IsCoTeaching(ctx, testutil.TenantID, "s1")
	require.NoError(t, err)
	assert.False(t, coTeaching)

	next.Assign(testutil.TenantID, "s1", "t2")
	require.NoError(t, roster.Invalidate(ctx, testutil.TenantID, "s1", "t2"))

	coTeaching, err = roster.IsCoTeaching(ctx, testutil.TenantID, "s1")
	require.NoError(t, err)
	assert.True(t, coTeaching)
	assert.Equal(t, 2, next.assigned)
}

func TestRoster_fallsBackWhenRedisIsDown(t *testing.T) {
	roster, next, mr := setup(t)
	next.Assign(testutil.TenantID, "s1", "t1", "t2")
	mr.Close()

	teachers, err := roster.AssignedTeachers(context.Background(), testutil.TenantID, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, teachers)
	assert.Equal(t, 1, next.assigned)
}

func TestRoster_corruptEntry(t *testing.T) {
	roster, next, mr := setup(t)
	next.Assign(testutil.TenantID, "s1", "t1")
	require.NoError(t, mr.Set("roster:"+testutil.TenantID+":student:s1:teachers", "not json"))

	teachers, err := roster.AssignedTeachers(context.Background(), testutil.TenantID, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, teachers)
	assert.Equal(t, 1, next.assigned)
}
