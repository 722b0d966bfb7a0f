package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

const keyPrefix = "roster:"

// Roster caches the assignment lists of another attendance.RosterOracle in Redis.
// Redis failures are logged and the wrapped oracle is queried instead.
type Roster struct {
	next   attendance.RosterOracle
	rdb    *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var _ attendance.RosterOracle = (*Roster)(nil) // interface compliance check

func NewRoster(next attendance.RosterOracle, rdb *redis.Client, ttl time.Duration, logger core.Logger) *Roster {
	return &Roster{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// NewClient creates a Redis client from conf and checks the connection.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

// helpers to generate keys
func studentTeachersKey(tenantID, studentID string) string {
	return fmt.Sprintf("%s%s:student:%s:teachers", keyPrefix, tenantID, studentID)
}

func teacherStudentsKey(tenantID, teacherID string) string {
	return fmt.Sprintf("%s%s:teacher:%s:students", keyPrefix, tenantID, teacherID)
}

// cached returns the list stored at key, loading and storing it on a miss.
func (r *Roster) cached(ctx context.Context, key string, load func() ([]string, error)) ([]string, error) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ids []string
		if err = json.Unmarshal(data, &ids); err == nil {
			return ids, nil
		}
		r.logger.Warn(fmt.Sprintf("roster cache: corrupt entry %q", key), err)
	case err != redis.Nil:
		r.logger.Warn(fmt.Sprintf("roster cache: reading %q", key), err)
	}

	ids, err := load()
	if err != nil {
		return nil, err
	}
	if data, err = json.Marshal(ids); err == nil {
		err = r.rdb.Set(ctx, key, data, r.ttl).Err()
	}
	if err != nil {
		r.logger.Warn(fmt.Sprintf("roster cache: writing %q", key), err)
	}
	return ids, nil
}

func (r *Roster) AssignedTeachers(ctx context.Context, tenantID, studentID string) ([]string, error) {
	return r.cached(ctx, studentTeachersKey(tenantID, studentID), func() ([]string, error) {
		return r.next.AssignedTeachers(ctx, tenantID, studentID)
	})
}

func (r *Roster) IsCoTeaching(ctx context.Context, tenantID, studentID string) (bool, error) {
	teachers, err := r.AssignedTeachers(ctx, tenantID, studentID)
	if err != nil {
		return false, err
	}
	return len(teachers) > 1, nil
}

func (r *Roster) CanTeacherAccessStudent(ctx context.Context, tenantID, teacherID, studentID string) (bool, error) {
	teachers, err := r.AssignedTeachers(ctx, tenantID, studentID)
	if err != nil {
		return false, err
	}
	for _, t := range teachers {
		if t == teacherID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Roster) TeacherStudents(ctx context.Context, tenantID, teacherID string) ([]string, error) {
	return r.cached(ctx, teacherStudentsKey(tenantID, teacherID), func() ([]string, error) {
		return r.next.TeacherStudents(ctx, tenantID, teacherID)
	})
}

// Invalidate drops the cached lists touched by a change of the (student, teacher) assignment.
func (r *Roster) Invalidate(ctx context.Context, tenantID, studentID, teacherID string) error {
	err := r.rdb.Del(ctx, studentTeachersKey(tenantID, studentID), teacherStudentsKey(tenantID, teacherID)).Err()
	return errors.Wrap(err, "invalidating roster cache")
}
