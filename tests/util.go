package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	"github.com/trezcool/mahudhurio/storage/database"
)

const TenantID = "tenant-1"

// PrepareDB opens a migrated in-memory sqlite database private to the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenDSN(database.EngineSQLite, database.SQLiteMemoryDSN(name))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, nil); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// ResetDB empties the attendance tables.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	for _, table := range []string{"attendance_record", "attendance_audit", "teacher_assignment"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("ResetDB() failed: %v", err)
		}
	}
}

func NewConfig() *core.Config {
	return &core.Config{
		AppName:  "Mahudhurio",
		Env:      "TEST",
		TestMode: true,
		Server: core.ServerConfig{
			SecretKey:          "test-secret",
			JWTExpirationDelta: time.Hour,
		},
		Attendance: core.AttendanceConfig{
			HistoryDefaultLimit: 30,
			HistoryMaxLimit:     366,
		},
	}
}

func NewLogger() core.Logger {
	return logsvc.NewDiscardLogger()
}

// NewValidator returns a validator and its translator with every app validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

func Teacher(id string, tenantID ...string) core.Principal {
	tenant := TenantID
	if len(tenantID) > 0 {
		tenant = tenantID[0]
	}
	return core.Principal{UserID: id, Username: id, TenantID: tenant, Roles: []string{core.RoleTeacher}}
}

func Admin(id string) core.Principal {
	return core.Principal{UserID: id, Username: id, TenantID: TenantID, Roles: []string{core.RoleAdmin}}
}

// CreateRecord stores a record straight into repo, bypassing consensus.
func CreateRecord(
	t *testing.T,
	repo attendance.Repository,
	tenantID, studentID, teacherID, date string,
	status attendance.Status,
	createdAt ...time.Time,
) attendance.Record {
	t.Helper()

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	rec, err := repo.CreateRecord(context.Background(), attendance.Record{
		ID:        attendance.NewIDFunc(),
		TenantID:  tenantID,
		StudentID: studentID,
		TeacherID: teacherID,
		Date:      attendance.MustParseDate(date),
		Status:    status,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}
