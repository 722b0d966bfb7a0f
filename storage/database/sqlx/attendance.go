package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

const attendanceTable = "attendance_record"

var (
	attendanceColumns = []string{
		"id", "tenant_id", "student_id", "teacher_id", "attendance_date",
		"status", "notes", "created_at", "updated_at",
	}

	// ordering fields -> columns
	attendanceOrderings = map[string]string{
		"date":       "attendance_date",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"student_id": "student_id",
		"teacher_id": "teacher_id",
	}
)

type attendanceRow struct {
	ID        string            `db:"id"`
	TenantID  string            `db:"tenant_id"`
	StudentID string            `db:"student_id"`
	TeacherID string            `db:"teacher_id"`
	Date      attendance.Date   `db:"attendance_date"`
	Status    attendance.Status `db:"status"`
	Notes     null.String       `db:"notes"`
	CreatedAt time.Time         `db:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"`
}

func newAttendanceRow(rec attendance.Record) attendanceRow {
	return attendanceRow{
		ID:        rec.ID,
		TenantID:  rec.TenantID,
		StudentID: rec.StudentID,
		TeacherID: rec.TeacherID,
		Date:      rec.Date,
		Status:    rec.Status,
		Notes:     null.NewString(rec.Notes, rec.Notes != ""),
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
}

func (row attendanceRow) toRecord() attendance.Record {
	return attendance.Record{
		ID:        row.ID,
		TenantID:  row.TenantID,
		StudentID: row.StudentID,
		TeacherID: row.TeacherID,
		Date:      row.Date,
		Status:    row.Status,
		Notes:     row.Notes.String,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	db core.DBExecutor
	sb sq.StatementBuilderType
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db core.DBExecutor) attendance.Repository {
	return &attendanceRepository{db: db, sb: statementBuilder(db)}
}

// statementBuilder returns a squirrel builder using the placeholders of the db driver.
func statementBuilder(db core.DBExecutor) sq.StatementBuilderType {
	if db.DriverName() == "postgres" {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// isUniqueViolation reports whether err is a unique constraint violation of postgres or sqlite.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func trapNoRowsErr(err error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return attendance.ErrNotFound
	}
	return err
}

func getFilterWhere(filter attendance.GetFilter) sq.Eq {
	where := sq.Eq{"tenant_id": filter.TenantID, "id": filter.ID}
	if filter.TeacherID != "" {
		where["teacher_id"] = filter.TeacherID
	}
	return where
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	row := newAttendanceRow(rec)
	query, args, err := repo.sb.
		Insert(attendanceTable).
		Columns(attendanceColumns...).
		Values(row.ID, row.TenantID, row.StudentID, row.TeacherID, row.Date, row.Status, row.Notes, row.CreatedAt, row.UpdatedAt).
		ToSql()
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "building insert")
	}

	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrConflict
		}
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return row.toRecord(), nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, filter attendance.GetFilter) (attendance.Record, error) {
	query, args, err := repo.sb.
		Select(attendanceColumns...).
		From(attendanceTable).
		Where(getFilterWhere(filter)).
		ToSql()
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "building select")
	}

	var row attendanceRow
	if err = sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		return attendance.Record{}, trapNoRowsErr(err)
	}
	return row.toRecord(), nil
}

func (repo *attendanceRepository) UpdateRecord(
	ctx context.Context,
	filter attendance.GetFilter,
	patch attendance.RecordPatch,
) (attendance.Record, error) {
	stmt := repo.sb.
		Update(attendanceTable).
		Set("updated_at", patch.UpdatedAt.UTC()).
		Where(getFilterWhere(filter))
	if patch.Status != nil {
		stmt = stmt.Set("status", *patch.Status)
	}
	if patch.Notes != nil {
		stmt = stmt.Set("notes", null.NewString(*patch.Notes, *patch.Notes != ""))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "building update")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "counting updated rows")
	}
	if n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return repo.GetRecord(ctx, filter)
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, filter attendance.GetFilter) (bool, error) {
	query, args, err := repo.sb.
		Delete(attendanceTable).
		Where(getFilterWhere(filter)).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building delete")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrap(err, "deleting attendance record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "counting deleted rows")
	}
	return n > 0, nil
}

func (repo *attendanceRepository) QueryRecords(
	ctx context.Context,
	filter attendance.QueryFilter,
	ordering ...core.DBOrdering,
) ([]attendance.Record, error) {
	where := sq.Eq{"tenant_id": filter.TenantID}
	if filter.StudentID != "" {
		where["student_id"] = filter.StudentID
	}
	if filter.TeacherID != "" {
		where["teacher_id"] = filter.TeacherID
	}
	if filter.Date != nil {
		where["attendance_date"] = *filter.Date
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	orderBys := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col, ok := attendanceOrderings[ord.Field]
		if !ok {
			return nil, errors.Errorf("unknown ordering field %q", ord.Field)
		}
		orderBys = append(orderBys, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	orderBys = append(orderBys, "id ASC")

	stmt := repo.sb.
		Select(attendanceColumns...).
		From(attendanceTable).
		Where(where).
		OrderBy(orderBys...)
	if filter.Limit > 0 {
		stmt = stmt.Limit(uint64(filter.Limit))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building select")
	}

	var rows []attendanceRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toRecord())
	}
	return recs, nil
}
