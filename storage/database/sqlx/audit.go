package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

const auditTable = "attendance_audit"

var auditColumns = []string{
	"id", "action", "tenant_id", "actor_id", "record_id", "student_id", "attendance_date", "status", "occurred_at",
}

type auditRow struct {
	ID         string          `db:"id"`
	Action     string          `db:"action"`
	TenantID   string          `db:"tenant_id"`
	ActorID    string          `db:"actor_id"`
	RecordID   string          `db:"record_id"`
	StudentID  string          `db:"student_id"`
	Date       attendance.Date `db:"attendance_date"`
	Status     null.String     `db:"status"`
	OccurredAt time.Time       `db:"occurred_at"`
}

// AuditRepository is an append-only attendance.Auditor backed by the attendance_audit table.
type AuditRepository struct {
	db core.DBExecutor
	sb sq.StatementBuilderType
}

var _ attendance.Auditor = (*AuditRepository)(nil) // interface compliance check

func NewAuditRepository(db core.DBExecutor) *AuditRepository {
	return &AuditRepository{db: db, sb: statementBuilder(db)}
}

func (repo *AuditRepository) Audit(ctx context.Context, ev attendance.AuditEvent) error {
	var status null.String
	if ev.Status.Valid() {
		status = null.StringFrom(ev.Status.String())
	}
	query, args, err := repo.sb.
		Insert(auditTable).
		Columns(auditColumns...).
		Values(ev.ID, string(ev.Action), ev.TenantID, ev.ActorID, ev.RecordID, ev.StudentID, ev.Date, status, ev.OccurredAt.UTC()).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building insert")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "inserting audit event")
	}
	return nil
}

// QueryEvents returns the audit trail of a record, oldest first.
func (repo *AuditRepository) QueryEvents(ctx context.Context, tenantID, recordID string) ([]attendance.AuditEvent, error) {
	query, args, err := repo.sb.
		Select(auditColumns...).
		From(auditTable).
		Where(sq.Eq{"tenant_id": tenantID, "record_id": recordID}).
		OrderBy("occurred_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building select")
	}

	var rows []auditRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying audit events")
	}

	evs := make([]attendance.AuditEvent, 0, len(rows))
	for _, row := range rows {
		ev := attendance.AuditEvent{
			ID:         row.ID,
			Action:     attendance.AuditAction(row.Action),
			TenantID:   row.TenantID,
			ActorID:    row.ActorID,
			RecordID:   row.RecordID,
			StudentID:  row.StudentID,
			Date:       row.Date,
			OccurredAt: row.OccurredAt.UTC(),
		}
		if row.Status.Valid {
			if ev.Status, err = attendance.ParseStatus(row.Status.String); err != nil {
				return nil, errors.Wrap(err, "parsing audit status")
			}
		}
		evs = append(evs, ev)
	}
	return evs, nil
}
