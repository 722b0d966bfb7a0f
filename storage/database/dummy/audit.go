package dummydb

import (
	"context"

	"github.com/trezcool/mahudhurio/core/attendance"
)

// AuditLog is an in-memory attendance.Auditor.
type AuditLog struct {
	db *auditTable
}

var _ attendance.Auditor = (*AuditLog)(nil) // interface compliance check

func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db.audit}
}

func (l *AuditLog) Audit(_ context.Context, ev attendance.AuditEvent) error {
	l.db.Lock()
	defer l.db.Unlock()
	l.db.table = append(l.db.table, ev)
	return nil
}

// Events returns a copy of the recorded events, oldest first.
func (l *AuditLog) Events() []attendance.AuditEvent {
	l.db.RLock()
	defer l.db.RUnlock()

	evs := make([]attendance.AuditEvent, len(l.db.table))
	copy(evs, l.db.table)
	return evs
}
