package dummydb

import (
	"sync"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type (
	DB struct {
		attendance *attendanceTable
		audit      *auditTable
		roster     *rosterTable
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
	}

	auditTable struct {
		sync.RWMutex
		table []attendance.AuditEvent
	}

	// rosterTable holds teacher-student assignments: tenant -> student -> teacher set.
	rosterTable struct {
		sync.RWMutex
		table map[string]map[string]map[string]bool
	}
)

func Open() *DB {
	return &DB{
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
		audit:      &auditTable{},
		roster:     &rosterTable{table: make(map[string]map[string]map[string]bool)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.attendance.Lock()
	db.attendance.table = make(map[string]*attendance.Record)
	db.attendance.Unlock()

	db.audit.Lock()
	db.audit.table = nil
	db.audit.Unlock()

	db.roster.Lock()
	db.roster.table = make(map[string]map[string]map[string]bool)
	db.roster.Unlock()
}
