package gormrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trezcool/mahudhurio/core"
)

// Open returns a gorm.DB sharing the connection pool of db.
func Open(db *sqlx.DB, logger core.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch db.DriverName() {
	case "postgres":
		dialector = postgres.New(postgres.Config{Conn: db.DB, PreferSimpleProtocol: true})
	case "sqlite3":
		dialector = sqlite.New(sqlite.Config{Conn: db.DB})
	default:
		return nil, errors.Errorf("unsupported gorm driver %q", db.DriverName())
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger(logger)})
	if err != nil {
		return nil, errors.Wrap(err, "opening gorm")
	}
	return gdb, nil
}

// gormLogger forwards gorm logs to a core.Logger. Only errors and slow queries are traced.
type gormLogger struct {
	logger        core.Logger
	slowThreshold time.Duration
	level         gormlogger.LogLevel
}

func newLogger(logger core.Logger) gormlogger.Interface {
	return &gormLogger{
		logger:        logger,
		slowThreshold: 200 * time.Millisecond,
		level:         gormlogger.Warn,
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.level = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.Error(fmt.Sprintf("[SQL ERROR] %s | %d rows | %s", elapsed, rows, sql), err)
	case elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Warn(fmt.Sprintf("[SLOW SQL] %s | %d rows | %s", elapsed, rows, sql))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.Debug(fmt.Sprintf("[QUERY] %s | %d rows | %s", elapsed, rows, sql))
	}
}
