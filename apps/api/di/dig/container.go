package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"gorm.io/gorm"

	echoapi "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	auditsvc "github.com/trezcool/mahudhurio/services/audit"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	rediscache "github.com/trezcool/mahudhurio/storage/cache/redis"
	"github.com/trezcool/mahudhurio/storage/database"
	gormrepos "github.com/trezcool/mahudhurio/storage/database/gorm"
	sqlxrepos "github.com/trezcool/mahudhurio/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, loggerParam.Logger); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newGormDB(db *sqlx.DB, loggerParam DBLoggerParam) *gorm.DB {
	gdb, err := gormrepos.Open(db, loggerParam.Logger)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up gorm: %v", err), err)
	}
	return gdb
}

func newAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return sqlxrepos.NewAttendanceRepository(db)
}

// newRoster returns the gorm roster, cached in Redis when enabled.
func newRoster(conf *core.Config, gdb *gorm.DB, logger core.Logger) attendance.RosterOracle {
	roster := gormrepos.NewRoster(gdb)
	if !conf.Redis.Enabled {
		return roster
	}

	rdb, err := rediscache.NewClient(context.Background(), conf)
	if err != nil {
		logger.Error("redis unavailable, roster cache disabled", err)
		return roster
	}
	return rediscache.NewRoster(roster, rdb, conf.Redis.RosterTTL, logger)
}

func newAuditor(db *sqlx.DB, logger core.Logger) attendance.Auditor {
	return auditsvc.Fanout{
		sqlxrepos.NewAuditRepository(db),
		auditsvc.NewLogAuditor(logger),
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newGormDB))
	must(c.Provide(newAttendanceRepository))
	must(c.Provide(newRoster))
	must(c.Provide(newAuditor))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(attendance.NewService, dig.As(new(attendance.ServiceInterface))))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
