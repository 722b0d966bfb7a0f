package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mahudhurio/core"
	rediscache "github.com/trezcool/mahudhurio/storage/cache/redis"
	gormrepos "github.com/trezcool/mahudhurio/storage/database/gorm"
)

var errHelp = errors.New("help provided")

type (
	rosterEditor interface {
		Assign(ctx context.Context, tenantID, studentID, teacherID string) error
		Unassign(ctx context.Context, tenantID, studentID, teacherID string) (bool, error)
	}

	rosterCache interface {
		Invalidate(ctx context.Context, tenantID, studentID, teacherID string) error
	}

	commandLine struct {
		db     *sqlx.DB
		roster rosterEditor
		cache  rosterCache // optional
		logger core.Logger
	}
)

// newCommandLine wires the CLI to roster. When rdb is set, roster edits invalidate the Redis roster cache.
func newCommandLine(db *sqlx.DB, roster *gormrepos.Roster, rdb *redis.Client, ttl time.Duration, logger core.Logger) *commandLine {
	cli := &commandLine{
		db:     db,
		roster: roster,
		logger: logger,
	}
	if rdb != nil {
		cli.cache = rediscache.NewRoster(roster, rdb, ttl, logger)
	}
	return cli
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  assign -tenant TENANT -student STUDENT -teacher TEACHER[,TEACHER...] - assign teachers to a student")
	fmt.Println("  unassign -tenant TENANT -student STUDENT -teacher TEACHER - remove a teacher from a student")
}

type assignmentFlags struct {
	cmd     *flag.FlagSet
	tenant  *string
	student *string
	teacher *string
}

func newAssignmentFlags(name, teacherUsage string) assignmentFlags {
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	return assignmentFlags{
		cmd:     cmd,
		tenant:  cmd.String("tenant", "", "The school (tenant) id."),
		student: cmd.String("student", "", "The student id."),
		teacher: cmd.String("teacher", "", teacherUsage),
	}
}

// parse returns errHelp unless every flag is set.
func (f assignmentFlags) parse(args []string) error {
	if err := f.cmd.Parse(args); err != nil {
		return err
	}
	*f.tenant = core.CleanString(*f.tenant)
	*f.student = core.CleanString(*f.student)
	*f.teacher = core.CleanString(*f.teacher)
	if *f.tenant == "" || *f.student == "" || *f.teacher == "" {
		f.cmd.Usage()
		return errHelp
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	assignCmd := newAssignmentFlags("assign", "Comma separated teacher ids.")
	unassignCmd := newAssignmentFlags("unassign", "The teacher id.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "assign":
		if err := assignCmd.parse(args[2:]); err != nil {
			return err
		}
		var teachers []string
		for _, t := range strings.Split(*assignCmd.teacher, ",") {
			if t = core.CleanString(t); t != "" {
				teachers = append(teachers, t)
			}
		}
		return cli.assign(*assignCmd.tenant, *assignCmd.student, teachers...)
	case "unassign":
		if err := unassignCmd.parse(args[2:]); err != nil {
			return err
		}
		return cli.unassign(*unassignCmd.tenant, *unassignCmd.student, *unassignCmd.teacher)
	default:
		cli.printUsage()
		return errHelp
	}
}
