package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

func (cli *commandLine) invalidate(ctx context.Context, tenantID, studentID, teacherID string) {
	if cli.cache == nil {
		return
	}
	if err := cli.cache.Invalidate(ctx, tenantID, studentID, teacherID); err != nil {
		cli.logger.Warn("roster cache invalidation failed", errors.Wrap(err, "invalidating roster cache"))
	}
}

func (cli *commandLine) assign(tenantID, studentID string, teacherIDs ...string) error {
	ctx := context.Background()
	for _, teacherID := range teacherIDs {
		if err := cli.roster.Assign(ctx, tenantID, studentID, teacherID); err != nil {
			return errors.Wrapf(err, "assigning teacher %q", teacherID)
		}
		cli.invalidate(ctx, tenantID, studentID, teacherID)
		fmt.Printf("teacher %q assigned to student %q\n", teacherID, studentID)
	}
	return nil
}

func (cli *commandLine) unassign(tenantID, studentID, teacherID string) error {
	ctx := context.Background()
	removed, err := cli.roster.Unassign(ctx, tenantID, studentID, teacherID)
	if err != nil {
		return errors.Wrapf(err, "unassigning teacher %q", teacherID)
	}
	cli.invalidate(ctx, tenantID, studentID, teacherID)
	if !removed {
		fmt.Printf("teacher %q was not assigned to student %q\n", teacherID, studentID)
		return nil
	}
	fmt.Printf("teacher %q removed from student %q\n", teacherID, studentID)
	return nil
}
