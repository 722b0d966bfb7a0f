package auditsvc

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

// LogAuditor writes audit events to a core.Logger.
type LogAuditor struct {
	logger core.Logger
}

var _ attendance.Auditor = (*LogAuditor)(nil)

func NewLogAuditor(logger core.Logger) *LogAuditor {
	return &LogAuditor{logger: logger}
}

func (a *LogAuditor) Audit(_ context.Context, ev attendance.AuditEvent) error {
	a.logger.Info(
		fmt.Sprintf("%s record=%s student=%s date=%s", ev.Action, ev.RecordID, ev.StudentID, ev.Date),
		map[string]interface{}{
			"tenant_id": ev.TenantID,
			"actor_id":  ev.ActorID,
			"status":    ev.Status.String(),
		},
	)
	return nil
}

// Fanout sends every event to all its auditors. Every auditor is tried; the first error is returned.
type Fanout []attendance.Auditor

var _ attendance.Auditor = (Fanout)(nil)

func (f Fanout) Audit(ctx context.Context, ev attendance.AuditEvent) error {
	var firstErr error
	for _, a := range f {
		if err := a.Audit(ctx, ev); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "auditing with %T", a)
		}
	}
	return firstErr
}
