package auditsvc

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mahudhurio/core/attendance"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
)

var errStoreDown = errors.New("store down")

type recorder struct {
	events []attendance.AuditEvent
	err    error
}

func (r *recorder) Audit(_ context.Context, ev attendance.AuditEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestFanout_Audit(t *testing.T) {
	ev := attendance.AuditEvent{ID: "ev-1", Action: attendance.AuditCreate, RecordID: "rec-1", Status: attendance.StatusPresent}

	tests := []struct {
		name    string
		errs    []error
		wantErr error
	}{
		{name: "all ok", errs: []error{nil, nil}},
		{name: "first fails", errs: []error{errStoreDown, nil}, wantErr: errStoreDown},
		{name: "last fails", errs: []error{nil, errStoreDown}, wantErr: errStoreDown},
		{name: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fanout := make(Fanout, 0, len(tt.errs)+1)
			recorders := make([]*recorder, 0, len(tt.errs))
			for _, err := range tt.errs {
				r := &recorder{err: err}
				recorders = append(recorders, r)
				fanout = append(fanout, r)
			}
			fanout = append(fanout, NewLogAuditor(logsvc.NewDiscardLogger()))

			err := fanout.Audit(context.Background(), ev)
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("Audit() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, r := range recorders {
				assert.Equal(t, []attendance.AuditEvent{ev}, r.events)
			}
		})
	}
}
