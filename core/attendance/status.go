package attendance

import (
	"database/sql/driver"
	"fmt"

	"github.com/pkg/errors"
)

// Status is the attendance state carried by a Record.
// PENDING_* statuses wait for the other co-teachers; CONFIRMED_* statuses are the agreed outcome.
type Status uint8

const (
	StatusInvalid Status = iota
	StatusPresent
	StatusAbsent
	StatusPendingPresent
	StatusPendingAbsent
	StatusConfirmedPresent
	StatusConfirmedAbsent
)

var (
	AllStatuses = []Status{
		StatusPresent,
		StatusAbsent,
		StatusPendingPresent,
		StatusPendingAbsent,
		StatusConfirmedPresent,
		StatusConfirmedAbsent,
	}

	statusNames = map[Status]string{
		StatusPresent:          "PRESENT",
		StatusAbsent:           "ABSENT",
		StatusPendingPresent:   "PENDING_PRESENT",
		StatusPendingAbsent:    "PENDING_ABSENT",
		StatusConfirmedPresent: "CONFIRMED_PRESENT",
		StatusConfirmedAbsent:  "CONFIRMED_ABSENT",
	}
	statusValues = reverseStatusNames()
)

func reverseStatusNames() map[string]Status {
	m := make(map[string]Status, len(statusNames))
	for s, name := range statusNames {
		m[name] = s
	}
	return m
}

// ParseStatus parses one of the six status names (e.g. "PENDING_PRESENT").
func ParseStatus(s string) (Status, error) {
	if st, ok := statusValues[s]; ok {
		return st, nil
	}
	return StatusInvalid, errors.Errorf("unsupported attendance status %q", s)
}

func (s Status) String() string {
	return statusNames[s]
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Normalize collapses s to its underlying vote: StatusPresent or StatusAbsent.
// It panics on an invalid Status since those never pass validation.
func (s Status) Normalize() Status {
	switch s {
	case StatusPresent, StatusPendingPresent, StatusConfirmedPresent:
		return StatusPresent
	case StatusAbsent, StatusPendingAbsent, StatusConfirmedAbsent:
		return StatusAbsent
	default:
		panic(fmt.Sprintf("attendance: normalizing invalid status %d", s))
	}
}

func (s Status) IsPending() bool {
	switch s {
	case StatusPendingPresent, StatusPendingAbsent:
		return true
	default:
		return false
	}
}

func (s Status) IsConfirmed() bool {
	switch s {
	case StatusConfirmedPresent, StatusConfirmedAbsent:
		return true
	default:
		return false
	}
}

// Pending returns the PENDING_* form of the vote carried by s.
func (s Status) Pending() Status {
	if s.Normalize() == StatusPresent {
		return StatusPendingPresent
	}
	return StatusPendingAbsent
}

// Confirmed returns the CONFIRMED_* form of the vote carried by s.
func (s Status) Confirmed() Status {
	if s.Normalize() == StatusPresent {
		return StatusConfirmedPresent
	}
	return StatusConfirmedAbsent
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.Errorf("marshaling invalid attendance status %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	st, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return errors.Errorf("scanning attendance status from %T", src)
	}
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, errors.Errorf("storing invalid attendance status %d", s)
	}
	return s.String(), nil
}
