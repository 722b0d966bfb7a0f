package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Normalize(t *testing.T) {
	tests := []struct {
		status        Status
		wantNormal    Status
		wantPending   Status
		wantConfirmed Status
		isPending     bool
		isConfirmed   bool
	}{
		{StatusPresent, StatusPresent, StatusPendingPresent, StatusConfirmedPresent, false, false},
		{StatusAbsent, StatusAbsent, StatusPendingAbsent, StatusConfirmedAbsent, false, false},
		{StatusPendingPresent, StatusPresent, StatusPendingPresent, StatusConfirmedPresent, true, false},
		{StatusPendingAbsent, StatusAbsent, StatusPendingAbsent, StatusConfirmedAbsent, true, false},
		{StatusConfirmedPresent, StatusPresent, StatusPendingPresent, StatusConfirmedPresent, false, true},
		{StatusConfirmedAbsent, StatusAbsent, StatusPendingAbsent, StatusConfirmedAbsent, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.Normalize(); got != tt.wantNormal {
				t.Errorf("Normalize() = %v, want %v", got, tt.wantNormal)
			}
			if got := tt.status.Pending(); got != tt.wantPending {
				t.Errorf("Pending() = %v, want %v", got, tt.wantPending)
			}
			if got := tt.status.Confirmed(); got != tt.wantConfirmed {
				t.Errorf("Confirmed() = %v, want %v", got, tt.wantConfirmed)
			}
			if got := tt.status.IsPending(); got != tt.isPending {
				t.Errorf("IsPending() = %v, want %v", got, tt.isPending)
			}
			if got := tt.status.IsConfirmed(); got != tt.isConfirmed {
				t.Errorf("IsConfirmed() = %v, want %v", got, tt.isConfirmed)
			}
		})
	}

	assert.Panics(t, func() { StatusInvalid.Normalize() })
}

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		got, err := ParseStatus(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %v, %v; want %v", s.String(), got, err, s)
		}
	}

	for _, name := range []string{"", "present", "LATE", "PENDING"} {
		if _, err := ParseStatus(name); err == nil {
			t.Errorf("ParseStatus(%q) error = nil, want error", name)
		}
	}
}

func TestStatus_ScanValue(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    Status
		wantErr bool
	}{
		{name: "string", src: "PENDING_ABSENT", want: StatusPendingAbsent},
		{name: "bytes", src: []byte("CONFIRMED_PRESENT"), want: StatusConfirmedPresent},
		{name: "unknown", src: "LATE", wantErr: true},
		{name: "wrong type", src: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Status
			err := got.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Scan() = %v, want %v", got, tt.want)
			}
		})
	}

	v, err := StatusAbsent.Value()
	assert.NoError(t, err)
	assert.Equal(t, "ABSENT", v)

	_, err = StatusInvalid.Value()
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	d := DateOf(time.Date(2024, 3, 4, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-04", d.String())
	assert.True(t, d.Equal(MustParseDate("2024-03-04")))

	tests := []struct {
		name    string
		src     interface{}
		want    string
		wantErr bool
	}{
		{name: "time", src: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), want: "2024-03-04"},
		{name: "string", src: "2024-03-04", want: "2024-03-04"},
		{name: "timestamp text", src: []byte("2024-03-04T00:00:00Z"), want: "2024-03-04"},
		{name: "garbage", src: "04/03/2024", wantErr: true},
		{name: "wrong type", src: 42, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Date
			err := got.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("Scan() = %v, want %v", got, tt.want)
			}
		})
	}

	var parsed Date
	assert.NoError(t, parsed.UnmarshalJSON([]byte(`"2024-02-29"`)))
	assert.Equal(t, "2024-02-29", parsed.String())
	assert.Error(t, parsed.UnmarshalJSON([]byte(`2024`)))
	_, err := ParseDate("2023-02-29")
	assert.Error(t, err)
}
