package timeentry

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusApproved  = "APPROVED"
	StatusInvoiced  = "INVOICED"
)

// TagSet is an order-insensitive set of exception tags stored as jsonb.
type TagSet []string

func (t TagSet) Has(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Add returns the set with tag included, without duplicates.
func (t TagSet) Add(tag string) TagSet {
	if t.Has(tag) {
		return t
	}
	return append(t, tag)
}

func (t TagSet) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TagSet) Scan(src any) error {
	if src == nil {
		*t = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported tag set source type %T", src)
	}
}

// TimeEntry is the single mutable record of one worker shift. Entries are
// never deleted; corrections past approval are new entries.
//
// The partial unique index on (company_id, user_id) enforces the one-ACTIVE-
// entry-per-worker rule at the store, so two concurrent clock-ins can never
// both insert.
type TimeEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null;index:idx_time_entries_company_status,priority:1;uniqueIndex:idx_time_entries_one_active,where:status = 'ACTIVE'"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:idx_time_entries_one_active,where:status = 'ACTIVE'"`
	JobID     uuid.UUID `gorm:"column:job_id;type:uuid;not null;index"`

	Status string `gorm:"column:status;type:varchar(20);not null;default:ACTIVE;index:idx_time_entries_company_status,priority:2"`

	ClockInAt  time.Time  `gorm:"column:clock_in_at;type:timestamptz;not null"`
	ClockOutAt *time.Time `gorm:"column:clock_out_at;type:timestamptz"`

	ClockInLat  float64  `gorm:"column:clock_in_lat;not null"`
	ClockInLng  float64  `gorm:"column:clock_in_lng;not null"`
	ClockOutLat *float64 `gorm:"column:clock_out_lat"`
	ClockOutLng *float64 `gorm:"column:clock_out_lng"`

	ClockInGeofenceValid  bool  `gorm:"column:clock_in_geofence_valid;not null"`
	ClockOutGeofenceValid *bool `gorm:"column:clock_out_geofence_valid"`

	ExceptionTags TagSet `gorm:"column:exception_tags;type:jsonb;not null;default:'[]'"`

	Approved   bool       `gorm:"column:approved;not null;default:false"`
	ApprovedBy *uuid.UUID `gorm:"column:approved_by;type:uuid"`
	ApprovedAt *time.Time `gorm:"column:approved_at;type:timestamptz"`

	InvoiceID  *uuid.UUID `gorm:"column:invoice_id;type:uuid;index"`
	InvoicedAt *time.Time `gorm:"column:invoiced_at;type:timestamptz"`

	ClientEventID         string  `gorm:"column:client_event_id;type:varchar(64);not null"`
	ClockOutClientEventID *string `gorm:"column:clock_out_client_event_id;type:varchar(64)"`
	DeviceID              *string `gorm:"column:device_id;type:varchar(100)"`

	// Audit-only measurements captured at evaluation time.
	ClockInDistanceM  *float64 `gorm:"column:clock_in_distance_m"`
	ClockInAccuracyM  *float64 `gorm:"column:clock_in_accuracy_m"`
	EffectiveRadiusM  *float64 `gorm:"column:effective_radius_m"`
	ClockOutDistanceM *float64 `gorm:"column:clock_out_distance_m"`
	ClockOutAccuracyM *float64 `gorm:"column:clock_out_accuracy_m"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

// Duration is the shift length, zero while the entry is still open.
func (e TimeEntry) Duration() time.Duration {
	if e.ClockOutAt == nil {
		return 0
	}
	return e.ClockOutAt.Sub(e.ClockInAt)
}

// Locked reports whether the entry is frozen against normal field edits.
func (e TimeEntry) Locked() bool {
	return e.Approved || e.InvoiceID != nil
}
