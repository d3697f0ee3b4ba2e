package invoice

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft = "DRAFT"
	StatusSent  = "SENT"
	StatusPaid  = "PAID"
)

// CounterType keys the per-company sequence that produces invoice numbers.
const CounterType = "invoice"

// LineItem is one billed shift on an invoice, denormalized at creation time so
// later entry edits (which the mutability guard forbids anyway) can never
// change what was billed.
type LineItem struct {
	EntryID    string    `json:"entry_id"`
	UserID     string    `json:"user_id"`
	JobID      string    `json:"job_id"`
	ClockInAt  time.Time `json:"clock_in_at"`
	ClockOutAt time.Time `json:"clock_out_at"`
	Hours      float64   `json:"hours"`
	HourlyRate float64   `json:"hourly_rate"`
	Amount     float64   `json:"amount"`
}

// LineItems is stored as jsonb.
type LineItems []LineItem

func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *LineItems) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported line items source type %T", src)
	}
}

// EntryIDs is the set of time entry ids an invoice billed, fixed at creation
// and stored as jsonb.
type EntryIDs []string

func (e EntryIDs) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *EntryIDs) Scan(src any) error {
	if src == nil {
		*e = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("unsupported entry ids source type %T", src)
	}
}

type Invoice struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID     uuid.UUID `gorm:"column:company_id;type:uuid;not null;uniqueIndex:idx_invoices_company_number,priority:1"`
	InvoiceNumber string    `gorm:"column:invoice_number;type:varchar(20);not null;uniqueIndex:idx_invoices_company_number,priority:2"`
	Status        string    `gorm:"column:status;type:varchar(20);not null;default:DRAFT"`

	TimeEntryIDs EntryIDs  `gorm:"column:time_entry_ids;type:jsonb;not null;default:'[]'"`
	LineItems    LineItems `gorm:"column:line_items;type:jsonb;not null;default:'[]'"`
	TotalHours   float64   `gorm:"column:total_hours;not null"`
	TotalAmount  float64   `gorm:"column:total_amount;not null"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// FormatNumber renders the counter value as the human-readable number.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("INV-%06d", seq)
}
