package events

import "time"

const (
	InvoiceTopic = "timeclock.invoice.lifecycle.v1"

	TypeInvoiceCreated = "invoice.created"
)

type InvoiceCreatedEvent struct {
	EventType     string    `json:"event_type"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	CompanyID     string    `json:"company_id"`
	TotalHours    float64   `json:"total_hours"`
	TotalAmount   float64   `json:"total_amount"`
	TimeEntryIDs  []string  `json:"time_entry_ids"`
	OccurredAt    time.Time `json:"occurred_at"`
}
