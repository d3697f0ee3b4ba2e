package invoice

import "time"

// Rate is optional; when set it must match the hourly rate on every billed
// job, so a client that believes it knows the rate fails loudly when the
// jobs disagree. The job's rate is always what gets billed.
type CreateFromTimeRequest struct {
	EntryIDs []string `json:"entry_ids" binding:"required,min=1"`
	Rate     *float64 `json:"rate" binding:"omitempty,gte=0"`
}

type InvoiceResponse struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	Status        string     `json:"status"`
	TimeEntryIDs  []string   `json:"time_entry_ids"`
	LineItems     []LineItem `json:"line_items"`
	TotalHours    float64    `json:"total_hours"`
	TotalAmount   float64    `json:"total_amount"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

func mapToResponse(inv Invoice) InvoiceResponse {
	items := inv.LineItems
	if items == nil {
		items = LineItems{}
	}
	entryIDs := inv.TimeEntryIDs
	if entryIDs == nil {
		entryIDs = EntryIDs{}
	}
	return InvoiceResponse{
		ID:            inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status,
		TimeEntryIDs:  entryIDs,
		LineItems:     items,
		TotalHours:    inv.TotalHours,
		TotalAmount:   inv.TotalAmount,
		CreatedBy:     inv.CreatedBy.String(),
		CreatedAt:     inv.CreatedAt,
	}
}
