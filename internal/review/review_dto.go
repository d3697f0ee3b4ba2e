package review

type BulkApproveRequest struct {
	EntryIDs []string `json:"entry_ids" binding:"required,min=1"`
}

// BulkApproveResponse reports per-entry outcomes so a reviewer can see what a
// partial approval actually did.
type BulkApproveResponse struct {
	ApprovedCount        int      `json:"approved_count"`
	AlreadyApprovedCount int      `json:"already_approved_count"`
	SkippedCount         int      `json:"skipped_count"`
	AlreadyApproved      []string `json:"already_approved"`
	Skipped              []string `json:"skipped"`
	ApprovedIDs          []string `json:"approved_ids"`
}
