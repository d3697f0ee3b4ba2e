package events

import "time"

const (
	TimeEntryTopic = "timeclock.time-entry.lifecycle.v1"
	DisputeTopic   = "timeclock.time-entry.disputes.v1"

	TypeTimeEntryCompleted      = "time_entry.completed"
	TypeTimeEntryAutoClockedOut = "time_entry.auto_clocked_out"
	TypeTimeEntryDisputed       = "time_entry.disputed"
)

type TimeEntryCompletedEvent struct {
	EventType     string    `json:"event_type"`
	EntryID       string    `json:"entry_id"`
	CompanyID     string    `json:"company_id"`
	UserID        string    `json:"user_id"`
	JobID         string    `json:"job_id"`
	ClockInAt     time.Time `json:"clock_in_at"`
	ClockOutAt    time.Time `json:"clock_out_at"`
	ExceptionTags []string  `json:"exception_tags"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// DisputeRaisedEvent is produced by the worker-facing app when a worker
// contests an entry; the consumer tags the entry for review.
type DisputeRaisedEvent struct {
	EventType  string    `json:"event_type"`
	EntryID    string    `json:"entry_id"`
	CompanyID  string    `json:"company_id"`
	UserID     string    `json:"user_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
