package sweeper

import (
	"time"

	"github.com/google/uuid"

	"go-timeclock/internal/timeentry"
)

// Action describes one forced close the sweep would apply.
type Action struct {
	EntryID    uuid.UUID
	CompanyID  uuid.UUID
	UserID     uuid.UUID
	ClockInAt  time.Time
	ClockOutAt time.Time
	Tags       timeentry.TagSet
}

// Plan computes the forced closes for a set of candidate entries. Pure:
// policy is unit-testable without a clock or a store. Entries that are not
// ACTIVE or not yet past the threshold produce no action, which is also what
// makes re-running a sweep a no-op.
//
// The forced clock-out is backdated to clockInAt + threshold rather than
// "now": an abandoned entry must never bill for the time it sat forgotten.
func Plan(entries []timeentry.TimeEntry, now time.Time, threshold time.Duration) []Action {
	if threshold <= 0 {
		threshold = 12 * time.Hour
	}

	var actions []Action
	for _, e := range entries {
		if e.Status != timeentry.StatusActive {
			continue
		}
		if now.Sub(e.ClockInAt) <= threshold {
			continue
		}
		actions = append(actions, Action{
			EntryID:    e.ID,
			CompanyID:  e.CompanyID,
			UserID:     e.UserID,
			ClockInAt:  e.ClockInAt,
			ClockOutAt: e.ClockInAt.Add(threshold),
			Tags:       timeentry.ClassifyForcedClose(e.ExceptionTags),
		})
	}
	return actions
}
