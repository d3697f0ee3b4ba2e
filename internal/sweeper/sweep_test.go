package sweeper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"go-timeclock/internal/timeentry"
)

func entryAt(status string, openedAgo time.Duration, now time.Time) timeentry.TimeEntry {
	return timeentry.TimeEntry{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		UserID:    uuid.New(),
		JobID:     uuid.New(),
		Status:    status,
		ClockInAt: now.Add(-openedAgo),
	}
}

func TestPlanClosesOnlyOverdueActiveEntries(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	threshold := 12 * time.Hour

	overdue := entryAt(timeentry.StatusActive, 13*time.Hour, now)
	fresh := entryAt(timeentry.StatusActive, 3*time.Hour, now)
	completed := entryAt(timeentry.StatusCompleted, 20*time.Hour, now)

	actions := Plan([]timeentry.TimeEntry{overdue, fresh, completed}, now, threshold)

	assert.Len(t, actions, 1)
	assert.Equal(t, overdue.ID, actions[0].EntryID)
}

func TestPlanBackdatesClockOutToThreshold(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	threshold := 12 * time.Hour

	e := entryAt(timeentry.StatusActive, 30*time.Hour, now)
	actions := Plan([]timeentry.TimeEntry{e}, now, threshold)

	assert.Len(t, actions, 1)
	// Never bill the abandoned tail of the shift.
	assert.Equal(t, e.ClockInAt.Add(threshold), actions[0].ClockOutAt)
}

func TestPlanTagsForcedClose(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	e := entryAt(timeentry.StatusActive, 13*time.Hour, now)
	e.ExceptionTags = timeentry.TagSet{timeentry.TagGeofenceOut}

	actions := Plan([]timeentry.TimeEntry{e}, now, 12*time.Hour)

	assert.Len(t, actions, 1)
	tags := actions[0].Tags
	assert.True(t, tags.Has(timeentry.TagAutoClockout))
	assert.True(t, tags.Has(timeentry.TagExceedsMax))
	assert.True(t, tags.Has(timeentry.TagGeofenceOut))
}

func TestPlanExactThresholdIsNotOverdue(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	threshold := 12 * time.Hour

	e := entryAt(timeentry.StatusActive, threshold, now)
	actions := Plan([]timeentry.TimeEntry{e}, now, threshold)

	assert.Empty(t, actions)
}

func TestPlanDefaultsThreshold(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	overdue := entryAt(timeentry.StatusActive, 13*time.Hour, now)
	fresh := entryAt(timeentry.StatusActive, 11*time.Hour, now)

	actions := Plan([]timeentry.TimeEntry{overdue, fresh}, now, 0)

	assert.Len(t, actions, 1)
	assert.Equal(t, overdue.ID, actions[0].EntryID)
}
