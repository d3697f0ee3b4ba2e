package timeentry

import (
	"go-timeclock/internal/rbac"
	entryerrors "go-timeclock/internal/timeentry/errors"
)

// CheckMutable is the single chokepoint protecting approved and invoiced
// entries from edits. Every field-editing path must call it before writing.
// An admin may bypass with an explicit force flag; callers are responsible for
// recording the bypass in the audit log.
func CheckMutable(e *TimeEntry, role string, force bool) error {
	if !e.Locked() {
		return nil
	}
	if !force {
		return entryerrors.ErrEntryLocked
	}
	if role != rbac.RoleAdmin {
		return entryerrors.ErrForceRequiresAdmin
	}
	return nil
}
