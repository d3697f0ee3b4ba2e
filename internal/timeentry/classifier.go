package timeentry

import "time"

// Exception tags are additive and non-exclusive. A tag marks an entry for
// human review; it never blocks a state transition.
const (
	TagGeofenceOut  = "geofence_out"
	TagAutoClockout = "auto_clockout"
	TagExceedsMax   = "exceeds_12h"
	TagOverlap      = "overlap"
	TagDisputed     = "disputed"
)

// ClassifyClockOut applies the soft-failure tags that can be determined at
// clock-out time: out-of-fence, over-length, and overlap with another entry.
func ClassifyClockOut(tags TagSet, geofenceValid bool, duration, maxShift time.Duration, overlaps bool) TagSet {
	if !geofenceValid {
		tags = tags.Add(TagGeofenceOut)
	}
	if maxShift > 0 && duration > maxShift {
		tags = tags.Add(TagExceedsMax)
	}
	if overlaps {
		tags = tags.Add(TagOverlap)
	}
	return tags
}

// ClassifyForcedClose tags an entry closed by the sweeper.
func ClassifyForcedClose(tags TagSet) TagSet {
	return tags.Add(TagAutoClockout).Add(TagExceedsMax)
}
