package timeentry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyClockOut(t *testing.T) {
	maxShift := 12 * time.Hour

	tags := ClassifyClockOut(TagSet{}, true, 8*time.Hour, maxShift, false)
	assert.Empty(t, []string(tags))

	tags = ClassifyClockOut(TagSet{}, false, 8*time.Hour, maxShift, false)
	assert.Equal(t, TagSet{TagGeofenceOut}, tags)

	tags = ClassifyClockOut(TagSet{}, true, 13*time.Hour, maxShift, false)
	assert.Equal(t, TagSet{TagExceedsMax}, tags)

	tags = ClassifyClockOut(TagSet{}, true, 8*time.Hour, maxShift, true)
	assert.Equal(t, TagSet{TagOverlap}, tags)

	// Tags are additive and never exclusive.
	tags = ClassifyClockOut(TagSet{TagDisputed}, false, 14*time.Hour, maxShift, true)
	assert.True(t, tags.Has(TagDisputed))
	assert.True(t, tags.Has(TagGeofenceOut))
	assert.True(t, tags.Has(TagExceedsMax))
	assert.True(t, tags.Has(TagOverlap))
}

func TestClassifyClockOut_ExactMaxNotTagged(t *testing.T) {
	tags := ClassifyClockOut(TagSet{}, true, 12*time.Hour, 12*time.Hour, false)
	assert.False(t, tags.Has(TagExceedsMax))
}

func TestClassifyForcedClose(t *testing.T) {
	tags := ClassifyForcedClose(TagSet{TagGeofenceOut})
	assert.True(t, tags.Has(TagGeofenceOut))
	assert.True(t, tags.Has(TagAutoClockout))
	assert.True(t, tags.Has(TagExceedsMax))
}

func TestTagSetAddDeduplicates(t *testing.T) {
	tags := TagSet{}.Add(TagOverlap).Add(TagOverlap)
	assert.Equal(t, TagSet{TagOverlap}, tags)
}
