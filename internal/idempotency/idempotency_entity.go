package idempotency

import (
	"time"

	"github.com/google/uuid"
)

const (
	OperationClockIn  = "clock_in"
	OperationClockOut = "clock_out"
)

// MaxKeyLength bounds the caller-generated opaque id.
const MaxKeyLength = 64

// Record stores the outcome of one logical clock operation so a retried
// request replays the original response rather than running again. The unique
// index on (user_id, operation, key) backstops two concurrent duplicates that
// both miss the lookup.
type Record struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_idempotency_user_op_key"`
	Operation string    `gorm:"column:operation;type:varchar(20);not null;uniqueIndex:idx_idempotency_user_op_key"`
	Key       string    `gorm:"column:key;type:varchar(64);not null;uniqueIndex:idx_idempotency_user_op_key"`
	EntryID   uuid.UUID `gorm:"column:entry_id;type:uuid;not null"`
	Response  []byte    `gorm:"column:response;type:jsonb;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Record) TableName() string {
	return "idempotency_records"
}
