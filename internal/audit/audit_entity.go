package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded alongside privileged mutations.
const (
	ActionClockIn       = "TIME_ENTRY_CLOCK_IN"
	ActionClockOut      = "TIME_ENTRY_CLOCK_OUT"
	ActionAutoClockOut  = "TIME_ENTRY_AUTO_CLOCK_OUT"
	ActionForceEdit     = "TIME_ENTRY_FORCE_EDIT"
	ActionEdit          = "TIME_ENTRY_EDIT"
	ActionBulkApprove   = "TIME_ENTRY_BULK_APPROVE"
	ActionCreateInvoice = "INVOICE_CREATE_FROM_TIME"
	ActionDispute       = "TIME_ENTRY_DISPUTE"
)

// Log rows are append-only; there is no update or delete path.
type Log struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null;index:idx_audit_logs_company_created"`
	ActorUID  string    `gorm:"column:actor_uid;type:varchar(100);not null"`
	Action    string    `gorm:"column:action;type:varchar(50);not null"`
	TargetID  string    `gorm:"column:target_id;type:varchar(100);not null"`
	Details   []byte    `gorm:"column:details;type:jsonb"`
	CreatedAt time.Time `gorm:"column:created_at;index:idx_audit_logs_company_created"`
}

func (Log) TableName() string {
	return "audit_logs"
}
