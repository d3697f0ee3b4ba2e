package assignment

import (
	"time"

	"github.com/google/uuid"
)

// Assignment links a worker to a job and gates clock-in eligibility. Owned by
// the scheduling system; read-only here.
type Assignment struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID uuid.UUID  `gorm:"column:company_id;type:uuid;not null;index:idx_assignments_company_user_job"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:idx_assignments_company_user_job"`
	JobID     uuid.UUID  `gorm:"column:job_id;type:uuid;not null;index:idx_assignments_company_user_job"`
	Active    bool       `gorm:"column:active;not null;default:true"`
	StartDate *time.Time `gorm:"column:start_date;type:date"`
	EndDate   *time.Time `gorm:"column:end_date;type:date"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// CoversInstant reports whether the assignment is active and its optional
// start/end window contains now.
func (a Assignment) CoversInstant(now time.Time) bool {
	if !a.Active {
		return false
	}
	if a.StartDate != nil && now.Before(*a.StartDate) {
		return false
	}
	if a.EndDate != nil && now.After(a.EndDate.Add(24*time.Hour)) {
		return false
	}
	return true
}
