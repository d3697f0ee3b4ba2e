package tenant

import "gorm.io/gorm"

// Scope restricts any query to a single company. Every repo query that is not
// keyed by primary id goes through this.
func Scope(companyID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("company_id = ?", companyID)
	}
}
