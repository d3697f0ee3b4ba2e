package assignment

import (
	"context"

	"gorm.io/gorm"

	"go-timeclock/internal/tenant"
)

type Repository interface {
	FindByCompanyUserJob(ctx context.Context, companyID, userID, jobID string) ([]Assignment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByCompanyUserJob(ctx context.Context, companyID, userID, jobID string) ([]Assignment, error) {
	var rows []Assignment
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("user_id = ?", userID).
		Where("job_id = ?", jobID).
		Find(&rows).Error
	return rows, err
}
