package timeentry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"go-timeclock/internal/tenant"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, e *TimeEntry) error
	Update(ctx context.Context, e *TimeEntry) error
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*TimeEntry, error)
	FindByIDs(ctx context.Context, ids []string) ([]TimeEntry, error)
	CountActiveByUser(ctx context.Context, companyID, userID string) (int64, error)
	FindAllByCompany(ctx context.Context, companyID string) ([]TimeEntry, error)
	FindAllByCompanyAndUser(ctx context.Context, companyID, userID string) ([]TimeEntry, error)
	HasOverlapping(ctx context.Context, companyID, userID string, start, end time.Time, excludeID string) (bool, error)
	FindActiveOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]TimeEntry, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// conn returns the session all statements run on. With an enlisted
// transaction the session's ConnPool is the tx itself, so writes commit
// and roll back with the caller's tx instead of autocommitting on the pool.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	if r.tx == nil {
		return r.db.WithContext(ctx)
	}
	db := r.db.Session(&gorm.Session{Context: ctx, NewDB: true})
	db.Statement.ConnPool = r.tx
	return db
}

func (r *repository) Create(ctx context.Context, e *TimeEntry) error {
	return r.conn(ctx).Create(e).Error
}

func (r *repository) Update(ctx context.Context, e *TimeEntry) error {
	return r.conn(ctx).Save(e).Error
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*TimeEntry, error) {
	var e TimeEntry
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&e, "id = ?", id).Error
	return &e, err
}

func (r *repository) FindByIDs(ctx context.Context, ids []string) ([]TimeEntry, error) {
	var rows []TimeEntry
	err := r.conn(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountActiveByUser(ctx context.Context, companyID, userID string) (int64, error) {
	var count int64
	err := r.conn(ctx).
		Model(&TimeEntry{}).
		Scopes(tenant.Scope(companyID)).
		Where("user_id = ?", userID).
		Where("status = ?", StatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]TimeEntry, error) {
	var rows []TimeEntry
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("clock_in_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindAllByCompanyAndUser(ctx context.Context, companyID, userID string) ([]TimeEntry, error) {
	var rows []TimeEntry
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("user_id = ?", userID).
		Order("clock_in_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) HasOverlapping(ctx context.Context, companyID, userID string, start, end time.Time, excludeID string) (bool, error) {
	db := r.conn(ctx).
		Model(&TimeEntry{}).
		Scopes(tenant.Scope(companyID)).
		Where("user_id = ?", userID).
		Where("clock_out_at IS NOT NULL").
		Where("NOT (clock_out_at <= ? OR clock_in_at >= ?)", start, end)

	if excludeID != "" {
		db = db.Where("id <> ?", excludeID)
	}

	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *repository) FindActiveOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]TimeEntry, error) {
	var rows []TimeEntry
	db := r.conn(ctx).
		Where("status = ?", StatusActive).
		Where("clock_in_at < ?", cutoff).
		Order("clock_in_at ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&rows).Error
	return rows, err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (the partial one-active index or the idempotency key index).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
