package invoice

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"go-timeclock/internal/tenant"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, inv *Invoice) error
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Invoice, error)
	FindAllByCompany(ctx context.Context, companyID string) ([]Invoice, error)
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

// conn binds the session to the enlisted transaction so the invoice insert
// commits and rolls back with the caller's tx, never on its own.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	if r.tx == nil {
		return r.db.WithContext(ctx)
	}
	db := r.db.Session(&gorm.Session{Context: ctx, NewDB: true})
	db.Statement.ConnPool = r.tx
	return db
}

func (r *repository) Create(ctx context.Context, inv *Invoice) error {
	return r.conn(ctx).Create(inv).Error
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Invoice, error) {
	var inv Invoice
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&inv, "id = ?", id).Error
	return &inv, err
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Invoice, error) {
	var rows []Invoice
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
