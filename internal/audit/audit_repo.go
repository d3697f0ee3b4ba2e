package audit

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository appends audit rows. Append must happen in the same transaction as
// the mutation it records, so the raw-SQL path honors WithTx.
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Append(ctx context.Context, l *Log) error
	FindAllByCompany(ctx context.Context, companyID string, limit int) ([]Log, error)
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

func (r *repository) Append(ctx context.Context, l *Log) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	details := l.Details
	if details == nil {
		details = []byte("{}")
	}

	query := `
        INSERT INTO audit_logs (id, company_id, actor_uid, action, target_id, details, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, now())
    `
	_, err := r.execer().ExecContext(
		ctx, query,
		l.ID, l.CompanyID, l.ActorUID, l.Action, l.TargetID, details,
	)
	return err
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string, limit int) ([]Log, error) {
	var rows []Log
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db.ConnPool
}

// Details marshals a detail map, falling back to "{}" so an audit row is never
// dropped because of a marshal failure.
func Details(m map[string]any) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}
