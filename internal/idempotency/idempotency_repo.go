package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads and writes replay records. Both operations run raw SQL
// through the active transaction, because the lookup and the state transition
// it guards must share one atomic scope.
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Find(ctx context.Context, userID, operation, key string) (*Record, error)
	Create(ctx context.Context, rec *Record) error
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

func (r *repository) Find(ctx context.Context, userID, operation, key string) (*Record, error) {
	query := `
        SELECT id, user_id, operation, key, entry_id, response, created_at
        FROM idempotency_records
        WHERE user_id = $1 AND operation = $2 AND key = $3
    `
	row := r.queryer().QueryRowContext(ctx, query, userID, operation, key)

	var rec Record
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Operation, &rec.Key, &rec.EntryID, &rec.Response, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO idempotency_records (id, user_id, operation, key, entry_id, response, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.execer().ExecContext(
		ctx, query,
		rec.ID, rec.UserID, rec.Operation, rec.Key, rec.EntryID, rec.Response, rec.CreatedAt,
	)
	return err
}

func (r *repository) queryer() interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db.ConnPool
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db.ConnPool
}
