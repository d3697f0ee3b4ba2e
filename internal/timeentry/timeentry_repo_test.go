package timeentry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormPool(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Discard,
	})
	assert.NoError(t, err)
	return gdb, mock
}

// An enlisted transaction must carry every statement; an update that slips
// onto the pool autocommits and survives the caller's rollback.
func TestRepository_UpdateRunsOnEnlistedTx(t *testing.T) {
	gdb, poolMock := newGormPool(t)

	txConn, txMock, err := sqlmock.New()
	assert.NoError(t, err)
	txMock.ExpectBegin()
	txMock.ExpectExec(`UPDATE "time_entries"`).WillReturnResult(sqlmock.NewResult(0, 1))
	txMock.ExpectRollback()

	tx, err := txConn.Begin()
	assert.NoError(t, err)

	entry := &TimeEntry{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		UserID:    uuid.New(),
		JobID:     uuid.New(),
		Status:    StatusActive,
		ClockInAt: time.Now().UTC(),
	}

	// The pool mock has zero expectations, so any statement gorm routes to
	// the pool instead of the tx fails the Update call itself.
	repo := NewRepository(gdb).WithTx(tx)
	assert.NoError(t, repo.Update(context.Background(), entry))
	assert.NoError(t, tx.Rollback())

	assert.NoError(t, txMock.ExpectationsWereMet())
	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestRepository_ReadsRunOnEnlistedTx(t *testing.T) {
	gdb, poolMock := newGormPool(t)

	txConn, txMock, err := sqlmock.New()
	assert.NoError(t, err)

	id := uuid.New()
	companyID := uuid.New()
	txMock.ExpectBegin()
	txMock.ExpectQuery(`SELECT (.+) FROM "time_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "status"}).
			AddRow(id.String(), companyID.String(), StatusActive))
	txMock.ExpectRollback()

	tx, err := txConn.Begin()
	assert.NoError(t, err)

	repo := NewRepository(gdb).WithTx(tx)
	got, err := repo.FindByIDAndCompany(context.Background(), companyID.String(), id.String())
	assert.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.NoError(t, tx.Rollback())

	assert.NoError(t, txMock.ExpectationsWereMet())
	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestRepository_WithoutTxRunsOnPool(t *testing.T) {
	gdb, poolMock := newGormPool(t)

	poolMock.ExpectQuery(`SELECT count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	repo := NewRepository(gdb)
	count, err := repo.CountActiveByUser(context.Background(), uuid.NewString(), uuid.NewString())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.NoError(t, poolMock.ExpectationsWereMet())
}
