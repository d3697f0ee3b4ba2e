package idempotency

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeRepo struct {
	findFn   func(ctx context.Context, userID, operation, key string) (*Record, error)
	createFn func(ctx context.Context, rec *Record) error
}

func (f *fakeRepo) WithTx(tx *sql.Tx) Repository { return f }
func (f *fakeRepo) Find(ctx context.Context, userID, operation, key string) (*Record, error) {
	return f.findFn(ctx, userID, operation, key)
}
func (f *fakeRepo) Create(ctx context.Context, rec *Record) error { return f.createFn(ctx, rec) }

func TestValidateKey(t *testing.T) {
	assert.ErrorIs(t, ValidateKey(""), ErrKeyRequired)
	assert.ErrorIs(t, ValidateKey(strings.Repeat("a", 65)), ErrKeyTooLong)
	assert.NoError(t, ValidateKey(strings.Repeat("a", 64)))
	assert.NoError(t, ValidateKey("evt-123"))
}

func TestGuard_Check_Miss(t *testing.T) {
	repo := &fakeRepo{
		findFn: func(ctx context.Context, userID, operation, key string) (*Record, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}

	g := NewGuard(24 * time.Hour)
	rec, err := g.Check(context.Background(), repo, uuid.New().String(), OperationClockIn, "evt-1")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGuard_Check_ReplayReturnsOriginal(t *testing.T) {
	entryID := uuid.New()
	stored := &Record{
		ID:        uuid.New(),
		EntryID:   entryID,
		Operation: OperationClockIn,
		Response:  []byte(`{"entry_id":"` + entryID.String() + `"}`),
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	repo := &fakeRepo{
		findFn: func(ctx context.Context, userID, operation, key string) (*Record, error) {
			return stored, nil
		},
	}

	g := NewGuard(24 * time.Hour)
	rec, err := g.Check(context.Background(), repo, uuid.New().String(), OperationClockIn, "evt-1")
	assert.NoError(t, err)
	assert.Equal(t, stored, rec)
}

func TestGuard_Check_StaleKeyRejected(t *testing.T) {
	repo := &fakeRepo{
		findFn: func(ctx context.Context, userID, operation, key string) (*Record, error) {
			return &Record{CreatedAt: time.Now().UTC().Add(-25 * time.Hour)}, nil
		},
	}

	g := NewGuard(24 * time.Hour)
	_, err := g.Check(context.Background(), repo, uuid.New().String(), OperationClockOut, "evt-1")
	assert.ErrorIs(t, err, ErrKeyStale)
}

func TestGuard_Check_WindowDisabled(t *testing.T) {
	repo := &fakeRepo{
		findFn: func(ctx context.Context, userID, operation, key string) (*Record, error) {
			return &Record{CreatedAt: time.Now().UTC().Add(-1000 * time.Hour)}, nil
		},
	}

	g := NewGuard(0)
	rec, err := g.Check(context.Background(), repo, uuid.New().String(), OperationClockIn, "evt-1")
	assert.NoError(t, err)
	assert.NotNil(t, rec)
}
