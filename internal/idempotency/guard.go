package idempotency

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-timeclock/internal/shared/apperror"

	"gorm.io/gorm"
)

var (
	ErrKeyRequired = apperror.New(
		apperror.CodeInvalidInput,
		"client_event_id is required",
		http.StatusBadRequest,
	)
	ErrKeyTooLong = apperror.New(
		apperror.CodeInvalidInput,
		"client_event_id must be at most 64 characters",
		http.StatusBadRequest,
	)
	ErrKeyStale = apperror.New(
		apperror.CodeFailedPrecondition,
		"client_event_id is outside the accepted replay window",
		http.StatusConflict,
	)
)

// Guard detects replayed clock operations. Lookups and writes go through the
// transaction-bound repository supplied per call, never a detached connection.
type Guard struct {
	window time.Duration
}

// NewGuard builds a guard with the given replay freshness window. A zero or
// negative window disables the staleness check.
func NewGuard(window time.Duration) *Guard {
	return &Guard{window: window}
}

// ValidateKey enforces the opaque-id contract before any transaction starts.
func ValidateKey(key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// Check returns the original record when (userID, operation, key) has already
// been executed within the freshness window. A stale record is an error, not a
// replay. A miss returns (nil, nil); the caller proceeds and must write the
// record in the same transaction via Save.
func (g *Guard) Check(ctx context.Context, repo Repository, userID, operation, key string) (*Record, error) {
	rec, err := repo.Find(ctx, userID, operation, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if g.window > 0 && time.Since(rec.CreatedAt) > g.window {
		return nil, ErrKeyStale
	}
	return rec, nil
}

// Save records the result of a freshly executed operation.
func (g *Guard) Save(ctx context.Context, repo Repository, rec *Record) error {
	return repo.Create(ctx, rec)
}
