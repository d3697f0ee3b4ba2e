package review

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-timeclock/internal/audit"
	reviewerrors "go-timeclock/internal/review/errors"
	"go-timeclock/internal/timeentry"
	entryerrors "go-timeclock/internal/timeentry/errors"
)

// MaxBatchSize bounds one bulk approval request.
const MaxBatchSize = 500

type Service interface {
	BulkApprove(ctx context.Context, companyID, actorID string, req BulkApproveRequest) (BulkApproveResponse, error)
}

type service struct {
	db        *sql.DB
	repo      timeentry.Repository
	auditRepo audit.Repository
	logger    *zap.Logger
}

func NewService(db *sql.DB, repo timeentry.Repository, auditRepo audit.Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("review.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("review.service")
	}
	return &service{db: db, repo: repo, auditRepo: auditRepo, logger: l}
}

// BulkApprove approves the COMPLETED entries in the batch inside a single
// transaction. Entries that cannot be approved are reported, never silently
// dropped: already-approved ids are an idempotent success, anything else that
// does not qualify lands in skipped. Only infrastructure failures roll the
// whole batch back.
func (s *service) BulkApprove(ctx context.Context, companyID, actorID string, req BulkApproveRequest) (BulkApproveResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return BulkApproveResponse{}, entryerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return BulkApproveResponse{}, entryerrors.ErrInvalidUserID
	}
	if len(req.EntryIDs) == 0 {
		return BulkApproveResponse{}, reviewerrors.ErrNoEntryIDs
	}
	if len(req.EntryIDs) > MaxBatchSize {
		return BulkApproveResponse{}, reviewerrors.ErrTooManyEntryIDs
	}
	for _, id := range req.EntryIDs {
		if _, err := uuid.Parse(id); err != nil {
			return BulkApproveResponse{}, reviewerrors.ErrInvalidEntryID
		}
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BulkApproveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	qaudit := s.auditRepo.WithTx(tx)

	entries, err := qtx.FindByIDs(ctx, req.EntryIDs)
	if err != nil {
		return BulkApproveResponse{}, err
	}
	byID := make(map[string]*timeentry.TimeEntry, len(entries))
	for i := range entries {
		byID[entries[i].ID.String()] = &entries[i]
	}

	resp := BulkApproveResponse{
		AlreadyApproved: []string{},
		Skipped:         []string{},
		ApprovedIDs:     []string{},
	}

	for _, id := range req.EntryIDs {
		entry, ok := byID[id]
		// Missing ids and entries from another tenant look the same to the
		// caller.
		if !ok || entry.CompanyID != companyUUID {
			resp.Skipped = append(resp.Skipped, id)
			continue
		}

		switch entry.Status {
		case timeentry.StatusApproved, timeentry.StatusInvoiced:
			resp.AlreadyApproved = append(resp.AlreadyApproved, id)
			continue
		case timeentry.StatusCompleted:
		default:
			resp.Skipped = append(resp.Skipped, id)
			continue
		}

		entry.Approved = true
		entry.ApprovedBy = &actorUUID
		entry.ApprovedAt = &now
		entry.Status = timeentry.StatusApproved

		if err := qtx.Update(ctx, entry); err != nil {
			return BulkApproveResponse{}, err
		}

		if err := qaudit.Append(ctx, &audit.Log{
			CompanyID: entry.CompanyID,
			ActorUID:  actorID,
			Action:    audit.ActionBulkApprove,
			TargetID:  id,
			Details: audit.Details(map[string]any{
				"exception_tags": []string(entry.ExceptionTags),
				"approved_at":    now.Format(time.RFC3339),
			}),
		}); err != nil {
			return BulkApproveResponse{}, err
		}

		resp.ApprovedIDs = append(resp.ApprovedIDs, id)
		resp.ApprovedCount++
	}

	if err := tx.Commit(); err != nil {
		return BulkApproveResponse{}, err
	}
	resp.AlreadyApprovedCount = len(resp.AlreadyApproved)
	resp.SkippedCount = len(resp.Skipped)

	s.logger.Info("bulk approve complete",
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
		zap.Int("approved", resp.ApprovedCount),
		zap.Int("already_approved", len(resp.AlreadyApproved)),
		zap.Int("skipped", len(resp.Skipped)),
	)
	return resp, nil
}
