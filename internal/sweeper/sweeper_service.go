package sweeper

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-timeclock/internal/audit"
	"go-timeclock/internal/events"
	kafkaout "go-timeclock/internal/messaging/kafka"
	"go-timeclock/internal/shared/contextutil"
	"go-timeclock/internal/timeentry"
)

// SystemActor is recorded as the audit actor when the timer, not an admin,
// triggers the sweep.
const SystemActor = "system"

const defaultBatchLimit = 500

type Config struct {
	// Threshold is the longest an entry may stay open before it is forced
	// closed. Defaults to 12h.
	Threshold time.Duration
	// BatchLimit caps how many entries one sweep pass touches.
	BatchLimit int
}

// Report summarizes one sweep pass.
type Report struct {
	DryRun    bool      `json:"dry_run"`
	Candidate int       `json:"candidate_count"`
	Closed    int       `json:"closed_count"`
	Failed    int       `json:"failed_count"`
	EntryIDs  []string  `json:"entry_ids"`
	RanAt     time.Time `json:"ran_at"`
}

type Service interface {
	Run(ctx context.Context, actorID string, dryRun bool) (Report, error)
}

type service struct {
	db         *sql.DB
	repo       timeentry.Repository
	auditRepo  audit.Repository
	outboxRepo kafkaout.OutboxRepository
	cfg        Config
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	repo timeentry.Repository,
	auditRepo audit.Repository,
	outboxRepo kafkaout.OutboxRepository,
	cfg Config,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("sweeper.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("sweeper.service")
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 12 * time.Hour
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = defaultBatchLimit
	}
	return &service{db: db, repo: repo, auditRepo: auditRepo, outboxRepo: outboxRepo, cfg: cfg, logger: l}
}

// Run finds entries open past the threshold and force-closes them. Each close
// is its own transaction: one bad row must not strand the rest of the batch.
// A re-run over already-closed entries is a no-op.
func (s *service) Run(ctx context.Context, actorID string, dryRun bool) (Report, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-s.cfg.Threshold)

	candidates, err := s.repo.FindActiveOlderThan(ctx, cutoff, s.cfg.BatchLimit)
	if err != nil {
		return Report{}, err
	}

	actions := Plan(candidates, now, s.cfg.Threshold)
	report := Report{
		DryRun:    dryRun,
		Candidate: len(actions),
		EntryIDs:  make([]string, 0, len(actions)),
		RanAt:     now,
	}
	for _, a := range actions {
		report.EntryIDs = append(report.EntryIDs, a.EntryID.String())
	}

	if dryRun {
		s.logger.Info("sweep dry run",
			zap.Int("candidates", report.Candidate),
			zap.Duration("threshold", s.cfg.Threshold),
		)
		return report, nil
	}

	for _, a := range actions {
		if err := s.close(ctx, actorID, a); err != nil {
			// Log and keep sweeping; the entry stays ACTIVE for the next pass.
			s.logger.Error("sweep close failed",
				zap.String("entry_id", a.EntryID.String()),
				zap.Error(err),
			)
			report.Failed++
			continue
		}
		report.Closed++
	}

	s.logger.Info("sweep complete",
		zap.Int("candidates", report.Candidate),
		zap.Int("closed", report.Closed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *service) close(ctx context.Context, actorID string, a Action) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	qaudit := s.auditRepo.WithTx(tx)
	qoutbox := s.outboxRepo.WithTx(tx)

	// Re-read inside the transaction: the worker may have clocked out (or an
	// overlapping sweep closed the entry) since the batch was listed.
	entry, err := qtx.FindByIDAndCompany(ctx, a.CompanyID.String(), a.EntryID.String())
	if err != nil {
		return err
	}
	if entry.Status != timeentry.StatusActive {
		return nil
	}

	// Backdated close; no device was present, so the geofence outcome stays
	// unknown rather than pretending a fix existed.
	closedAt := a.ClockOutAt
	entry.ClockOutAt = &closedAt
	entry.ExceptionTags = timeentry.ClassifyForcedClose(entry.ExceptionTags)
	entry.Status = timeentry.StatusCompleted

	if err := qtx.Update(ctx, entry); err != nil {
		return err
	}

	payload, err := json.Marshal(events.TimeEntryCompletedEvent{
		EventType:     events.TypeTimeEntryAutoClockedOut,
		EntryID:       entry.ID.String(),
		CompanyID:     entry.CompanyID.String(),
		UserID:        entry.UserID.String(),
		JobID:         entry.JobID.String(),
		ClockInAt:     entry.ClockInAt,
		ClockOutAt:    closedAt,
		ExceptionTags: entry.ExceptionTags,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := qoutbox.Create(ctx, kafkaout.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "time_entry",
		AggregateID:   entry.ID.String(),
		EventType:     events.TypeTimeEntryAutoClockedOut,
		Topic:         events.TimeEntryTopic,
		Payload:       payload,
		Status:        kafkaout.OutboxStatusPending,
	}); err != nil {
		return err
	}

	if err := qaudit.Append(ctx, &audit.Log{
		CompanyID: entry.CompanyID,
		ActorUID:  actorID,
		Action:    audit.ActionAutoClockOut,
		TargetID:  entry.ID.String(),
		Details: audit.Details(map[string]any{
			"clock_in_at":  entry.ClockInAt.Format(time.RFC3339),
			"clock_out_at": closedAt.Format(time.RFC3339),
			"threshold":    s.cfg.Threshold.String(),
		}),
	}); err != nil {
		return err
	}

	return tx.Commit()
}
