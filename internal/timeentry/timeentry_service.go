package timeentry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-timeclock/internal/assignment"
	"go-timeclock/internal/audit"
	"go-timeclock/internal/events"
	"go-timeclock/internal/geofence"
	"go-timeclock/internal/idempotency"
	"go-timeclock/internal/job"
	kafkaout "go-timeclock/internal/messaging/kafka"
	"go-timeclock/internal/shared/apperror"
	"go-timeclock/internal/shared/contextutil"
	entryerrors "go-timeclock/internal/timeentry/errors"
)

func apperrInvalidTime(field string) error {
	return apperror.New(apperror.CodeInvalidInput, field+" must be a valid RFC3339 timestamp after clock-in", http.StatusBadRequest)
}

// Config carries the clock policy knobs, read once at wiring time.
type Config struct {
	// MaxShift is the longest shift before the exceeds tag applies and the
	// sweeper force-closes an open entry.
	MaxShift time.Duration
	// AccuracyCeilingMeters rejects clock-ins whose GPS fix is worse than
	// this. Zero disables the check.
	AccuracyCeilingMeters float64
}

type Service interface {
	ClockIn(ctx context.Context, companyID, userID string, req ClockInRequest) (ClockInResponse, error)
	ClockOut(ctx context.Context, companyID, userID string, req ClockOutRequest) (ClockOutResponse, error)
	UpdateEntry(ctx context.Context, companyID, actorID, role, id string, req UpdateEntryRequest) (TimeEntryResponse, error)
	Dispute(ctx context.Context, companyID, userID, entryID, reason string) error
	GetAll(ctx context.Context, companyID, actorID string, canReadAll bool) ([]TimeEntryResponse, error)
	GetByID(ctx context.Context, companyID, actorID string, canReadAll bool, id string) (TimeEntryResponse, error)
}

type service struct {
	db          *sql.DB
	repo        Repository
	jobs        job.Repository
	assignments assignment.Repository
	idemRepo    idempotency.Repository
	guard       *idempotency.Guard
	auditRepo   audit.Repository
	outboxRepo  kafkaout.OutboxRepository
	cfg         Config
	logger      *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	jobs job.Repository,
	assignments assignment.Repository,
	idemRepo idempotency.Repository,
	guard *idempotency.Guard,
	auditRepo audit.Repository,
	outboxRepo kafkaout.OutboxRepository,
	cfg Config,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("timeentry.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("timeentry.service")
	}
	if cfg.MaxShift <= 0 {
		cfg.MaxShift = 12 * time.Hour
	}
	return &service{
		db:          db,
		repo:        repo,
		jobs:        jobs,
		assignments: assignments,
		idemRepo:    idemRepo,
		guard:       guard,
		auditRepo:   auditRepo,
		outboxRepo:  outboxRepo,
		cfg:         cfg,
		logger:      l,
	}
}

func (s *service) ClockIn(ctx context.Context, companyID, userID string, req ClockInRequest) (ClockInResponse, error) {
	s.logger.Debug("clock-in requested",
		zap.String("company_id", companyID),
		zap.String("user_id", userID),
		zap.String("job_id", req.JobID),
		zap.String("client_event_id", req.ClientEventID),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return ClockInResponse{}, entryerrors.ErrInvalidCompanyID
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return ClockInResponse{}, entryerrors.ErrInvalidUserID
	}
	jobUUID, err := uuid.Parse(req.JobID)
	if err != nil {
		return ClockInResponse{}, entryerrors.ErrInvalidJobID
	}
	if err := idempotency.ValidateKey(req.ClientEventID); err != nil {
		return ClockInResponse{}, err
	}

	now := time.Now().UTC()

	j, err := s.jobs.FindByIDAndCompany(ctx, companyID, req.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ClockInResponse{}, entryerrors.ErrJobNotFound
		}
		return ClockInResponse{}, err
	}

	// Eligibility: an active assignment whose optional window contains now.
	assignments, err := s.assignments.FindByCompanyUserJob(ctx, companyID, userID, req.JobID)
	if err != nil {
		return ClockInResponse{}, err
	}
	if len(assignments) == 0 {
		return ClockInResponse{}, entryerrors.ErrNotAssigned
	}
	covered := false
	for _, a := range assignments {
		if a.CoversInstant(now) {
			covered = true
			break
		}
	}
	if !covered {
		return ClockInResponse{}, entryerrors.ErrAssignmentWindowInactive
	}

	// Accuracy ceiling is independent of distance and only applies here.
	if err := geofence.CheckAccuracy(req.Accuracy, s.cfg.AccuracyCeilingMeters); err != nil {
		return ClockInResponse{}, err
	}

	// Clock-in hard-fails on geofence; the entry is never created.
	fenceRes, err := geofence.Evaluate(j.Fence(), geofence.Point{Lat: req.Lat, Lng: req.Lng}, req.Accuracy)
	if err != nil {
		return ClockInResponse{}, err
	}
	if !fenceRes.Valid {
		s.logger.Warn("clock-in rejected outside geofence",
			zap.String("user_id", userID),
			zap.String("job_id", req.JobID),
			zap.Float64("distance_m", fenceRes.DistanceMeters),
			zap.Float64("effective_radius_m", fenceRes.EffectiveRadiusMeters),
		)
		return ClockInResponse{}, apperror.New(apperror.CodeFailedPrecondition, fenceRes.FailureMessage(), http.StatusConflict)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ClockInResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	qidem := s.idemRepo.WithTx(tx)
	qaudit := s.auditRepo.WithTx(tx)

	// Replay detection shares the transaction with the insert it guards, so
	// two duplicate submissions cannot both miss.
	if prior, err := s.guard.Check(ctx, qidem, userID, idempotency.OperationClockIn, req.ClientEventID); err != nil {
		return ClockInResponse{}, err
	} else if prior != nil {
		var resp ClockInResponse
		if err := json.Unmarshal(prior.Response, &resp); err != nil {
			return ClockInResponse{}, err
		}
		s.logger.Info("clock-in replayed",
			zap.String("user_id", userID),
			zap.String("entry_id", resp.EntryID),
			zap.String("client_event_id", req.ClientEventID),
		)
		return resp, nil
	}

	// One open entry per worker. The count gives the friendly error; the
	// partial unique index makes the race impossible regardless.
	active, err := qtx.CountActiveByUser(ctx, companyID, userID)
	if err != nil {
		return ClockInResponse{}, err
	}
	if active > 0 {
		return ClockInResponse{}, entryerrors.ErrAlreadyClockedIn
	}

	entry := &TimeEntry{
		ID:                   uuid.New(),
		CompanyID:            companyUUID,
		UserID:               userUUID,
		JobID:                jobUUID,
		Status:               StatusActive,
		ClockInAt:            now,
		ClockInLat:           req.Lat,
		ClockInLng:           req.Lng,
		ClockInGeofenceValid: true,
		ExceptionTags:        TagSet{},
		ClientEventID:        req.ClientEventID,
		DeviceID:             req.DeviceID,
		ClockInDistanceM:     &fenceRes.DistanceMeters,
		ClockInAccuracyM:     req.Accuracy,
		EffectiveRadiusM:     &fenceRes.EffectiveRadiusMeters,
	}

	if err := qtx.Create(ctx, entry); err != nil {
		if IsUniqueViolation(err) {
			return ClockInResponse{}, entryerrors.ErrAlreadyClockedIn
		}
		return ClockInResponse{}, err
	}

	resp := ClockInResponse{
		EntryID:       entry.ID.String(),
		Status:        entry.Status,
		ClockInAt:     entry.ClockInAt.Format(time.RFC3339),
		GeofenceValid: true,
	}

	respJSON, err := json.Marshal(resp)
	if err != nil {
		return ClockInResponse{}, err
	}
	if err := s.guard.Save(ctx, qidem, &idempotency.Record{
		UserID:    userUUID,
		Operation: idempotency.OperationClockIn,
		Key:       req.ClientEventID,
		EntryID:   entry.ID,
		Response:  respJSON,
	}); err != nil {
		if IsUniqueViolation(err) {
			// A concurrent duplicate won the insert; surrendering here lets
			// the caller's retry replay the stored result.
			return ClockInResponse{}, entryerrors.ErrAlreadyClockedIn
		}
		return ClockInResponse{}, err
	}

	if err := qaudit.Append(ctx, &audit.Log{
		CompanyID: companyUUID,
		ActorUID:  userID,
		Action:    audit.ActionClockIn,
		TargetID:  entry.ID.String(),
		Details: audit.Details(map[string]any{
			"job_id":             req.JobID,
			"distance_m":         fenceRes.DistanceMeters,
			"effective_radius_m": fenceRes.EffectiveRadiusMeters,
			"client_event_id":    req.ClientEventID,
		}),
	}); err != nil {
		return ClockInResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return ClockInResponse{}, err
	}

	s.logger.Info("clock-in success",
		zap.String("entry_id", entry.ID.String()),
		zap.String("company_id", companyID),
		zap.String("user_id", userID),
		zap.String("job_id", req.JobID),
	)
	return resp, nil
}

func (s *service) ClockOut(ctx context.Context, companyID, userID string, req ClockOutRequest) (ClockOutResponse, error) {
	s.logger.Debug("clock-out requested",
		zap.String("company_id", companyID),
		zap.String("user_id", userID),
		zap.String("entry_id", req.EntryID),
	)

	if _, err := uuid.Parse(companyID); err != nil {
		return ClockOutResponse{}, entryerrors.ErrInvalidCompanyID
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return ClockOutResponse{}, entryerrors.ErrInvalidUserID
	}
	if _, err := uuid.Parse(req.EntryID); err != nil {
		return ClockOutResponse{}, entryerrors.ErrInvalidEntryID
	}
	if req.ClientEventID != "" {
		if err := idempotency.ValidateKey(req.ClientEventID); err != nil {
			return ClockOutResponse{}, err
		}
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ClockOutResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	qidem := s.idemRepo.WithTx(tx)
	qaudit := s.auditRepo.WithTx(tx)
	qoutbox := s.outboxRepo.WithTx(tx)

	if req.ClientEventID != "" {
		if prior, err := s.guard.Check(ctx, qidem, userID, idempotency.OperationClockOut, req.ClientEventID); err != nil {
			return ClockOutResponse{}, err
		} else if prior != nil {
			var resp ClockOutResponse
			if err := json.Unmarshal(prior.Response, &resp); err != nil {
				return ClockOutResponse{}, err
			}
			return resp, nil
		}
	}

	entry, err := qtx.FindByIDAndCompany(ctx, companyID, req.EntryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ClockOutResponse{}, entryerrors.ErrEntryNotFound
		}
		return ClockOutResponse{}, err
	}
	if entry.UserID != userUUID {
		return ClockOutResponse{}, entryerrors.ErrNotEntryOwner
	}

	// Already closed: an idempotent success, whatever id the retry carried.
	if entry.Status != StatusActive {
		resp := ClockOutResponse{Ok: true, EntryID: entry.ID.String(), Status: entry.Status}
		if entry.ClockOutAt != nil {
			resp.ClockOutAt = entry.ClockOutAt.Format(time.RFC3339)
		}
		return resp, nil
	}

	j, err := s.jobs.FindByIDAndCompany(ctx, companyID, entry.JobID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ClockOutResponse{}, entryerrors.ErrJobNotFound
		}
		return ClockOutResponse{}, err
	}

	// Malformed coordinates are still a hard failure; a bad fence result is
	// not. The asymmetry with clock-in is deliberate: never strand a worker
	// on a shift they cannot close.
	fenceRes, err := geofence.Evaluate(j.Fence(), geofence.Point{Lat: req.Lat, Lng: req.Lng}, req.Accuracy)
	if err != nil {
		return ClockOutResponse{}, err
	}

	overlaps, err := qtx.HasOverlapping(ctx, companyID, userID, entry.ClockInAt, now, entry.ID.String())
	if err != nil {
		return ClockOutResponse{}, err
	}

	entry.ClockOutAt = &now
	entry.ClockOutLat = &req.Lat
	entry.ClockOutLng = &req.Lng
	valid := fenceRes.Valid
	entry.ClockOutGeofenceValid = &valid
	entry.ClockOutDistanceM = &fenceRes.DistanceMeters
	entry.ClockOutAccuracyM = req.Accuracy
	entry.ExceptionTags = ClassifyClockOut(entry.ExceptionTags, fenceRes.Valid, now.Sub(entry.ClockInAt), s.cfg.MaxShift, overlaps)
	entry.Status = StatusCompleted
	if req.ClientEventID != "" {
		entry.ClockOutClientEventID = &req.ClientEventID
	}
	if req.DeviceID != nil {
		entry.DeviceID = req.DeviceID
	}

	if err := qtx.Update(ctx, entry); err != nil {
		return ClockOutResponse{}, err
	}

	resp := ClockOutResponse{
		Ok:         true,
		EntryID:    entry.ID.String(),
		Status:     entry.Status,
		ClockOutAt: now.Format(time.RFC3339),
	}
	if !fenceRes.Valid {
		resp.Warning = "clock-out recorded outside the job geofence: " + fenceRes.FailureMessage()
	}

	if req.ClientEventID != "" {
		respJSON, err := json.Marshal(resp)
		if err != nil {
			return ClockOutResponse{}, err
		}
		if err := s.guard.Save(ctx, qidem, &idempotency.Record{
			UserID:    userUUID,
			Operation: idempotency.OperationClockOut,
			Key:       req.ClientEventID,
			EntryID:   entry.ID,
			Response:  respJSON,
		}); err != nil {
			return ClockOutResponse{}, err
		}
	}

	if err := s.enqueueCompletedEvent(ctx, qoutbox, entry, events.TypeTimeEntryCompleted); err != nil {
		return ClockOutResponse{}, err
	}

	if err := qaudit.Append(ctx, &audit.Log{
		CompanyID: entry.CompanyID,
		ActorUID:  userID,
		Action:    audit.ActionClockOut,
		TargetID:  entry.ID.String(),
		Details: audit.Details(map[string]any{
			"geofence_valid": fenceRes.Valid,
			"distance_m":     fenceRes.DistanceMeters,
			"exception_tags": []string(entry.ExceptionTags),
		}),
	}); err != nil {
		return ClockOutResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return ClockOutResponse{}, err
	}

	s.logger.Info("clock-out success",
		zap.String("entry_id", entry.ID.String()),
		zap.String("user_id", userID),
		zap.Bool("geofence_valid", fenceRes.Valid),
		zap.Strings("exception_tags", entry.ExceptionTags),
	)
	return resp, nil
}

func (s *service) UpdateEntry(ctx context.Context, companyID, actorID, role, id string, req UpdateEntryRequest) (TimeEntryResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return TimeEntryResponse{}, entryerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(id); err != nil {
		return TimeEntryResponse{}, entryerrors.ErrInvalidEntryID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TimeEntryResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	qaudit := s.auditRepo.WithTx(tx)

	entry, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TimeEntryResponse{}, entryerrors.ErrEntryNotFound
		}
		return TimeEntryResponse{}, err
	}

	forced := entry.Locked() && req.Force
	if err := CheckMutable(entry, role, req.Force); err != nil {
		return TimeEntryResponse{}, err
	}

	if req.ClockInAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ClockInAt)
		if err != nil {
			return TimeEntryResponse{}, apperrInvalidTime("clock_in_at")
		}
		entry.ClockInAt = t.UTC()
	}
	if req.ClockOutAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ClockOutAt)
		if err != nil {
			return TimeEntryResponse{}, apperrInvalidTime("clock_out_at")
		}
		u := t.UTC()
		entry.ClockOutAt = &u
	}
	if entry.ClockOutAt != nil && !entry.ClockOutAt.After(entry.ClockInAt) {
		return TimeEntryResponse{}, apperrInvalidTime("clock_out_at")
	}

	// Corrected times can change the over-length classification.
	if entry.ClockOutAt != nil && s.cfg.MaxShift > 0 && entry.Duration() > s.cfg.MaxShift {
		entry.ExceptionTags = entry.ExceptionTags.Add(TagExceedsMax)
	}

	if err := qtx.Update(ctx, entry); err != nil {
		return TimeEntryResponse{}, err
	}

	action := audit.ActionEdit
	if forced {
		// The audit trail must show that a force-edit bypassed the guard.
		action = audit.ActionForceEdit
	}
	if err := qaudit.Append(ctx, &audit.Log{
		CompanyID: entry.CompanyID,
		ActorUID:  actorID,
		Action:    action,
		TargetID:  entry.ID.String(),
		Details: audit.Details(map[string]any{
			"forced":       forced,
			"clock_in_at":  entry.ClockInAt.Format(time.RFC3339),
			"clock_out_at": req.ClockOutAt,
		}),
	}); err != nil {
		return TimeEntryResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return TimeEntryResponse{}, err
	}

	s.logger.Info("entry updated",
		zap.String("entry_id", id),
		zap.String("actor_id", actorID),
		zap.Bool("forced", forced),
	)
	return mapToResponse(*entry), nil
}

// Dispute applies the worker-raised exception tag. Tags never block, but a
// locked entry is left alone; the dispute still lands in the audit trail.
func (s *service) Dispute(ctx context.Context, companyID, userID, entryID, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	qaudit := s.auditRepo.WithTx(tx)

	entry, err := qtx.FindByIDAndCompany(ctx, companyID, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entryerrors.ErrEntryNotFound
		}
		return err
	}

	if !entry.Locked() && !entry.ExceptionTags.Has(TagDisputed) {
		entry.ExceptionTags = entry.ExceptionTags.Add(TagDisputed)
		if err := qtx.Update(ctx, entry); err != nil {
			return err
		}
	}

	if err := qaudit.Append(ctx, &audit.Log{
		CompanyID: entry.CompanyID,
		ActorUID:  userID,
		Action:    audit.ActionDispute,
		TargetID:  entry.ID.String(),
		Details:   audit.Details(map[string]any{"reason": reason, "locked": entry.Locked()}),
	}); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *service) GetAll(ctx context.Context, companyID, actorID string, canReadAll bool) ([]TimeEntryResponse, error) {
	var (
		rows []TimeEntry
		err  error
	)
	if canReadAll {
		rows, err = s.repo.FindAllByCompany(ctx, companyID)
	} else {
		if _, parseErr := uuid.Parse(actorID); parseErr != nil {
			return nil, entryerrors.ErrInvalidUserID
		}
		rows, err = s.repo.FindAllByCompanyAndUser(ctx, companyID, actorID)
	}
	if err != nil {
		return nil, err
	}
	res := make([]TimeEntryResponse, len(rows))
	for i, r := range rows {
		res[i] = mapToResponse(r)
	}
	return res, nil
}

func (s *service) GetByID(ctx context.Context, companyID, actorID string, canReadAll bool, id string) (TimeEntryResponse, error) {
	entry, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TimeEntryResponse{}, entryerrors.ErrEntryNotFound
		}
		return TimeEntryResponse{}, err
	}
	if !canReadAll && entry.UserID.String() != actorID {
		return TimeEntryResponse{}, entryerrors.ErrNotEntryOwner
	}
	return mapToResponse(*entry), nil
}

func (s *service) enqueueCompletedEvent(ctx context.Context, qoutbox kafkaout.OutboxRepository, entry *TimeEntry, eventType string) error {
	if s.outboxRepo == nil {
		return nil
	}
	payload, err := json.Marshal(events.TimeEntryCompletedEvent{
		EventType:     eventType,
		EntryID:       entry.ID.String(),
		CompanyID:     entry.CompanyID.String(),
		UserID:        entry.UserID.String(),
		JobID:         entry.JobID.String(),
		ClockInAt:     entry.ClockInAt,
		ClockOutAt:    *entry.ClockOutAt,
		ExceptionTags: entry.ExceptionTags,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return qoutbox.Create(ctx, kafkaout.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "time_entry",
		AggregateID:   entry.ID.String(),
		EventType:     eventType,
		Topic:         events.TimeEntryTopic,
		Payload:       payload,
		Status:        kafkaout.OutboxStatusPending,
	})
}
