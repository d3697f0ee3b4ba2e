package invoice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-timeclock/internal/audit"
	"go-timeclock/internal/events"
	invoiceerrors "go-timeclock/internal/invoice/errors"
	"go-timeclock/internal/job"
	kafkaout "go-timeclock/internal/messaging/kafka"
	"go-timeclock/internal/shared/contextutil"
	"go-timeclock/internal/shared/counter"
	"go-timeclock/internal/timeentry"
	entryerrors "go-timeclock/internal/timeentry/errors"
)

// MaxBatchSize bounds one invoice.
const MaxBatchSize = 100

type Service interface {
	CreateFromTime(ctx context.Context, companyID, actorID string, req CreateFromTimeRequest) (InvoiceResponse, error)
	GetAll(ctx context.Context, companyID string) ([]InvoiceResponse, error)
	GetByID(ctx context.Context, companyID, id string) (InvoiceResponse, error)
}

type service struct {
	db         *sql.DB
	repo       Repository
	entries    timeentry.Repository
	jobs       job.Repository
	counters   counter.Repository
	auditRepo  audit.Repository
	outboxRepo kafkaout.OutboxRepository
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	entries timeentry.Repository,
	jobs job.Repository,
	counters counter.Repository,
	auditRepo audit.Repository,
	outboxRepo kafkaout.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("invoice.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("invoice.service")
	}
	return &service{
		db:         db,
		repo:       repo,
		entries:    entries,
		jobs:       jobs,
		counters:   counters,
		auditRepo:  auditRepo,
		outboxRepo: outboxRepo,
		logger:     l,
	}
}

// CreateFromTime builds one invoice from a batch of approved entries. The
// batch is all-or-nothing: every entry must be billable before anything is
// written, so an invoice can never capture half a batch.
func (s *service) CreateFromTime(ctx context.Context, companyID, actorID string, req CreateFromTimeRequest) (InvoiceResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return InvoiceResponse{}, entryerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return InvoiceResponse{}, entryerrors.ErrInvalidUserID
	}
	if len(req.EntryIDs) == 0 {
		return InvoiceResponse{}, invoiceerrors.ErrNoEntryIDs
	}
	if len(req.EntryIDs) > MaxBatchSize {
		return InvoiceResponse{}, invoiceerrors.ErrTooManyEntryIDs
	}
	seen := make(map[string]struct{}, len(req.EntryIDs))
	for _, id := range req.EntryIDs {
		if _, err := uuid.Parse(id); err != nil {
			return InvoiceResponse{}, invoiceerrors.ErrInvalidEntryID
		}
		if _, dup := seen[id]; dup {
			return InvoiceResponse{}, invoiceerrors.ErrDuplicateEntryID
		}
		seen[id] = struct{}{}
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return InvoiceResponse{}, err
	}
	defer tx.Rollback()

	qentries := s.entries.WithTx(tx)
	qinv := s.repo.WithTx(tx)
	qaudit := s.auditRepo.WithTx(tx)
	qoutbox := s.outboxRepo.WithTx(tx)

	rows, err := qentries.FindByIDs(ctx, req.EntryIDs)
	if err != nil {
		return InvoiceResponse{}, err
	}
	byID := make(map[string]*timeentry.TimeEntry, len(rows))
	for i := range rows {
		byID[rows[i].ID.String()] = &rows[i]
	}

	// Validate the whole batch before touching anything.
	batch := make([]*timeentry.TimeEntry, 0, len(req.EntryIDs))
	for _, id := range req.EntryIDs {
		entry, ok := byID[id]
		if !ok || entry.CompanyID != companyUUID {
			return InvoiceResponse{}, invoiceerrors.EntryNotBillable(id, "not found")
		}
		if entry.InvoiceID != nil {
			return InvoiceResponse{}, invoiceerrors.EntryNotBillable(id, "already invoiced")
		}
		if entry.Status != timeentry.StatusApproved || !entry.Approved {
			return InvoiceResponse{}, invoiceerrors.EntryNotBillable(id, "not approved")
		}
		if entry.ClockOutAt == nil {
			return InvoiceResponse{}, invoiceerrors.EntryNotBillable(id, "still open")
		}
		batch = append(batch, entry)
	}

	seq, err := s.counters.GetNextValue(ctx, companyID, CounterType)
	if err != nil {
		return InvoiceResponse{}, err
	}

	inv := &Invoice{
		ID:            uuid.New(),
		CompanyID:     companyUUID,
		InvoiceNumber: FormatNumber(seq),
		Status:        StatusDraft,
		CreatedBy:     actorUUID,
	}

	rates := make(map[string]float64)
	for _, entry := range batch {
		hours := roundHours(entry.Duration())
		rate, err := s.hourlyRate(ctx, rates, companyID, entry.JobID.String())
		if err != nil {
			return InvoiceResponse{}, err
		}
		if req.Rate != nil && rate != *req.Rate {
			return InvoiceResponse{}, invoiceerrors.RateMismatch(entry.JobID.String(), rate, *req.Rate)
		}
		inv.TimeEntryIDs = append(inv.TimeEntryIDs, entry.ID.String())
		item := LineItem{
			EntryID:    entry.ID.String(),
			UserID:     entry.UserID.String(),
			JobID:      entry.JobID.String(),
			ClockInAt:  entry.ClockInAt,
			ClockOutAt: *entry.ClockOutAt,
			Hours:      hours,
			HourlyRate: rate,
			Amount:     math.Round(hours*rate*100) / 100,
		}
		inv.LineItems = append(inv.LineItems, item)
		inv.TotalHours += item.Hours
		inv.TotalAmount += item.Amount
	}

	if err := qinv.Create(ctx, inv); err != nil {
		return InvoiceResponse{}, err
	}

	for _, entry := range batch {
		entry.InvoiceID = &inv.ID
		entry.InvoicedAt = &now
		entry.Status = timeentry.StatusInvoiced
		if err := qentries.Update(ctx, entry); err != nil {
			return InvoiceResponse{}, err
		}
	}

	if err := s.enqueueCreatedEvent(ctx, qoutbox, inv, req.EntryIDs); err != nil {
		return InvoiceResponse{}, err
	}

	if err := qaudit.Append(ctx, &audit.Log{
		CompanyID: companyUUID,
		ActorUID:  actorID,
		Action:    audit.ActionCreateInvoice,
		TargetID:  inv.ID.String(),
		Details: audit.Details(map[string]any{
			"invoice_number": inv.InvoiceNumber,
			"entry_count":    len(batch),
			"total_hours":    inv.TotalHours,
			"total_amount":   inv.TotalAmount,
		}),
	}); err != nil {
		return InvoiceResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return InvoiceResponse{}, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("company_id", companyID),
		zap.Int("entries", len(batch)),
		zap.Float64("total_hours", inv.TotalHours),
	)
	return mapToResponse(*inv), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]InvoiceResponse, error) {
	rows, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	res := make([]InvoiceResponse, len(rows))
	for i, r := range rows {
		res[i] = mapToResponse(r)
	}
	return res, nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (InvoiceResponse, error) {
	inv, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, invoiceerrors.ErrInvoiceNotFound
		}
		return InvoiceResponse{}, err
	}
	return mapToResponse(*inv), nil
}

// hourlyRate looks up the job's rate once per batch; a job without a rate
// bills at zero rather than blocking the invoice.
func (s *service) hourlyRate(ctx context.Context, cache map[string]float64, companyID, jobID string) (float64, error) {
	if rate, ok := cache[jobID]; ok {
		return rate, nil
	}
	j, err := s.jobs.FindByIDAndCompany(ctx, companyID, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cache[jobID] = 0
			return 0, nil
		}
		return 0, err
	}
	rate := 0.0
	if j.HourlyRate != nil {
		rate = *j.HourlyRate
	}
	cache[jobID] = rate
	return rate, nil
}

func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

func (s *service) enqueueCreatedEvent(ctx context.Context, qoutbox kafkaout.OutboxRepository, inv *Invoice, entryIDs []string) error {
	if s.outboxRepo == nil {
		return nil
	}
	payload, err := json.Marshal(events.InvoiceCreatedEvent{
		EventType:     events.TypeInvoiceCreated,
		InvoiceID:     inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		CompanyID:     inv.CompanyID.String(),
		TotalHours:    inv.TotalHours,
		TotalAmount:   inv.TotalAmount,
		TimeEntryIDs:  entryIDs,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return qoutbox.Create(ctx, kafkaout.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "invoice",
		AggregateID:   inv.ID.String(),
		EventType:     events.TypeInvoiceCreated,
		Topic:         events.InvoiceTopic,
		Payload:       payload,
		Status:        kafkaout.OutboxStatusPending,
	})
}
