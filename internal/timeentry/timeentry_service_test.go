package timeentry

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"go-timeclock/internal/assignment"
	"go-timeclock/internal/audit"
	"go-timeclock/internal/idempotency"
	"go-timeclock/internal/job"
	kafkaout "go-timeclock/internal/messaging/kafka"
	"go-timeclock/internal/rbac"
	"go-timeclock/internal/shared/apperror"
	entryerrors "go-timeclock/internal/timeentry/errors"
)

// Site and worker positions reused across the clock tests. The near point is
// about 42m from the site, the far point about 300m; with the default radius
// and GPS buffer the effective radius is 115m.
const (
	siteLat = 37.7793
	siteLng = -122.4193

	nearLng = -122.41882
	farLng  = -122.41589
)

type stubRepo struct {
	entries     map[string]*TimeEntry
	activeCount int64
	overlap     bool
	createErr   error
	created     []*TimeEntry
	updated     []*TimeEntry
}

func newStubRepo() *stubRepo {
	return &stubRepo{entries: map[string]*TimeEntry{}}
}

func (s *stubRepo) WithTx(tx *sql.Tx) Repository { return s }
func (s *stubRepo) Create(ctx context.Context, e *TimeEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.entries[e.ID.String()] = e
	s.created = append(s.created, e)
	return nil
}
func (s *stubRepo) Update(ctx context.Context, e *TimeEntry) error {
	s.entries[e.ID.String()] = e
	s.updated = append(s.updated, e)
	return nil
}
func (s *stubRepo) FindByIDAndCompany(ctx context.Context, companyID, id string) (*TimeEntry, error) {
	e, ok := s.entries[id]
	if !ok || e.CompanyID.String() != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}
func (s *stubRepo) FindByIDs(ctx context.Context, ids []string) ([]TimeEntry, error) {
	return nil, nil
}
func (s *stubRepo) CountActiveByUser(ctx context.Context, companyID, userID string) (int64, error) {
	return s.activeCount, nil
}
func (s *stubRepo) FindAllByCompany(ctx context.Context, companyID string) ([]TimeEntry, error) {
	var rows []TimeEntry
	for _, e := range s.entries {
		if e.CompanyID.String() == companyID {
			rows = append(rows, *e)
		}
	}
	return rows, nil
}
func (s *stubRepo) FindAllByCompanyAndUser(ctx context.Context, companyID, userID string) ([]TimeEntry, error) {
	var rows []TimeEntry
	for _, e := range s.entries {
		if e.CompanyID.String() == companyID && e.UserID.String() == userID {
			rows = append(rows, *e)
		}
	}
	return rows, nil
}
func (s *stubRepo) HasOverlapping(ctx context.Context, companyID, userID string, start, end time.Time, excludeID string) (bool, error) {
	return s.overlap, nil
}
func (s *stubRepo) FindActiveOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]TimeEntry, error) {
	return nil, nil
}

type stubJobs struct {
	jobs map[string]*job.Job
}

func (s *stubJobs) FindByIDAndCompany(ctx context.Context, companyID, id string) (*job.Job, error) {
	if j, ok := s.jobs[id]; ok && j.CompanyID.String() == companyID {
		return j, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubAssignments struct {
	rows []assignment.Assignment
}

func (s *stubAssignments) FindByCompanyUserJob(ctx context.Context, companyID, userID, jobID string) ([]assignment.Assignment, error) {
	return s.rows, nil
}

type stubIdemRepo struct {
	records map[string]*idempotency.Record
}

func newStubIdemRepo() *stubIdemRepo {
	return &stubIdemRepo{records: map[string]*idempotency.Record{}}
}

func (s *stubIdemRepo) WithTx(tx *sql.Tx) idempotency.Repository { return s }
func (s *stubIdemRepo) Find(ctx context.Context, userID, operation, key string) (*idempotency.Record, error) {
	if rec, ok := s.records[userID+"|"+operation+"|"+key]; ok {
		return rec, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubIdemRepo) Create(ctx context.Context, rec *idempotency.Record) error {
	s.records[rec.UserID.String()+"|"+rec.Operation+"|"+rec.Key] = rec
	return nil
}

type stubAudit struct {
	logs []audit.Log
}

func (s *stubAudit) WithTx(tx *sql.Tx) audit.Repository { return s }
func (s *stubAudit) Append(ctx context.Context, l *audit.Log) error {
	s.logs = append(s.logs, *l)
	return nil
}
func (s *stubAudit) FindAllByCompany(ctx context.Context, companyID string, limit int) ([]audit.Log, error) {
	return s.logs, nil
}

type stubOutbox struct {
	events []kafkaout.OutboxEvent
}

func (s *stubOutbox) WithTx(tx *sql.Tx) kafkaout.OutboxRepository { return s }
func (s *stubOutbox) Create(ctx context.Context, event kafkaout.OutboxEvent) error {
	s.events = append(s.events, event)
	return nil
}
func (s *stubOutbox) ListPending(ctx context.Context, limit int) ([]kafkaout.OutboxEvent, error) {
	return nil, nil
}
func (s *stubOutbox) MarkSent(ctx context.Context, id string) error              { return nil }
func (s *stubOutbox) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

type fixture struct {
	svc         Service
	mock        sqlmock.Sqlmock
	repo        *stubRepo
	jobs        *stubJobs
	assignments *stubAssignments
	idem        *stubIdemRepo
	audit       *stubAudit
	outbox      *stubOutbox

	companyID uuid.UUID
	userID    uuid.UUID
	jobID     uuid.UUID
}

func newServiceFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		mock:        mock,
		repo:        newStubRepo(),
		jobs:        &stubJobs{jobs: map[string]*job.Job{}},
		assignments: &stubAssignments{},
		idem:        newStubIdemRepo(),
		audit:       &stubAudit{},
		outbox:      &stubOutbox{},
		companyID:   uuid.New(),
		userID:      uuid.New(),
		jobID:       uuid.New(),
	}

	f.jobs.jobs[f.jobID.String()] = &job.Job{
		ID:        f.jobID,
		CompanyID: f.companyID,
		Name:      "Mission St repaint",
		Lat:       siteLat,
		Lng:       siteLng,
	}
	f.assignments.rows = []assignment.Assignment{{
		ID:        uuid.New(),
		CompanyID: f.companyID,
		UserID:    f.userID,
		JobID:     f.jobID,
		Active:    true,
	}}

	f.svc = NewService(
		db, f.repo, f.jobs, f.assignments, f.idem, idempotency.NewGuard(24*time.Hour),
		f.audit, f.outbox,
		Config{MaxShift: 12 * time.Hour},
	)
	return f
}

func (f *fixture) clockInReq() ClockInRequest {
	return ClockInRequest{
		JobID:         f.jobID.String(),
		Lat:           siteLat,
		Lng:           nearLng,
		ClientEventID: "evt-" + uuid.New().String()[:8],
	}
}

func (f *fixture) seedActiveEntry(openedAgo time.Duration) *TimeEntry {
	e := &TimeEntry{
		ID:                   uuid.New(),
		CompanyID:            f.companyID,
		UserID:               f.userID,
		JobID:                f.jobID,
		Status:               StatusActive,
		ClockInAt:            time.Now().UTC().Add(-openedAgo),
		ClockInLat:           siteLat,
		ClockInLng:           nearLng,
		ClockInGeofenceValid: true,
		ExceptionTags:        TagSet{},
	}
	f.repo.entries[e.ID.String()] = e
	return e
}

func TestClockIn_Success(t *testing.T) {
	f := newServiceFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.svc.ClockIn(context.Background(), f.companyID.String(), f.userID.String(), f.clockInReq())

	assert.NoError(t, err)
	assert.Equal(t, StatusActive, resp.Status)
	assert.True(t, resp.GeofenceValid)
	assert.Len(t, f.repo.created, 1)

	created := f.repo.created[0]
	assert.Equal(t, resp.EntryID, created.ID.String())
	assert.True(t, created.ClockInGeofenceValid)
	assert.NotNil(t, created.ClockInDistanceM)
	assert.Len(t, f.idem.records, 1)
	assert.Len(t, f.audit.logs, 1)
	assert.Equal(t, audit.ActionClockIn, f.audit.logs[0].Action)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClockIn_OutsideGeofenceRejected(t *testing.T) {
	f := newServiceFixture(t)

	req := f.clockInReq()
	req.Lng = farLng

	_, err := f.svc.ClockIn(context.Background(), f.companyID.String(), f.userID.String(), req)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeFailedPrecondition, appErr.Code)
	// The rejection names the actual distance cap so the worker can act on it.
	assert.Contains(t, appErr.Message, "115.0m")
	assert.Empty(t, f.repo.created)
}

func TestClockIn_SecondActiveEntryRejected(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.activeCount = 1
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.ClockIn(context.Background(), f.companyID.String(), f.userID.String(), f.clockInReq())

	assert.ErrorIs(t, err, entryerrors.ErrAlreadyClockedIn)
	assert.Empty(t, f.repo.created)
}

func TestClockIn_UniqueIndexRaceMapsToAlreadyClockedIn(t *testing.T) {
	f := newServiceFixture(t)
	// The partial unique index fires when two clock-ins race past the count
	// check; the violation must map to the same friendly error.
	f.repo.createErr = &pgconn.PgError{Code: "23505", ConstraintName: "idx_time_entries_one_active"}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.ClockIn(context.Background(), f.companyID.String(), f.userID.String(), f.clockInReq())

	assert.ErrorIs(t, err, entryerrors.ErrAlreadyClockedIn)
}

func TestClockIn_ReplayReturnsOriginalResponse(t *testing.T) {
	f := newServiceFixture(t)

	req := f.clockInReq()
	entryID := uuid.New()
	original := ClockInResponse{
		EntryID:       entryID.String(),
		Status:        StatusActive,
		ClockInAt:     time.Now().UTC().Format(time.RFC3339),
		GeofenceValid: true,
	}
	body, _ := json.Marshal(original)
	f.idem.records[f.userID.String()+"|"+idempotency.OperationClockIn+"|"+req.ClientEventID] = &idempotency.Record{
		UserID:    f.userID,
		Operation: idempotency.OperationClockIn,
		Key:       req.ClientEventID,
		EntryID:   entryID,
		Response:  body,
		CreatedAt: time.Now().UTC().Add(-time.Minute),
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	resp, err := f.svc.ClockIn(context.Background(), f.companyID.String(), f.userID.String(), req)

	assert.NoError(t, err)
	assert.Equal(t, original, resp)
	// No second entry, no second audit row.
	assert.Empty(t, f.repo.created)
	assert.Empty(t, f.audit.logs)
}

func TestClockIn_NotAssigned(t *testing.T) {
	f := newServiceFixture(t)
	f.assignments.rows = nil

	_, err := f.svc.ClockIn(context.Background(), f.companyID.String(), f.userID.String(), f.clockInReq())
	assert.ErrorIs(t, err, entryerrors.ErrNotAssigned)
}

func TestClockIn_AssignmentWindowExpired(t *testing.T) {
	f := newServiceFixture(t)
	ended := time.Now().UTC().Add(-72 * time.Hour)
	f.assignments.rows[0].EndDate = &ended

	_, err := f.svc.ClockIn(context.Background(), f.companyID.String(), f.userID.String(), f.clockInReq())
	assert.ErrorIs(t, err, entryerrors.ErrAssignmentWindowInactive)
}

func TestClockIn_MissingKeyRejected(t *testing.T) {
	f := newServiceFixture(t)
	req := f.clockInReq()
	req.ClientEventID = ""

	_, err := f.svc.ClockIn(context.Background(), f.companyID.String(), f.userID.String(), req)
	assert.ErrorIs(t, err, idempotency.ErrKeyRequired)
}

func TestClockOut_Success(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(8 * time.Hour)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.svc.ClockOut(context.Background(), f.companyID.String(), f.userID.String(), ClockOutRequest{
		EntryID: entry.ID.String(),
		Lat:     siteLat,
		Lng:     nearLng,
	})

	assert.NoError(t, err)
	assert.True(t, resp.Ok)
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.Empty(t, resp.Warning)

	got := f.repo.entries[entry.ID.String()]
	assert.Equal(t, StatusCompleted, got.Status)
	assert.NotNil(t, got.ClockOutAt)
	assert.Empty(t, []string(got.ExceptionTags))

	assert.Len(t, f.outbox.events, 1)
	assert.Equal(t, "time_entry", f.outbox.events[0].AggregateType)
	assert.Len(t, f.audit.logs, 1)
	assert.Equal(t, audit.ActionClockOut, f.audit.logs[0].Action)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClockOut_OutsideGeofenceSucceedsWithWarning(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(8 * time.Hour)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.svc.ClockOut(context.Background(), f.companyID.String(), f.userID.String(), ClockOutRequest{
		EntryID: entry.ID.String(),
		Lat:     siteLat,
		Lng:     farLng,
	})

	assert.NoError(t, err)
	assert.True(t, resp.Ok)
	assert.NotEmpty(t, resp.Warning)

	got := f.repo.entries[entry.ID.String()]
	assert.Equal(t, StatusCompleted, got.Status)
	assert.True(t, got.ExceptionTags.Has(TagGeofenceOut))
	if assert.NotNil(t, got.ClockOutGeofenceValid) {
		assert.False(t, *got.ClockOutGeofenceValid)
	}
}

func TestClockOut_OverLengthShiftTagged(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(13 * time.Hour)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.ClockOut(context.Background(), f.companyID.String(), f.userID.String(), ClockOutRequest{
		EntryID: entry.ID.String(),
		Lat:     siteLat,
		Lng:     nearLng,
	})

	assert.NoError(t, err)
	assert.True(t, f.repo.entries[entry.ID.String()].ExceptionTags.Has(TagExceedsMax))
}

func TestClockOut_OverlapTagged(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(4 * time.Hour)
	f.repo.overlap = true
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.ClockOut(context.Background(), f.companyID.String(), f.userID.String(), ClockOutRequest{
		EntryID: entry.ID.String(),
		Lat:     siteLat,
		Lng:     nearLng,
	})

	assert.NoError(t, err)
	assert.True(t, f.repo.entries[entry.ID.String()].ExceptionTags.Has(TagOverlap))
}

func TestClockOut_AlreadyClosedIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(8 * time.Hour)
	closedAt := time.Now().UTC().Add(-time.Hour)
	entry.Status = StatusCompleted
	entry.ClockOutAt = &closedAt

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	resp, err := f.svc.ClockOut(context.Background(), f.companyID.String(), f.userID.String(), ClockOutRequest{
		EntryID: entry.ID.String(),
		Lat:     siteLat,
		Lng:     nearLng,
	})

	assert.NoError(t, err)
	assert.True(t, resp.Ok)
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.Empty(t, f.repo.updated)
	assert.Empty(t, f.outbox.events)
}

func TestClockOut_WrongOwnerRejected(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(8 * time.Hour)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.ClockOut(context.Background(), f.companyID.String(), uuid.New().String(), ClockOutRequest{
		EntryID: entry.ID.String(),
		Lat:     siteLat,
		Lng:     nearLng,
	})
	assert.ErrorIs(t, err, entryerrors.ErrNotEntryOwner)
}

func TestUpdateEntry_LockedWithoutForceRejected(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(8 * time.Hour)
	entry.Status = StatusApproved
	entry.Approved = true

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	newOut := time.Now().UTC().Format(time.RFC3339)
	_, err := f.svc.UpdateEntry(context.Background(), f.companyID.String(), f.userID.String(), rbac.RoleManager, entry.ID.String(), UpdateEntryRequest{
		ClockOutAt: &newOut,
	})
	assert.ErrorIs(t, err, entryerrors.ErrEntryLocked)
}

func TestUpdateEntry_ForceRequiresAdmin(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(8 * time.Hour)
	entry.Status = StatusApproved
	entry.Approved = true

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	newOut := time.Now().UTC().Format(time.RFC3339)
	_, err := f.svc.UpdateEntry(context.Background(), f.companyID.String(), f.userID.String(), rbac.RoleManager, entry.ID.String(), UpdateEntryRequest{
		ClockOutAt: &newOut,
		Force:      true,
	})
	assert.ErrorIs(t, err, entryerrors.ErrForceRequiresAdmin)
}

func TestUpdateEntry_AdminForceAuditsAsForceEdit(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(8 * time.Hour)
	entry.Status = StatusApproved
	entry.Approved = true

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	newOut := entry.ClockInAt.Add(9 * time.Hour).Format(time.RFC3339)
	resp, err := f.svc.UpdateEntry(context.Background(), f.companyID.String(), f.userID.String(), rbac.RoleAdmin, entry.ID.String(), UpdateEntryRequest{
		ClockOutAt: &newOut,
		Force:      true,
	})

	assert.NoError(t, err)
	assert.NotNil(t, resp.ClockOutAt)
	assert.Len(t, f.audit.logs, 1)
	assert.Equal(t, audit.ActionForceEdit, f.audit.logs[0].Action)
}

func TestUpdateEntry_RejectsClockOutBeforeClockIn(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(8 * time.Hour)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	bad := entry.ClockInAt.Add(-time.Hour).Format(time.RFC3339)
	_, err := f.svc.UpdateEntry(context.Background(), f.companyID.String(), f.userID.String(), rbac.RoleManager, entry.ID.String(), UpdateEntryRequest{
		ClockOutAt: &bad,
	})
	assert.Error(t, err)
	assert.Empty(t, f.repo.updated)
}

func TestDispute_TagsAndAudits(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(2 * time.Hour)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.Dispute(context.Background(), f.companyID.String(), f.userID.String(), entry.ID.String(), "missed lunch break")

	assert.NoError(t, err)
	assert.True(t, f.repo.entries[entry.ID.String()].ExceptionTags.Has(TagDisputed))
	assert.Len(t, f.audit.logs, 1)
	assert.Equal(t, audit.ActionDispute, f.audit.logs[0].Action)
}

func TestDispute_LockedEntryStillAudited(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(2 * time.Hour)
	entry.Status = StatusApproved
	entry.Approved = true

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.Dispute(context.Background(), f.companyID.String(), f.userID.String(), entry.ID.String(), "hours look wrong")

	assert.NoError(t, err)
	assert.False(t, f.repo.entries[entry.ID.String()].ExceptionTags.Has(TagDisputed))
	assert.Len(t, f.audit.logs, 1)
}

func TestGetByID_WorkerCannotReadOthers(t *testing.T) {
	f := newServiceFixture(t)
	entry := f.seedActiveEntry(2 * time.Hour)

	_, err := f.svc.GetByID(context.Background(), f.companyID.String(), uuid.New().String(), false, entry.ID.String())
	assert.ErrorIs(t, err, entryerrors.ErrNotEntryOwner)

	resp, err := f.svc.GetByID(context.Background(), f.companyID.String(), uuid.New().String(), true, entry.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, entry.ID.String(), resp.ID)
}
