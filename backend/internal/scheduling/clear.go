package scheduling

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// AppointmentAuditReader is the extra read the clear path needs: the job
// status behind each appointment on the date.
type AppointmentAuditReader interface {
	AppointmentReader
	JobStatuses(ctx context.Context, tenantID uuid.UUID, date string) (map[uuid.UUID]string, error)
	DeleteAllForDateTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, date string) (int, error)
}

// ClearAuditStore owns the audit rows that make a clear reversible.
type ClearAuditStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, audit *domain.ClearAudit) error
	Get(ctx context.Context, tenantID, auditID uuid.UUID) (*domain.ClearAudit, error)
	DeleteTx(ctx context.Context, tx *sql.Tx, tenantID, auditID uuid.UUID) error
	ListRecent(ctx context.Context, tenantID uuid.UUID, hours int) ([]domain.AuditSummary, error)
}

// JobStatusReader resolves one job's current status, used by restore's
// best-effort row reconstruction.
type JobStatusReader interface {
	GetStatus(ctx context.Context, tenantID, jobID uuid.UUID) (string, error)
}

// ClearResult is the response shape of one clear operation.
type ClearResult struct {
	AuditID             uuid.UUID `json:"audit_id"`
	AppointmentsDeleted int       `json:"appointments_deleted"`
	JobsReset           int       `json:"jobs_reset"`
	ClearedAt           time.Time `json:"cleared_at"`
}

// RestoreResult is the response shape of one restore operation.
type RestoreResult struct {
	AuditID              uuid.UUID `json:"audit_id"`
	AppointmentsRestored int       `json:"appointments_restored"`
	JobsUpdated          int       `json:"jobs_updated"`
}

// ClearService performs snapshot-and-delete of a day's schedule
// with reversibility through audit rows. Audit rows do not expire; a
// restore accepts an audit of any age.
type ClearService struct {
	tx           TxRunner
	appointments AppointmentAuditReader
	writer       AppointmentWriter
	audits       ClearAuditStore
	jobs         JobStatusStore
	jobStatus    JobStatusReader
	logger       *log.Logger
}

// NewClearService constructs a clear/restore service.
func NewClearService(tx TxRunner, appointments AppointmentAuditReader, writer AppointmentWriter, audits ClearAuditStore, jobs JobStatusStore, jobStatus JobStatusReader, logger *log.Logger) *ClearService {
	return &ClearService{
		tx:           tx,
		appointments: appointments,
		writer:       writer,
		audits:       audits,
		jobs:         jobs,
		jobStatus:    jobStatus,
		logger:       logger,
	}
}

// Clear serializes every appointment of the date into an audit payload,
// deletes them, and resets their scheduled jobs to approved, all in one
// transaction. A date with no appointments still produces an audit row
// reporting zero work, so repeated clears stay observable.
func (s *ClearService) Clear(ctx context.Context, tenantID uuid.UUID, date string, clearedBy uuid.UUID, notes *string) (*ClearResult, error) {
	appointments, err := s.appointments.ListForDate(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	statuses, err := s.appointments.JobStatuses(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}

	serialized := make([]domain.SerializedAppointment, 0, len(appointments))
	resetSet := make(map[uuid.UUID]struct{})
	for _, a := range appointments {
		serialized = append(serialized, domain.SerializedAppointment{
			AppointmentID:    a.ID,
			JobID:            a.JobID,
			StaffID:          a.StaffID,
			Date:             a.ScheduleDate,
			TimeWindowStart:  FormatMinuteOfDay(a.TimeWindowStart),
			TimeWindowEnd:    FormatMinuteOfDay(a.TimeWindowEnd),
			EstimatedArrival: FormatMinuteOfDay(a.EstimatedArrival),
			RouteOrder:       a.RouteOrder,
			Status:           a.Status,
			JobStatusBefore:  statuses[a.JobID],
		})
		if statuses[a.JobID] == domain.JobStatusScheduled {
			resetSet[a.JobID] = struct{}{}
		}
	}
	jobsReset := make([]uuid.UUID, 0, len(resetSet))
	for id := range resetSet {
		jobsReset = append(jobsReset, id)
	}
	sortUUIDs(jobsReset)

	audit := &domain.ClearAudit{
		AuditID:                uuid.New(),
		ScheduleDate:           date,
		ClearedAt:              time.Now().UTC(),
		ClearedBy:              clearedBy,
		Notes:                  notes,
		SerializedAppointments: serialized,
		JobsReset:              jobsReset,
		AppointmentCount:       len(serialized),
	}

	var deleted, reset int
	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.audits.CreateTx(ctx, tx, tenantID, audit); err != nil {
			return err
		}
		var err error
		if deleted, err = s.appointments.DeleteAllForDateTx(ctx, tx, tenantID, date); err != nil {
			return err
		}
		if reset, err = s.jobs.MarkApprovedTx(ctx, tx, tenantID, jobsReset); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewPersistenceError("clear schedule", err)
	}

	s.logger.Printf("schedule cleared date=%v audit_id=%v appointments_deleted=%v jobs_reset=%v cleared_by=%v",
		date,
		audit.AuditID,
		deleted,
		reset,
		clearedBy,
	)
	return &ClearResult{
		AuditID:             audit.AuditID,
		AppointmentsDeleted: deleted,
		JobsReset:           reset,
		ClearedAt:           audit.ClearedAt,
	}, nil
}

// Restore recreates the audited appointments, moves the reset jobs back
// to scheduled, and consumes the audit row. Row reconstruction is
// best-effort: a serialized appointment whose job cannot be read or has
// since been cancelled or closed, or whose clock strings fail to parse, is skipped
// and logged while the rest of the restore proceeds.
func (s *ClearService) Restore(ctx context.Context, tenantID, auditID uuid.UUID) (*RestoreResult, error) {
	audit, err := s.audits.Get(ctx, tenantID, auditID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var restored, jobsUpdated int
	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		for _, row := range audit.SerializedAppointments {
			appointment, convErr := s.reconstruct(ctx, tenantID, row, now)
			if convErr != nil {
				s.logger.Printf("skipping unreconstructable appointment audit_id=%v appointment_id=%v job_id=%v error=%v",
					auditID,
					row.AppointmentID,
					row.JobID,
					convErr,
				)
				continue
			}
			if err := s.writer.InsertTx(ctx, tx, tenantID, appointment); err != nil {
				return err
			}
			restored++
		}

		var err error
		if jobsUpdated, err = s.jobs.MarkScheduledTx(ctx, tx, tenantID, audit.JobsReset); err != nil {
			return err
		}
		return s.audits.DeleteTx(ctx, tx, tenantID, auditID)
	})
	if err != nil {
		return nil, domain.NewPersistenceError("restore schedule", err)
	}

	s.logger.Printf("schedule restored audit_id=%v date=%v appointments_restored=%v jobs_updated=%v",
		auditID,
		audit.ScheduleDate,
		restored,
		jobsUpdated,
	)
	return &RestoreResult{
		AuditID:              auditID,
		AppointmentsRestored: restored,
		JobsUpdated:          jobsUpdated,
	}, nil
}

// reconstruct turns one serialized row back into an appointment, failing
// when its job is gone, cancelled or closed, or its clock strings are garbage.
func (s *ClearService) reconstruct(ctx context.Context, tenantID uuid.UUID, row domain.SerializedAppointment, now time.Time) (*domain.Appointment, error) {
	status, err := s.jobStatus.GetStatus(ctx, tenantID, row.JobID)
	if err != nil {
		return nil, err
	}
	if status == domain.JobStatusCancelled || status == domain.JobStatusClosed {
		return nil, domain.NewValidationError("job_id", "job is no longer schedulable")
	}

	start, err := ParseClock(row.TimeWindowStart)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(row.TimeWindowEnd)
	if err != nil {
		return nil, err
	}
	arrival, err := ParseClock(row.EstimatedArrival)
	if err != nil {
		return nil, err
	}

	return &domain.Appointment{
		ID:               row.AppointmentID,
		JobID:            row.JobID,
		StaffID:          row.StaffID,
		ScheduleDate:     row.Date,
		TimeWindowStart:  start,
		TimeWindowEnd:    end,
		Status:           row.Status,
		RouteOrder:       row.RouteOrder,
		EstimatedArrival: arrival,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Recent returns audit summaries from the last N hours, newest first.
func (s *ClearService) Recent(ctx context.Context, tenantID uuid.UUID, hours int) ([]domain.AuditSummary, error) {
	if hours <= 0 {
		hours = 24
	}
	return s.audits.ListRecent(ctx, tenantID, hours)
}

// Detail returns the full audit row including its appointments payload.
func (s *ClearService) Detail(ctx context.Context, tenantID, auditID uuid.UUID) (*domain.ClearAudit, error) {
	return s.audits.Get(ctx, tenantID, auditID)
}
