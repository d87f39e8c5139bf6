package scheduling

import (
	"context"
	"database/sql"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// TxRunner runs a function inside one database transaction. Implemented
// by repository.Database.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// AppointmentWriter is the slice of the appointment repository the
// persister and emergency inserter mutate through.
type AppointmentWriter interface {
	DeleteScheduledForDateTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, date string) (int, error)
	InsertTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, a *domain.Appointment) error
	UpdateTimesTx(ctx context.Context, tx *sql.Tx, tenantID, appointmentID uuid.UUID, start, end, arrival, routeOrder int) error
}

// JobStatusStore transitions jobs between approved and scheduled.
type JobStatusStore interface {
	MarkScheduledTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, jobIDs []uuid.UUID) (int, error)
	MarkApprovedTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, jobIDs []uuid.UUID) (int, error)
}

// Persister performs the atomic flush of a ScheduleResult into
// appointment rows plus the approved->scheduled job transitions. The
// solver's result is never mutated here.
type Persister struct {
	tx           TxRunner
	appointments AppointmentWriter
	jobs         JobStatusStore
	logger       *log.Logger
}

// NewPersister constructs a schedule persister.
func NewPersister(tx TxRunner, appointments AppointmentWriter, jobs JobStatusStore, logger *log.Logger) *Persister {
	return &Persister{tx: tx, appointments: appointments, jobs: jobs, logger: logger}
}

// Persist writes the result's assignments for its date. Existing
// appointments whose job is still merely scheduled are replaced;
// in-progress and completed rows are untouched.
func (p *Persister) Persist(ctx context.Context, tenantID uuid.UUID, result *domain.ScheduleResult) error {
	now := time.Now().UTC()

	jobIDSet := make(map[uuid.UUID]struct{})
	for _, assignment := range result.Assignments {
		for _, stop := range assignment.Stops {
			jobIDSet[stop.JobID] = struct{}{}
		}
	}
	jobIDs := make([]uuid.UUID, 0, len(jobIDSet))
	for id := range jobIDSet {
		jobIDs = append(jobIDs, id)
	}
	sortUUIDs(jobIDs)

	err := p.tx.WithTx(ctx, func(tx *sql.Tx) error {
		deleted, err := p.appointments.DeleteScheduledForDateTx(ctx, tx, tenantID, result.Date)
		if err != nil {
			return err
		}

		inserted := 0
		for _, assignment := range result.Assignments {
			for i, stop := range assignment.Stops {
				appointment := &domain.Appointment{
					ID:               uuid.New(),
					JobID:            stop.JobID,
					StaffID:          assignment.StaffID,
					ScheduleDate:     result.Date,
					TimeWindowStart:  stop.StartMinute,
					TimeWindowEnd:    stop.EndMinute,
					Status:           domain.AppointmentStatusScheduled,
					RouteOrder:       i,
					EstimatedArrival: stop.ArriveMinute,
					CreatedAt:        now,
					UpdatedAt:        now,
				}
				if err := p.appointments.InsertTx(ctx, tx, tenantID, appointment); err != nil {
					return err
				}
				inserted++
			}
		}

		transitioned, err := p.jobs.MarkScheduledTx(ctx, tx, tenantID, jobIDs)
		if err != nil {
			return err
		}

		p.logger.Printf("schedule persisted date=%v appointments_deleted=%v appointments_inserted=%v jobs_scheduled=%v",
			result.Date,
			deleted,
			inserted,
			transitioned,
		)
		return nil
	})
	if err != nil {
		return domain.NewPersistenceError("persist schedule", err)
	}
	return nil
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
