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

// AppointmentReader is the read slice of the appointment repository the
// emergency inserter, clear service and re-optimization path consume.
type AppointmentReader interface {
	ListForDate(ctx context.Context, tenantID uuid.UUID, date string) ([]domain.Appointment, error)
}

// JobSnapshotGetter resolves a single job into its solver projection.
type JobSnapshotGetter interface {
	GetSnapshot(ctx context.Context, tenantID, jobID uuid.UUID) (*domain.JobSnapshot, error)
}

// EmergencyResult is the outcome of one insertion attempt. Infeasibility
// is reported, never raised.
type EmergencyResult struct {
	Success    bool               `json:"success"`
	Reason     string             `json:"reason,omitempty"`
	StaffID    uuid.UUID          `json:"staff_id,omitempty"`
	Assignment *domain.Assignment `json:"assignment,omitempty"`
}

// EmergencyInserter is a minimal-disturbance slot finder for
// one high-priority job against the persisted schedule. Only the chosen
// host tour is retimed; every other staff member's stop sequence is left
// byte-identical.
type EmergencyInserter struct {
	jobs         JobSnapshotGetter
	jobList      JobSnapshotRepository
	staff        StaffSnapshotRepository
	availability AvailabilityRepository
	appointments AppointmentReader
	writer       AppointmentWriter
	status       JobStatusStore
	tx           TxRunner
	oracle       *Oracle
	logger       *log.Logger
}

// NewEmergencyInserter constructs an emergency inserter.
func NewEmergencyInserter(
	jobs JobSnapshotGetter,
	jobList JobSnapshotRepository,
	staff StaffSnapshotRepository,
	availability AvailabilityRepository,
	appointments AppointmentReader,
	writer AppointmentWriter,
	status JobStatusStore,
	tx TxRunner,
	oracle *Oracle,
	logger *log.Logger,
) *EmergencyInserter {
	return &EmergencyInserter{
		jobs:         jobs,
		jobList:      jobList,
		staff:        staff,
		availability: availability,
		appointments: appointments,
		writer:       writer,
		status:       status,
		tx:           tx,
		oracle:       oracle,
		logger:       logger,
	}
}

// insertionOption is one candidate (staff, index) placement with its cost.
type insertionOption struct {
	staffID     uuid.UUID
	index       int
	addedTravel int
	start       int
	stops       []domain.StopPlan
}

// Insert attempts to place the job into the persisted schedule for the
// date with minimal added travel, shifting only the host tour.
func (e *EmergencyInserter) Insert(ctx context.Context, tenantID, jobID uuid.UUID, date string, priorityLevel domain.JobPriority) (*EmergencyResult, error) {
	job, err := e.jobs.GetSnapshot(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusApproved {
		return nil, domain.NewValidationError("job_id", "job must be in approved status")
	}
	if job.Unlocatable {
		return &EmergencyResult{Success: false, Reason: domain.ReasonUnlocatable}, nil
	}
	if priorityLevel > job.Priority {
		job.Priority = priorityLevel
	}

	staffList, err := e.staff.ListActiveTechs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	entries, err := e.availability.ListForDate(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	days := DispatchableStaff(staffList, IndexAvailabilityByStaff(entries))
	if len(days) == 0 {
		return &EmergencyResult{Success: false, Reason: domain.ReasonNoEligibleStaff}, nil
	}

	appointments, err := e.appointments.ListForDate(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}

	// Snapshot every job already on the day so tour retiming has
	// locations and durations for the existing stops too.
	scheduled, err := e.jobList.ListScheduledForDate(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	allJobs := append(scheduled, *job)

	keyed := make(map[string]domain.Location, len(days)+len(allJobs))
	for _, d := range days {
		keyed[d.HomeKey()] = d.Staff.HomeLocation
	}
	for _, j := range allJobs {
		if !j.Unlocatable {
			keyed[j.PropertyLocation.Key("job", j.JobID)] = j.PropertyLocation
		}
	}
	matrix := e.oracle.NewTravelMatrix(ctx, keyed, time.Time{})

	engine := NewConstraintEngine(&SolverInput{
		Date:   date,
		Staff:  days,
		Jobs:   allJobs,
		Matrix: matrix,
	}, e.oracle)

	tours, rowsByJob := groupAppointments(appointments)

	best := e.findBestInsertion(ctx, engine, days, tours, job)
	if best == nil {
		return &EmergencyResult{Success: false, Reason: e.infeasibleReason(days, job)}, nil
	}

	if err := e.persistInsertion(ctx, tenantID, date, job.JobID, best, rowsByJob); err != nil {
		return nil, err
	}

	e.logger.Printf("emergency job inserted job_id=%v date=%v staff_id=%v added_travel_minutes=%v start_minute=%v",
		job.JobID,
		date,
		best.staffID,
		best.addedTravel,
		best.start,
	)
	return &EmergencyResult{
		Success:    true,
		StaffID:    best.staffID,
		Assignment: &domain.Assignment{StaffID: best.staffID, Stops: best.stops},
	}, nil
}

// groupAppointments builds per-staff ordered tours and a job->row index
// from persisted appointment rows.
func groupAppointments(appointments []domain.Appointment) (map[uuid.UUID][]uuid.UUID, map[uuid.UUID]domain.Appointment) {
	tours := make(map[uuid.UUID][]uuid.UUID)
	rows := make(map[uuid.UUID]domain.Appointment, len(appointments))
	for _, a := range appointments {
		tours[a.StaffID] = append(tours[a.StaffID], a.JobID)
		rows[a.JobID] = a
	}
	return tours, rows
}

func (e *EmergencyInserter) findBestInsertion(ctx context.Context, engine *ConstraintEngine, days []StaffDay, tours map[uuid.UUID][]uuid.UUID, job *domain.JobSnapshot) *insertionOption {
	sorted := make([]StaffDay, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Staff.StaffID.String() < sorted[j].Staff.StaffID.String()
	})

	var best *insertionOption
	for _, day := range sorted {
		if len(job.MissingEquipment(day.Staff.EquipmentOwned)) > 0 {
			continue
		}
		tour := tours[day.Staff.StaffID]
		baseline := tourTravel(ctx, engine, day, tour)

		for idx := 0; idx <= len(tour); idx++ {
			trial := insertJobID(tour, job.JobID, idx)
			stops, ok := engine.timeTour(ctx, day, trial)
			if !ok {
				continue
			}
			option := &insertionOption{
				staffID:     day.Staff.StaffID,
				index:       idx,
				addedTravel: totalTravel(stops) + travelHomeFromLast(ctx, engine, day, stops) - baseline,
				start:       stops[idx].StartMinute,
				stops:       stops,
			}
			if best == nil ||
				option.addedTravel < best.addedTravel ||
				(option.addedTravel == best.addedTravel && option.start < best.start) {
				best = option
			}
		}
	}
	return best
}

func (e *EmergencyInserter) infeasibleReason(days []StaffDay, job *domain.JobSnapshot) string {
	equipped := false
	for _, day := range days {
		if len(job.MissingEquipment(day.Staff.EquipmentOwned)) == 0 {
			equipped = true
			break
		}
	}
	if !equipped {
		return domain.ReasonEquipment
	}
	return domain.ReasonNoFitWithTravel
}

// persistInsertion writes the host tour's new shape in one transaction:
// shifted rows updated in place, the new stop inserted, the job moved to
// scheduled. No other staff member's rows are touched.
func (e *EmergencyInserter) persistInsertion(ctx context.Context, tenantID uuid.UUID, date string, jobID uuid.UUID, best *insertionOption, rowsByJob map[uuid.UUID]domain.Appointment) error {
	now := time.Now().UTC()
	err := e.tx.WithTx(ctx, func(tx *sql.Tx) error {
		for i, stop := range best.stops {
			if stop.JobID == jobID {
				appointment := &domain.Appointment{
					ID:               uuid.New(),
					JobID:            jobID,
					StaffID:          best.staffID,
					ScheduleDate:     date,
					TimeWindowStart:  stop.StartMinute,
					TimeWindowEnd:    stop.EndMinute,
					Status:           domain.AppointmentStatusScheduled,
					RouteOrder:       i,
					EstimatedArrival: stop.ArriveMinute,
					CreatedAt:        now,
					UpdatedAt:        now,
				}
				if err := e.writer.InsertTx(ctx, tx, tenantID, appointment); err != nil {
					return err
				}
				continue
			}
			row, ok := rowsByJob[stop.JobID]
			if !ok {
				return domain.NewNotFoundError("appointment for job", stop.JobID.String())
			}
			if err := e.writer.UpdateTimesTx(ctx, tx, tenantID, row.ID, stop.StartMinute, stop.EndMinute, stop.ArriveMinute, i); err != nil {
				return err
			}
		}
		_, err := e.status.MarkScheduledTx(ctx, tx, tenantID, []uuid.UUID{jobID})
		return err
	})
	if err != nil {
		return domain.NewPersistenceError("insert emergency job", err)
	}
	return nil
}

func totalTravel(stops []domain.StopPlan) int {
	sum := 0
	for _, s := range stops {
		sum += s.TravelMinuteFromPrev
	}
	return sum
}

func tourTravel(ctx context.Context, engine *ConstraintEngine, day StaffDay, tour []uuid.UUID) int {
	stops, _ := engine.timeTour(ctx, day, tour)
	return totalTravel(stops) + travelHomeFromLast(ctx, engine, day, stops)
}

func travelHomeFromLast(ctx context.Context, engine *ConstraintEngine, day StaffDay, stops []domain.StopPlan) int {
	if len(stops) == 0 {
		return 0
	}
	last, ok := engine.jobByID[stops[len(stops)-1].JobID]
	if !ok {
		return 0
	}
	fromKey := last.PropertyLocation.Key("job", last.JobID)
	return engine.matrix.Minutes(ctx, engine.oracle, fromKey, day.HomeKey(), time.Time{})
}
