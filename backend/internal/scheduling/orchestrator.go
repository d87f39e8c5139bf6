package scheduling

import (
	"context"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// ScheduleGenerateRequest is the body of generate, preview and
// re-optimize calls. Exactly these fields; no open-ended maps.
type ScheduleGenerateRequest struct {
	ScheduleDate   string `json:"schedule_date"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
}

// EmergencyInsertRequest is the body of an emergency insertion call.
type EmergencyInsertRequest struct {
	JobID         uuid.UUID `json:"job_id"`
	TargetDate    string    `json:"target_date"`
	PriorityLevel int       `json:"priority_level"`
}

// ClearRequest is the body of a schedule clear call.
type ClearRequest struct {
	ScheduleDate string  `json:"schedule_date"`
	Notes        *string `json:"notes,omitempty"`
}

// JobStopResponse is one stop of one staff tour in the wire shape.
type JobStopResponse struct {
	JobID             uuid.UUID `json:"job_id"`
	CustomerName      string    `json:"customer_name"`
	Address           string    `json:"address"`
	City              string    `json:"city"`
	StartTime         string    `json:"start_time"`
	EndTime           string    `json:"end_time"`
	ArriveTime        string    `json:"arrive_time"`
	DurationMinutes   int       `json:"duration_minutes"`
	BufferMinutes     int       `json:"buffer_minutes"`
	TravelTimeMinutes int       `json:"travel_time_minutes"`
}

// AssignmentResponse is one staff tour in the wire shape.
type AssignmentResponse struct {
	StaffID   uuid.UUID         `json:"staff_id"`
	StaffName string            `json:"staff_name"`
	Jobs      []JobStopResponse `json:"jobs"`
}

// UnassignedJobResponse names an unseated job and why.
type UnassignedJobResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Reason string    `json:"reason"`
}

// ScheduleResponse is the wire shape of a solved (and possibly
// persisted) schedule.
type ScheduleResponse struct {
	ScheduleDate   string                       `json:"schedule_date"`
	IsFeasible     bool                         `json:"is_feasible"`
	HardScore      int64                        `json:"hard_score"`
	SoftScore      int64                        `json:"soft_score"`
	ElapsedMS      int64                        `json:"elapsed_ms"`
	Assignments    []AssignmentResponse         `json:"assignments"`
	UnassignedJobs []UnassignedJobResponse      `json:"unassigned_jobs"`
	Violations     []domain.ConstraintViolation `json:"violations,omitempty"`
}

// Orchestrator maps external requests onto the
// loader, solver, persister, inserter, clear service and capacity
// reporter, and owns the concurrency rules: the process-wide solve cap
// and the per-date advisory lock around every mutating write phase.
type Orchestrator struct {
	loader    *SnapshotLoader
	solver    *Solver
	persister *Persister
	emergency *EmergencyInserter
	clear     *ClearService
	capacity  *CapacityReporter
	locks     DateLocker
	gate      *SolveGate
	appts     AppointmentReader
	logger    *log.Logger
}

// NewOrchestrator wires the request orchestrator.
func NewOrchestrator(
	loader *SnapshotLoader,
	solver *Solver,
	persister *Persister,
	emergency *EmergencyInserter,
	clear *ClearService,
	capacity *CapacityReporter,
	locks DateLocker,
	gate *SolveGate,
	appts AppointmentReader,
	logger *log.Logger,
) *Orchestrator {
	return &Orchestrator{
		loader:    loader,
		solver:    solver,
		persister: persister,
		emergency: emergency,
		clear:     clear,
		capacity:  capacity,
		locks:     locks,
		gate:      gate,
		appts:     appts,
		logger:    logger,
	}
}

func (o *Orchestrator) validateGenerateRequest(req *ScheduleGenerateRequest) error {
	if err := ValidateDate(req.ScheduleDate); err != nil {
		return err
	}
	if req.TimeoutSeconds < 0 || req.TimeoutSeconds > MaxTimeoutSeconds {
		return domain.NewValidationError("timeout_seconds", "must be within [0,120]")
	}
	return nil
}

func (o *Orchestrator) seed(req *ScheduleGenerateRequest) int64 {
	if req.Seed != nil {
		return *req.Seed
	}
	return SeedForDate(req.ScheduleDate)
}

// Generate runs a full solve for the date and persists the result. The
// solver phase runs outside the date lock; only the write phase holds it.
func (o *Orchestrator) Generate(ctx context.Context, tenantID uuid.UUID, req *ScheduleGenerateRequest) (*ScheduleResponse, error) {
	result, input, err := o.solve(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}

	release, err := o.locks.Acquire(ctx, tenantID, req.ScheduleDate)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.persister.Persist(ctx, tenantID, result); err != nil {
		return nil, err
	}
	return o.shapeResponse(result, input), nil
}

// Preview runs the same solve without persisting anything; the store is
// left byte-identical no matter how often it is called.
func (o *Orchestrator) Preview(ctx context.Context, tenantID uuid.UUID, req *ScheduleGenerateRequest) (*ScheduleResponse, error) {
	result, input, err := o.solve(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	return o.shapeResponse(result, input), nil
}

func (o *Orchestrator) solve(ctx context.Context, tenantID uuid.UUID, req *ScheduleGenerateRequest) (*domain.ScheduleResult, *SolverInput, error) {
	if err := o.validateGenerateRequest(req); err != nil {
		return nil, nil, err
	}

	releaseGate, err := o.gate.Acquire()
	if err != nil {
		return nil, nil, err
	}
	defer releaseGate()

	input, err := o.loader.Load(ctx, tenantID, req.ScheduleDate, nil, o.seed(req), req.TimeoutSeconds)
	if err != nil {
		return nil, nil, err
	}

	result := o.solver.Solve(ctx, input)
	return result, input, nil
}

// Reoptimize re-solves the persisted day with local search only, pinning
// every in-progress or completed stop in place.
func (o *Orchestrator) Reoptimize(ctx context.Context, tenantID uuid.UUID, req *ScheduleGenerateRequest) (*ScheduleResponse, error) {
	if err := o.validateGenerateRequest(req); err != nil {
		return nil, err
	}

	releaseGate, err := o.gate.Acquire()
	if err != nil {
		return nil, err
	}
	defer releaseGate()

	input, err := o.loader.LoadForReoptimize(ctx, tenantID, req.ScheduleDate, o.seed(req), req.TimeoutSeconds)
	if err != nil {
		return nil, err
	}

	appointments, err := o.appts.ListForDate(ctx, tenantID, req.ScheduleDate)
	if err != nil {
		return nil, err
	}
	seed, locked := seedCandidateFromAppointments(input, appointments)

	result := o.solver.Reoptimize(ctx, input, seed, locked)

	release, err := o.locks.Acquire(ctx, tenantID, req.ScheduleDate)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.persister.Persist(ctx, tenantID, result); err != nil {
		return nil, err
	}
	return o.shapeResponse(result, input), nil
}

// seedCandidateFromAppointments rebuilds the persisted day as a solver
// candidate. Stops whose appointment is in progress or completed come
// back as the locked set.
func seedCandidateFromAppointments(input *SolverInput, appointments []domain.Appointment) (*Candidate, map[uuid.UUID]bool) {
	staffIDs := make([]uuid.UUID, 0, len(input.Staff))
	byStaff := make(map[uuid.UUID]bool, len(input.Staff))
	for _, d := range input.Staff {
		staffIDs = append(staffIDs, d.Staff.StaffID)
		byStaff[d.Staff.StaffID] = true
	}
	jobKnown := make(map[uuid.UUID]bool, len(input.Jobs))
	for _, j := range input.Jobs {
		jobKnown[j.JobID] = true
	}

	candidate := NewCandidate(staffIDs)
	locked := make(map[uuid.UUID]bool)

	sorted := make([]domain.Appointment, len(appointments))
	copy(sorted, appointments)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StaffID != sorted[j].StaffID {
			return sorted[i].StaffID.String() < sorted[j].StaffID.String()
		}
		return sorted[i].RouteOrder < sorted[j].RouteOrder
	})

	for _, a := range sorted {
		if !byStaff[a.StaffID] || !jobKnown[a.JobID] {
			continue
		}
		candidate.Stops[a.StaffID] = append(candidate.Stops[a.StaffID], domain.StopPlan{
			JobID:        a.JobID,
			ArriveMinute: a.EstimatedArrival,
			StartMinute:  a.TimeWindowStart,
			EndMinute:    a.TimeWindowEnd,
		})
		candidate.JobStaff[a.JobID] = append(candidate.JobStaff[a.JobID], a.StaffID)
		if a.Status == domain.AppointmentStatusInProgress || a.Status == domain.AppointmentStatusCompleted {
			locked[a.JobID] = true
		}
	}

	// Approved jobs not already on the day enter as unassigned so the
	// reinsert operator can pick them up.
	seated := make(map[uuid.UUID]bool, len(candidate.JobStaff))
	for jobID := range candidate.JobStaff {
		seated[jobID] = true
	}
	for _, j := range input.Jobs {
		if !seated[j.JobID] {
			candidate.Unassigned = append(candidate.Unassigned, domain.UnassignedJob{
				JobID:  j.JobID,
				Reason: domain.ReasonNoFit,
			})
		}
	}

	return candidate, locked
}

// InsertEmergency places one approved job into the persisted day with
// minimal disturbance, holding the date lock for the write.
func (o *Orchestrator) InsertEmergency(ctx context.Context, tenantID uuid.UUID, req *EmergencyInsertRequest) (*EmergencyResult, error) {
	if err := ValidateDate(req.TargetDate); err != nil {
		return nil, domain.NewValidationError("target_date", "must be YYYY-MM-DD")
	}
	if req.JobID == uuid.Nil {
		return nil, domain.NewValidationError("job_id", "is required")
	}
	if req.PriorityLevel < int(domain.PriorityNormal) || req.PriorityLevel > int(domain.PriorityUrgent) {
		return nil, domain.NewValidationError("priority_level", "must be 0, 1 or 2")
	}

	release, err := o.locks.Acquire(ctx, tenantID, req.TargetDate)
	if err != nil {
		return nil, err
	}
	defer release()

	return o.emergency.Insert(ctx, tenantID, req.JobID, req.TargetDate, domain.JobPriority(req.PriorityLevel))
}

// Clear snapshots and deletes the date's appointments under the lock.
func (o *Orchestrator) Clear(ctx context.Context, tenantID uuid.UUID, req *ClearRequest, clearedBy uuid.UUID) (*ClearResult, error) {
	if err := ValidateDate(req.ScheduleDate); err != nil {
		return nil, err
	}

	release, err := o.locks.Acquire(ctx, tenantID, req.ScheduleDate)
	if err != nil {
		return nil, err
	}
	defer release()

	return o.clear.Clear(ctx, tenantID, req.ScheduleDate, clearedBy, req.Notes)
}

// Restore reverses one clear under that date's lock.
func (o *Orchestrator) Restore(ctx context.Context, tenantID, auditID uuid.UUID) (*RestoreResult, error) {
	audit, err := o.clear.Detail(ctx, tenantID, auditID)
	if err != nil {
		return nil, err
	}

	release, err := o.locks.Acquire(ctx, tenantID, audit.ScheduleDate)
	if err != nil {
		return nil, err
	}
	defer release()

	return o.clear.Restore(ctx, tenantID, auditID)
}

// Capacity is the read-only slack report; no lock.
func (o *Orchestrator) Capacity(ctx context.Context, tenantID uuid.UUID, date string) (*domain.CapacityReport, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	return o.capacity.Report(ctx, tenantID, date)
}

// RecentAudits lists clear audits from the last N hours.
func (o *Orchestrator) RecentAudits(ctx context.Context, tenantID uuid.UUID, hours int) ([]domain.AuditSummary, error) {
	return o.clear.Recent(ctx, tenantID, hours)
}

// AuditDetail returns one audit row including its payload.
func (o *Orchestrator) AuditDetail(ctx context.Context, tenantID, auditID uuid.UUID) (*domain.ClearAudit, error) {
	return o.clear.Detail(ctx, tenantID, auditID)
}

// shapeResponse projects a ScheduleResult into the wire shape, joining
// job and staff snapshot details back in.
func (o *Orchestrator) shapeResponse(result *domain.ScheduleResult, input *SolverInput) *ScheduleResponse {
	jobByID := make(map[uuid.UUID]domain.JobSnapshot, len(input.Jobs))
	for _, j := range input.Jobs {
		jobByID[j.JobID] = j
	}
	staffByID := make(map[uuid.UUID]StaffDay, len(input.Staff))
	for _, d := range input.Staff {
		staffByID[d.Staff.StaffID] = d
	}

	assignments := make([]AssignmentResponse, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		day := staffByID[a.StaffID]
		jobs := make([]JobStopResponse, 0, len(a.Stops))
		for _, stop := range a.Stops {
			job := jobByID[stop.JobID]
			jobs = append(jobs, JobStopResponse{
				JobID:             stop.JobID,
				CustomerName:      job.CustomerName,
				Address:           job.Address,
				City:              job.PropertyLocation.CityTag,
				StartTime:         FormatMinuteOfDay(stop.StartMinute),
				EndTime:           FormatMinuteOfDay(stop.EndMinute),
				ArriveTime:        FormatMinuteOfDay(stop.ArriveMinute),
				DurationMinutes:   job.DurationMinutes,
				BufferMinutes:     job.BufferMinutes,
				TravelTimeMinutes: stop.TravelMinuteFromPrev,
			})
		}
		assignments = append(assignments, AssignmentResponse{
			StaffID:   a.StaffID,
			StaffName: day.Staff.Name,
			Jobs:      jobs,
		})
	}

	unassigned := make([]UnassignedJobResponse, 0, len(result.UnassignedJobs))
	for _, u := range result.UnassignedJobs {
		unassigned = append(unassigned, UnassignedJobResponse{JobID: u.JobID, Reason: u.Reason})
	}

	return &ScheduleResponse{
		ScheduleDate:   result.Date,
		IsFeasible:     result.Feasible,
		HardScore:      result.Hard,
		SoftScore:      result.Soft,
		ElapsedMS:      result.ElapsedMS,
		Assignments:    assignments,
		UnassignedJobs: unassigned,
		Violations:     result.Violations,
	}
}
