package scheduling

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// JobSnapshotRepository resolves jobs into the solver's flat projection.
// Implementations join through property/customer to fill PropertyLocation
// and CustomerName, breaking the cyclic job<->property<->customer
// reference at load time.
type JobSnapshotRepository interface {
	ListApprovedForDate(ctx context.Context, tenantID uuid.UUID, jobIDFilter *uuid.UUID) ([]domain.JobSnapshot, error)
	ListScheduledForDate(ctx context.Context, tenantID uuid.UUID, date string) ([]domain.JobSnapshot, error)
}

// StaffSnapshotRepository resolves active dispatchable technicians.
type StaffSnapshotRepository interface {
	ListActiveTechs(ctx context.Context, tenantID uuid.UUID) ([]domain.StaffSnapshot, error)
}

// AvailabilityRepository resolves per-staff availability for one date.
type AvailabilityRepository interface {
	ListForDate(ctx context.Context, tenantID uuid.UUID, date string) ([]domain.AvailabilityEntry, error)
}

// SolverInput is the immutable snapshot the loader hands to the solver.
type SolverInput struct {
	Date           string
	TenantID       uuid.UUID
	Staff          []StaffDay
	Jobs           []domain.JobSnapshot
	Matrix         *TravelMatrix
	Seed           int64
	TimeoutSeconds int
	// PreResolvedUnassigned carries jobs the loader already excluded
	// (unlocatable) so the solver's response still accounts for them.
	PreResolvedUnassigned []domain.UnassignedJob
}

// SnapshotLoader builds a read-only projection of staff/availability/jobs
// into SolverInput. The job, staff and availability reads are separate
// queries; they do not share a transaction.
type SnapshotLoader struct {
	jobs         JobSnapshotRepository
	staff        StaffSnapshotRepository
	availability AvailabilityRepository
	oracle       *Oracle
	logger       *log.Logger
}

// NewSnapshotLoader constructs a loader over the given repositories.
func NewSnapshotLoader(jobs JobSnapshotRepository, staff StaffSnapshotRepository, availability AvailabilityRepository, oracle *Oracle, logger *log.Logger) *SnapshotLoader {
	return &SnapshotLoader{jobs: jobs, staff: staff, availability: availability, oracle: oracle, logger: logger}
}

// Load builds a SolverInput for `generate`/`preview` (approved jobs,
// optionally filtered to one job_id).
func (l *SnapshotLoader) Load(ctx context.Context, tenantID uuid.UUID, date string, jobIDFilter *uuid.UUID, seed int64, timeoutSeconds int) (*SolverInput, error) {
	jobs, err := l.jobs.ListApprovedForDate(ctx, tenantID, jobIDFilter)
	if err != nil {
		return nil, fmt.Errorf("list approved jobs: %w", err)
	}
	return l.build(ctx, tenantID, date, jobs, seed, timeoutSeconds)
}

// LoadForReoptimize builds a SolverInput seeded with the currently
// persisted schedule: every approved job plus the scheduled jobs that
// have an appointment on this date.
func (l *SnapshotLoader) LoadForReoptimize(ctx context.Context, tenantID uuid.UUID, date string, seed int64, timeoutSeconds int) (*SolverInput, error) {
	jobs, err := l.jobs.ListScheduledForDate(ctx, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("list scheduled jobs: %w", err)
	}
	return l.build(ctx, tenantID, date, jobs, seed, timeoutSeconds)
}

func (l *SnapshotLoader) build(ctx context.Context, tenantID uuid.UUID, date string, jobs []domain.JobSnapshot, seed int64, timeoutSeconds int) (*SolverInput, error) {
	staffList, err := l.staff.ListActiveTechs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}

	entries, err := l.availability.ListForDate(ctx, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}

	idx := IndexAvailabilityByStaff(entries)
	days := DispatchableStaff(staffList, idx)

	locatable := make([]domain.JobSnapshot, 0, len(jobs))
	var unassigned []domain.UnassignedJob
	for _, j := range jobs {
		if j.Unlocatable {
			unassigned = append(unassigned, domain.UnassignedJob{JobID: j.JobID, Reason: domain.ReasonUnlocatable})
			l.logger.Printf("job excluded from solver input reason=%v job_id=%v", domain.ReasonUnlocatable, j.JobID)
			continue
		}
		locatable = append(locatable, j)
	}

	keyed := make(map[string]domain.Location, len(days)+len(locatable))
	for _, d := range days {
		keyed[d.HomeKey()] = d.Staff.HomeLocation
	}
	for _, j := range locatable {
		keyed[j.PropertyLocation.Key("job", j.JobID)] = j.PropertyLocation
	}

	matrix := l.oracle.NewTravelMatrix(ctx, keyed, time.Now())

	return &SolverInput{
		Date:                  date,
		TenantID:              tenantID,
		Staff:                 days,
		Jobs:                  locatable,
		Matrix:                matrix,
		Seed:                  seed,
		TimeoutSeconds:        timeoutSeconds,
		PreResolvedUnassigned: unassigned,
	}, nil
}
