package scheduling

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// ScheduledMinutesReader sums a date's already-booked appointment time.
type ScheduledMinutesReader interface {
	SumScheduledMinutes(ctx context.Context, tenantID uuid.UUID, date string) (int, error)
}

// CapacityReporter produces the read-only "how much slack is left"
// summary over one date. It never takes the per-date lock.
type CapacityReporter struct {
	staff        StaffSnapshotRepository
	availability AvailabilityRepository
	appointments ScheduledMinutesReader
	logger       *log.Logger
}

// NewCapacityReporter constructs a capacity reporter.
func NewCapacityReporter(staff StaffSnapshotRepository, availability AvailabilityRepository, appointments ScheduledMinutesReader, logger *log.Logger) *CapacityReporter {
	return &CapacityReporter{staff: staff, availability: availability, appointments: appointments, logger: logger}
}

// Report sums available minutes across active techs' availability
// entries and subtracts the minutes already booked.
func (r *CapacityReporter) Report(ctx context.Context, tenantID uuid.UUID, date string) (*domain.CapacityReport, error) {
	staffList, err := r.staff.ListActiveTechs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	entries, err := r.availability.ListForDate(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}
	idx := IndexAvailabilityByStaff(entries)

	total := 0
	available := 0
	for _, s := range staffList {
		entry, ok := idx[s.StaffID]
		if !ok {
			continue
		}
		minutes := entry.AvailableMinutes()
		if minutes > 0 {
			available++
		}
		total += minutes
	}

	scheduled, err := r.appointments.SumScheduledMinutes(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}

	remaining := total - scheduled
	return &domain.CapacityReport{
		ScheduleDate:             date,
		TotalStaff:               len(staffList),
		AvailableStaff:           available,
		TotalCapacityMinutes:     total,
		ScheduledMinutes:         scheduled,
		RemainingCapacityMinutes: remaining,
		CanAcceptMore:            remaining > 0,
	}, nil
}
