package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// timeTour walks an ordered list of job IDs for one staff day and assigns
// arrive/start/end minutes per the invariants in the data model: the
// first arrival is window_start plus travel from home, each later arrival
// is the previous end plus inter-stop travel, starts wait out
// earliest_start bounds and the lunch interval, and end = start +
// duration + buffer.
//
// The boolean reports hard feasibility: equipment owned, every stop ends
// inside the window and its latest_finish bound, and the trip home from
// the last stop lands before window_end. The stops are returned either
// way so callers seeding from persisted data can keep an infeasible tour
// and let the constraint engine price it.
func (e *ConstraintEngine) timeTour(ctx context.Context, day StaffDay, jobIDs []uuid.UUID) ([]domain.StopPlan, bool) {
	return e.timeTourWithForcedStart(ctx, day, jobIDs, uuid.Nil, 0)
}

// timeTourWithForcedStart is timeTour with one job pinned to an exact
// start minute, used for multi-staff coherence (identical start across N
// tours). Waiting between arrival and the forced start is allowed;
// arriving after it is not.
func (e *ConstraintEngine) timeTourWithForcedStart(ctx context.Context, day StaffDay, jobIDs []uuid.UUID, forcedJob uuid.UUID, forcedStart int) ([]domain.StopPlan, bool) {
	entry := day.Availability
	stops := make([]domain.StopPlan, 0, len(jobIDs))
	feasible := true

	prevKey := day.HomeKey()
	prevEnd := entry.WindowStart

	for i, jobID := range jobIDs {
		job, ok := e.jobByID[jobID]
		if !ok {
			return stops, false
		}
		if len(job.MissingEquipment(day.Staff.EquipmentOwned)) > 0 {
			feasible = false
		}

		jobKey := job.PropertyLocation.Key("job", job.JobID)
		travel := e.matrix.Minutes(ctx, e.oracle, prevKey, jobKey, time.Time{})

		arrive := prevEnd + travel
		start := arrive
		if job.EarliestStart != nil && start < *job.EarliestStart {
			start = *job.EarliestStart
		}
		if entry.OverlapsLunch(start, start+job.DurationMinutes+job.BufferMinutes) {
			start = *entry.LunchStart + entry.LunchDurationMinutes
		}
		if jobID == forcedJob {
			if arrive > forcedStart {
				return stops, false
			}
			if entry.OverlapsLunch(forcedStart, forcedStart+job.DurationMinutes+job.BufferMinutes) {
				return stops, false
			}
			start = forcedStart
		}
		end := start + job.DurationMinutes + job.BufferMinutes

		if arrive > entry.WindowEnd || end > entry.WindowEnd {
			feasible = false
		}
		if job.EarliestStart != nil && start < *job.EarliestStart {
			feasible = false
		}
		if job.LatestFinish != nil && end > *job.LatestFinish {
			feasible = false
		}

		stops = append(stops, domain.StopPlan{
			JobID:                jobID,
			ArriveMinute:         arrive,
			StartMinute:          start,
			EndMinute:            end,
			TravelMinuteFromPrev: travel,
		})

		if i == len(jobIDs)-1 {
			home := e.matrix.Minutes(ctx, e.oracle, jobKey, day.HomeKey(), time.Time{})
			if end+home > entry.WindowEnd {
				feasible = false
			}
		}

		prevKey = jobKey
		prevEnd = end
	}

	return stops, feasible
}
