package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// Soft constraint weights. Named constants rather than config: tuning
// them is a code change.
const (
	weightPriority           int64 = 90
	weightTravel             int64 = 80
	weightCityBatch          int64 = 70
	weightPreferredWindow    int64 = 70
	weightJobTypeBatch       int64 = 50
	weightBufferPreference   int64 = 60
	weightBacktrack          int64 = 50
	weightFCFS               int64 = 30
	backtrackThresholdFactor       = 1.5
)

// Candidate is a mutable proposed solution: the per-staff ordered tours,
// the multi-staff coordination map for staffing_required>1 jobs, and the
// jobs left unseated.
type Candidate struct {
	Stops      map[uuid.UUID][]domain.StopPlan
	JobStaff   map[uuid.UUID][]uuid.UUID
	Unassigned []domain.UnassignedJob
}

// NewCandidate returns an empty candidate with a tour slot for each staff.
func NewCandidate(staffIDs []uuid.UUID) *Candidate {
	c := &Candidate{
		Stops:    make(map[uuid.UUID][]domain.StopPlan, len(staffIDs)),
		JobStaff: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, id := range staffIDs {
		c.Stops[id] = nil
	}
	return c
}

// Clone deep-copies the candidate so local-search moves can be evaluated
// without mutating the incumbent.
func (c *Candidate) Clone() *Candidate {
	clone := &Candidate{
		Stops:    make(map[uuid.UUID][]domain.StopPlan, len(c.Stops)),
		JobStaff: make(map[uuid.UUID][]uuid.UUID, len(c.JobStaff)),
	}
	for staffID, stops := range c.Stops {
		cp := make([]domain.StopPlan, len(stops))
		copy(cp, stops)
		clone.Stops[staffID] = cp
	}
	for jobID, staffIDs := range c.JobStaff {
		cp := make([]uuid.UUID, len(staffIDs))
		copy(cp, staffIDs)
		clone.JobStaff[jobID] = cp
	}
	clone.Unassigned = append([]domain.UnassignedJob(nil), c.Unassigned...)
	return clone
}

// sortedStaffIDs returns the candidate's staff keys in a stable order so
// constraint evaluation (and therefore solver determinism) does
// not depend on Go's randomized map iteration.
func (c *Candidate) sortedStaffIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Stops))
	for id := range c.Stops {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// TotalTravelMinutes sums travel across every stop of every staff.
func (c *Candidate) TotalTravelMinutes() int {
	total := 0
	for _, stops := range c.Stops {
		for _, s := range stops {
			total += s.TravelMinuteFromPrev
		}
	}
	return total
}

// ConstraintEngine evaluates a Candidate against a fixed SolverInput,
// summing independent constraint functions. Each constraint is a pure
// function of the assignment, so new ones can be added without touching
// the solver.
type ConstraintEngine struct {
	jobByID   map[uuid.UUID]domain.JobSnapshot
	staffByID map[uuid.UUID]StaffDay
	matrix    *TravelMatrix
	oracle    *Oracle
}

// NewConstraintEngine indexes a SolverInput for repeated evaluation.
func NewConstraintEngine(input *SolverInput, oracle *Oracle) *ConstraintEngine {
	e := &ConstraintEngine{
		jobByID:   make(map[uuid.UUID]domain.JobSnapshot, len(input.Jobs)),
		staffByID: make(map[uuid.UUID]StaffDay, len(input.Staff)),
		matrix:    input.Matrix,
		oracle:    oracle,
	}
	for _, j := range input.Jobs {
		e.jobByID[j.JobID] = j
	}
	for _, d := range input.Staff {
		e.staffByID[d.Staff.StaffID] = d
	}
	return e
}

// Evaluate computes (hard, soft) and the violation breakdown for a
// candidate solution.
func (e *ConstraintEngine) Evaluate(c *Candidate) (domain.Score, []domain.ConstraintViolation) {
	score := domain.Score{}
	var violations []domain.ConstraintViolation

	for _, staffID := range c.sortedStaffIDs() {
		stops := c.Stops[staffID]
		day, ok := e.staffByID[staffID]
		if !ok {
			continue
		}
		tourScore, tourViolations := e.evaluateTour(day, stops)
		score = score.Add(tourScore)
		violations = append(violations, tourViolations...)
	}

	coScore, coViolations := e.evaluateMultiStaffCoherence(c)
	score = score.Add(coScore)
	violations = append(violations, coViolations...)

	fcfsScore := e.evaluateFCFS(c)
	score.Soft += fcfsScore

	return score, violations
}

func (e *ConstraintEngine) evaluateTour(day StaffDay, stops []domain.StopPlan) (domain.Score, []domain.ConstraintViolation) {
	var score domain.Score
	var violations []domain.ConstraintViolation

	for i, stop := range stops {
		job, ok := e.jobByID[stop.JobID]
		if !ok {
			continue
		}

		// Equipment matching (hard).
		if missing := job.MissingEquipment(day.Staff.EquipmentOwned); len(missing) > 0 {
			score.Hard -= 1
			violations = append(violations, domain.ConstraintViolation{
				Name:        "equipment_matching",
				Description: fmt.Sprintf("staff %s lacks equipment for job %s", day.Staff.StaffID, job.JobID),
				Penalty:     -1,
				IsHard:      true,
			})
		}

		// Availability window (hard, magnitude = overrun minutes).
		if stop.ArriveMinute > day.Availability.WindowEnd {
			overrun := int64(stop.ArriveMinute - day.Availability.WindowEnd)
			score.Hard -= overrun
			violations = append(violations, domain.ConstraintViolation{
				Name:        "availability_window",
				Description: fmt.Sprintf("stop for job %s arrives %d minutes past window_end", job.JobID, overrun),
				Penalty:     -overrun,
				IsHard:      true,
			})
		}
		if i == len(stops)-1 {
			homeArrival := stop.EndMinute + e.travelHome(day, job)
			if homeArrival > day.Availability.WindowEnd {
				overrun := int64(homeArrival - day.Availability.WindowEnd)
				score.Hard -= overrun
				violations = append(violations, domain.ConstraintViolation{
					Name:        "availability_window",
					Description: fmt.Sprintf("staff %s returns home %d minutes past window_end", day.Staff.StaffID, overrun),
					Penalty:     -overrun,
					IsHard:      true,
				})
			}
		}

		// Lunch respect (hard).
		if day.Availability.OverlapsLunch(stop.StartMinute, stop.EndMinute) {
			score.Hard -= 1
			violations = append(violations, domain.ConstraintViolation{
				Name:        "lunch_respect",
				Description: fmt.Sprintf("stop for job %s overlaps lunch", job.JobID),
				Penalty:     -1,
				IsHard:      true,
			})
		}

		// No time overlap (hard, per adjacent pair).
		if i > 0 && stop.StartMinute < stops[i-1].EndMinute {
			score.Hard -= 1
			violations = append(violations, domain.ConstraintViolation{
				Name:        "no_time_overlap",
				Description: fmt.Sprintf("jobs %s and %s overlap", stops[i-1].JobID, job.JobID),
				Penalty:     -1,
				IsHard:      true,
			})
		}

		// Bounds (hard).
		if job.EarliestStart != nil && stop.StartMinute < *job.EarliestStart {
			score.Hard -= 1
			violations = append(violations, domain.ConstraintViolation{
				Name:        "bounds",
				Description: fmt.Sprintf("job %s starts before earliest_start", job.JobID),
				Penalty:     -1,
				IsHard:      true,
			})
		}
		if job.LatestFinish != nil && stop.EndMinute > *job.LatestFinish {
			score.Hard -= 1
			violations = append(violations, domain.ConstraintViolation{
				Name:        "bounds",
				Description: fmt.Sprintf("job %s ends after latest_finish", job.JobID),
				Penalty:     -1,
				IsHard:      true,
			})
		}

		// Status (hard).
		if job.Status != domain.JobStatusApproved && job.Status != domain.JobStatusScheduled {
			score.Hard -= 1
			violations = append(violations, domain.ConstraintViolation{
				Name:        "status",
				Description: fmt.Sprintf("job %s is not in an eligible status (%s)", job.JobID, job.Status),
				Penalty:     -1,
				IsHard:      true,
			})
		}

		// Priority reward (soft).
		score.Soft += int64(job.Priority) * weightPriority

		// Customer preferred window (soft).
		if job.PreferredWindowStart != nil && job.PreferredWindowEnd != nil {
			if stop.StartMinute >= *job.PreferredWindowStart && stop.StartMinute < *job.PreferredWindowEnd {
				score.Soft += weightPreferredWindow
			}
		}

		// Job-type / city batching against the previous stop (soft).
		if i > 0 {
			prevJob, ok := e.jobByID[stops[i-1].JobID]
			if ok {
				if prevJob.PropertyLocation.CityTag != "" && prevJob.PropertyLocation.CityTag == job.PropertyLocation.CityTag {
					score.Soft += weightCityBatch
				}
				if prevJob.JobType == job.JobType {
					score.Soft += weightJobTypeBatch
				}
			}
		}

		// Buffer preference (soft): reward when this stop's buffer was
		// enough to cover the travel to the next stop.
		if i < len(stops)-1 {
			next := stops[i+1]
			if next.TravelMinuteFromPrev <= job.BufferMinutes {
				score.Soft += weightBufferPreference
			}
		}
	}

	// Minimize travel (soft).
	travelSum := 0
	for _, s := range stops {
		travelSum += s.TravelMinuteFromPrev
	}
	score.Soft -= int64(travelSum) * weightTravel

	// Minimize backtracking (soft): penalize stops whose travel from the
	// previous stop exceeds the tour's running mean by the threshold.
	if len(stops) > 1 {
		runningSum := 0
		for i, s := range stops {
			if i == 0 {
				continue
			}
			mean := float64(runningSum) / float64(i)
			if float64(s.TravelMinuteFromPrev) > mean*backtrackThresholdFactor && mean > 0 {
				score.Soft -= weightBacktrack
			}
			runningSum += s.TravelMinuteFromPrev
		}
	}

	return score, violations
}

func (e *ConstraintEngine) travelHome(day StaffDay, job domain.JobSnapshot) int {
	if e.matrix != nil && e.oracle != nil {
		fromKey := job.PropertyLocation.Key("job", job.JobID)
		toKey := day.Staff.HomeLocation.Key("staff", day.Staff.StaffID)
		return e.matrix.Minutes(context.Background(), e.oracle, fromKey, toKey, time.Now())
	}
	return clampMinutes(int(haversineMinutes(job.PropertyLocation, day.Staff.HomeLocation) + 0.999))
}

func (e *ConstraintEngine) evaluateMultiStaffCoherence(c *Candidate) (domain.Score, []domain.ConstraintViolation) {
	var score domain.Score
	var violations []domain.ConstraintViolation

	jobIDs := make([]uuid.UUID, 0, len(e.jobByID))
	for id := range e.jobByID {
		jobIDs = append(jobIDs, id)
	}
	sort.Slice(jobIDs, func(i, j int) bool { return jobIDs[i].String() < jobIDs[j].String() })

	for _, jobID := range jobIDs {
		job := e.jobByID[jobID]
		if job.StaffingRequired <= 1 {
			continue
		}
		assigned := c.JobStaff[jobID]
		distinct := map[uuid.UUID]struct{}{}
		for _, id := range assigned {
			distinct[id] = struct{}{}
		}
		missing := job.StaffingRequired - len(distinct)
		if missing > 0 {
			score.Hard -= int64(missing)
			violations = append(violations, domain.ConstraintViolation{
				Name:        "multi_staff_coherence",
				Description: fmt.Sprintf("job %s needs %d more distinct staff", job.JobID, missing),
				Penalty:     -int64(missing),
				IsHard:      true,
			})
		}
	}

	return score, violations
}

// evaluateFCFS rewards earlier-created jobs landing in earlier slots:
// walk all assigned stops sorted globally by start_minute and award
// weightFCFS for each adjacent pair that does not invert creation order.
func (e *ConstraintEngine) evaluateFCFS(c *Candidate) int64 {
	type scheduled struct {
		start     int
		createdAt int64
	}
	var all []scheduled
	for _, staffID := range c.sortedStaffIDs() {
		for _, s := range c.Stops[staffID] {
			job, ok := e.jobByID[s.JobID]
			if !ok {
				continue
			}
			all = append(all, scheduled{start: s.StartMinute, createdAt: job.CreatedAt.UnixNano()})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })

	var reward int64
	for i := 1; i < len(all); i++ {
		if all[i-1].createdAt <= all[i].createdAt {
			reward += weightFCFS
		}
	}
	return reward
}
