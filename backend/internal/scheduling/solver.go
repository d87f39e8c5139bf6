package scheduling

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

const (
	// DefaultTimeoutSeconds is the solver budget when the request omits one.
	DefaultTimeoutSeconds = 30
	// MaxTimeoutSeconds is the server-side ceiling on any solve budget.
	MaxTimeoutSeconds = 120

	tabuTenure        = 16
	deadlineCheckMask = 63 // check the clock every 64 evaluated moves
)

// SeedForDate derives the default deterministic seed from the schedule
// date, used when the request does not carry an explicit seed.
func SeedForDate(date string) int64 {
	h := fnv.New64a()
	h.Write([]byte(date))
	return int64(h.Sum64())
}

// Solver runs deterministic greedy construction followed by
// timeboxed tabu local search. Given identical input, budget and seed it
// returns an identical ScheduleResult.
type Solver struct {
	oracle *Oracle
	logger *log.Logger
}

// NewSolver constructs a solver over the given travel oracle.
func NewSolver(oracle *Oracle, logger *log.Logger) *Solver {
	return &Solver{oracle: oracle, logger: logger}
}

// Solve runs construction and improvement for a fresh schedule.
func (s *Solver) Solve(ctx context.Context, input *SolverInput) *domain.ScheduleResult {
	started := time.Now()
	deadline := started.Add(s.budget(input))

	engine := NewConstraintEngine(input, s.oracle)
	state := newSearchState(input, engine)

	s.construct(ctx, state)
	s.improve(ctx, state, deadline, nil)

	return s.assemble(ctx, state, started)
}

// Reoptimize runs only the local-search phase, seeded with the currently
// persisted schedule. Stops whose job IDs appear in locked are pinned:
// no operator relocates, swaps, reverses or removes them. Their times are
// still recomputed whenever their tour is retimed, including the initial
// retiming below.
func (s *Solver) Reoptimize(ctx context.Context, input *SolverInput, seed *Candidate, locked map[uuid.UUID]bool) *domain.ScheduleResult {
	started := time.Now()
	deadline := started.Add(s.budget(input))

	engine := NewConstraintEngine(input, s.oracle)
	state := newSearchState(input, engine)
	state.candidate = seed.Clone()
	state.locked = locked

	// Re-time every tour so seeded stop plans obey the arrival arithmetic
	// even if the persisted rows have drifted.
	for _, staffID := range state.candidate.sortedStaffIDs() {
		day, ok := engine.staffByID[staffID]
		if !ok {
			continue
		}
		jobIDs := tourJobIDs(state.candidate.Stops[staffID])
		stops, _ := engine.timeTour(ctx, day, jobIDs)
		state.candidate.Stops[staffID] = stops
	}

	s.improve(ctx, state, deadline, locked)
	return s.assemble(ctx, state, started)
}

func (s *Solver) budget(input *SolverInput) time.Duration {
	secs := input.TimeoutSeconds
	if secs <= 0 {
		secs = DefaultTimeoutSeconds
	}
	if secs > MaxTimeoutSeconds {
		secs = MaxTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// searchState bundles everything one solve mutates.
type searchState struct {
	input     *SolverInput
	engine    *ConstraintEngine
	candidate *Candidate
	rng       *rand.Rand
	locked    map[uuid.UUID]bool

	movesEvaluated int64
}

func newSearchState(input *SolverInput, engine *ConstraintEngine) *searchState {
	staffIDs := make([]uuid.UUID, 0, len(input.Staff))
	for _, d := range input.Staff {
		staffIDs = append(staffIDs, d.Staff.StaffID)
	}
	return &searchState{
		input:     input,
		engine:    engine,
		candidate: NewCandidate(staffIDs),
		rng:       rand.New(rand.NewSource(input.Seed)),
	}
}

// construct is the deterministic greedy phase: jobs ordered by
// (priority desc, creation asc, duration desc), each placed at its best
// hard-feasible insertion point, or recorded as unassigned with a reason.
func (s *Solver) construct(ctx context.Context, st *searchState) {
	ordered := make([]domain.JobSnapshot, len(st.input.Jobs))
	copy(ordered, st.input.Jobs)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.DurationMinutes != b.DurationMinutes {
			return a.DurationMinutes > b.DurationMinutes
		}
		return a.JobID.String() < b.JobID.String()
	})

	for _, job := range ordered {
		if job.StaffingRequired > 1 {
			s.insertMultiStaff(ctx, st, job)
			continue
		}
		if !s.insertGreedy(ctx, st, job) {
			st.candidate.Unassigned = append(st.candidate.Unassigned, domain.UnassignedJob{
				JobID:  job.JobID,
				Reason: s.unassignedReason(ctx, st, job),
			})
		}
	}
}

// insertGreedy seats one single-staff job at the hard-feasible position
// with the best soft delta. Returns false when no staff admits it.
func (s *Solver) insertGreedy(ctx context.Context, st *searchState, job domain.JobSnapshot) bool {
	baseline, _ := s.evaluate(st, st.candidate)

	type placement struct {
		staffID uuid.UUID
		index   int
		stops   []domain.StopPlan
		score   domain.Score
	}
	var best *placement

	for _, staffID := range st.candidate.sortedStaffIDs() {
		day, ok := st.engine.staffByID[staffID]
		if !ok {
			continue
		}
		tour := tourJobIDs(st.candidate.Stops[staffID])
		for idx := 0; idx <= len(tour); idx++ {
			trialJobs := insertJobID(tour, job.JobID, idx)
			stops, ok := st.engine.timeTour(ctx, day, trialJobs)
			if !ok {
				continue
			}
			trial := st.candidate.Clone()
			trial.Stops[staffID] = stops
			trial.JobStaff[job.JobID] = []uuid.UUID{staffID}
			score, _ := s.evaluate(st, trial)
			if score.Hard < baseline.Hard {
				continue
			}
			if best == nil || score.Soft > best.score.Soft {
				best = &placement{staffID: staffID, index: idx, stops: stops, score: score}
			}
		}
	}

	if best == nil {
		return false
	}
	st.candidate.Stops[best.staffID] = best.stops
	st.candidate.JobStaff[job.JobID] = []uuid.UUID{best.staffID}
	return true
}

// insertMultiStaff seats a staffing_required=n job on n distinct staff
// with an identical start minute, appending to each chosen tour. The job
// is left unassigned if fewer than n staff admit a common slot.
func (s *Solver) insertMultiStaff(ctx context.Context, st *searchState, job domain.JobSnapshot) {
	type option struct {
		staffID uuid.UUID
		start   int
	}
	var options []option

	for _, staffID := range st.candidate.sortedStaffIDs() {
		day, ok := st.engine.staffByID[staffID]
		if !ok {
			continue
		}
		if len(job.MissingEquipment(day.Staff.EquipmentOwned)) > 0 {
			continue
		}
		trialJobs := append(tourJobIDs(st.candidate.Stops[staffID]), job.JobID)
		stops, ok := st.engine.timeTour(ctx, day, trialJobs)
		if !ok {
			continue
		}
		options = append(options, option{staffID: staffID, start: stops[len(stops)-1].StartMinute})
	}

	if len(options) < job.StaffingRequired {
		st.candidate.Unassigned = append(st.candidate.Unassigned, domain.UnassignedJob{
			JobID:  job.JobID,
			Reason: domain.ReasonMultiStaffPartial,
		})
		return
	}

	sort.Slice(options, func(i, j int) bool {
		if options[i].start != options[j].start {
			return options[i].start < options[j].start
		}
		return options[i].staffID.String() < options[j].staffID.String()
	})
	chosen := options[:job.StaffingRequired]

	common := 0
	for _, o := range chosen {
		if o.start > common {
			common = o.start
		}
	}

	// Force the shared start on every chosen tour; back out entirely if
	// any one of them cannot honor it.
	trial := st.candidate.Clone()
	var staffIDs []uuid.UUID
	for _, o := range chosen {
		day := st.engine.staffByID[o.staffID]
		trialJobs := append(tourJobIDs(trial.Stops[o.staffID]), job.JobID)
		stops, ok := st.engine.timeTourWithForcedStart(ctx, day, trialJobs, job.JobID, common)
		if !ok {
			st.candidate.Unassigned = append(st.candidate.Unassigned, domain.UnassignedJob{
				JobID:  job.JobID,
				Reason: domain.ReasonMultiStaffPartial,
			})
			return
		}
		trial.Stops[o.staffID] = stops
		staffIDs = append(staffIDs, o.staffID)
	}
	trial.JobStaff[job.JobID] = staffIDs
	st.candidate = trial
}

// unassignedReason classifies why no staff admitted the job, matching the
// boundary behaviors of the testable properties: equipment, no_fit,
// no_fit_with_travel, or no eligible staff at all.
func (s *Solver) unassignedReason(ctx context.Context, st *searchState, job domain.JobSnapshot) string {
	if len(st.input.Staff) == 0 {
		return domain.ReasonNoEligibleStaff
	}

	equipped := 0
	fitsDuration := false
	for _, day := range st.input.Staff {
		if len(job.MissingEquipment(day.Staff.EquipmentOwned)) > 0 {
			continue
		}
		equipped++
		if job.DurationMinutes+job.BufferMinutes <= day.Availability.AvailableMinutes() {
			fitsDuration = true
		}
	}
	if equipped == 0 {
		return domain.ReasonEquipment
	}
	if !fitsDuration {
		return domain.ReasonNoFit
	}
	return domain.ReasonNoFitWithTravel
}

// move is one enumerated local-search step, already materialized as a
// full trial candidate plus its score and tabu signature.
type move struct {
	signature string
	candidate *Candidate
	score     domain.Score
}

// improve runs best-improvement tabu search until convergence or the
// deadline. Strictly improving moves only; the tabu list keeps the last
// accepted signatures to prevent cycling.
func (s *Solver) improve(ctx context.Context, st *searchState, deadline time.Time, locked map[uuid.UUID]bool) {
	tabu := make(map[string]int)
	iteration := 0

	curScore, _ := s.evaluate(st, st.candidate)

	for {
		if time.Now().After(deadline) {
			return
		}
		iteration++

		var best *move
		consider := func(m *move) {
			if m == nil {
				return
			}
			if expiry, isTabu := tabu[m.signature]; isTabu && expiry > iteration {
				return
			}
			if !betterThan(m.score, curScore) {
				return
			}
			if best == nil || betterThan(m.score, best.score) {
				best = m
			}
		}

		done := s.enumerateMoves(ctx, st, deadline, locked, consider)

		if best == nil || done {
			return
		}

		st.candidate = best.candidate
		curScore = best.score
		tabu[best.signature] = iteration + tabuTenure
	}
}

// enumerateMoves walks every operator in a fixed order, feeding each
// hard-preserving trial to consider. Returns true when the deadline hit
// mid-enumeration and the search should stop.
func (s *Solver) enumerateMoves(ctx context.Context, st *searchState, deadline time.Time, locked map[uuid.UUID]bool, consider func(*move)) bool {
	staffIDs := st.candidate.sortedStaffIDs()

	deadlineHit := func() bool {
		if st.movesEvaluated&deadlineCheckMask == 0 && time.Now().After(deadline) {
			return true
		}
		return false
	}

	movable := func(jobID uuid.UUID) bool {
		if locked != nil && locked[jobID] {
			return false
		}
		job, ok := st.engine.jobByID[jobID]
		if !ok {
			return false
		}
		return job.StaffingRequired <= 1
	}

	// Relocate: move one stop to any other position in any tour.
	for _, fromStaff := range staffIDs {
		fromTour := tourJobIDs(st.candidate.Stops[fromStaff])
		for i, jobID := range fromTour {
			if !movable(jobID) {
				continue
			}
			for _, toStaff := range staffIDs {
				toTour := tourJobIDs(st.candidate.Stops[toStaff])
				limit := len(toTour)
				if toStaff == fromStaff {
					limit = len(toTour) - 1
				}
				for j := 0; j <= limit; j++ {
					if toStaff == fromStaff && j == i {
						continue
					}
					if deadlineHit() {
						return true
					}
					sig := fmt.Sprintf("relocate:%s:%s:%d", jobID, toStaff, j)
					consider(s.tryRelocate(ctx, st, fromStaff, i, toStaff, j, sig))
				}
			}
		}
	}

	// 2-opt intra-tour: reverse a contiguous sub-sequence.
	for _, staffID := range staffIDs {
		tour := tourJobIDs(st.candidate.Stops[staffID])
		for i := 0; i < len(tour)-1; i++ {
			for j := i + 1; j < len(tour); j++ {
				segmentOK := true
				for k := i; k <= j; k++ {
					if !movable(tour[k]) {
						segmentOK = false
						break
					}
				}
				if !segmentOK {
					continue
				}
				if deadlineHit() {
					return true
				}
				sig := fmt.Sprintf("2opt:%s:%d:%d", staffID, i, j)
				consider(s.tryReverse(ctx, st, staffID, i, j, sig))
			}
		}
	}

	// Swap: exchange two stops between tours.
	for ai, staffA := range staffIDs {
		tourA := tourJobIDs(st.candidate.Stops[staffA])
		for _, staffB := range staffIDs[ai+1:] {
			tourB := tourJobIDs(st.candidate.Stops[staffB])
			for i, jobA := range tourA {
				if !movable(jobA) {
					continue
				}
				for j, jobB := range tourB {
					if !movable(jobB) {
						continue
					}
					if deadlineHit() {
						return true
					}
					sig := fmt.Sprintf("swap:%s:%s", jobA, jobB)
					consider(s.trySwap(ctx, st, staffA, i, staffB, j, sig))
				}
			}
		}
	}

	// Unassign-and-reinsert: seat a currently unassigned job anywhere.
	for _, un := range st.candidate.Unassigned {
		if locked != nil && locked[un.JobID] {
			continue
		}
		job, ok := st.engine.jobByID[un.JobID]
		if !ok || job.StaffingRequired > 1 {
			continue
		}
		if deadlineHit() {
			return true
		}
		sig := fmt.Sprintf("reinsert:%s", un.JobID)
		consider(s.tryReinsert(ctx, st, job, sig))
	}

	// Priority-promote: replace a lower-priority stop with an unassigned
	// higher-priority job, then try to reseat the evicted one.
	for _, un := range st.candidate.Unassigned {
		job, ok := st.engine.jobByID[un.JobID]
		if !ok || job.StaffingRequired > 1 || job.Priority == domain.PriorityNormal {
			continue
		}
		for _, staffID := range staffIDs {
			tour := tourJobIDs(st.candidate.Stops[staffID])
			for i, seatedID := range tour {
				if !movable(seatedID) {
					continue
				}
				seated := st.engine.jobByID[seatedID]
				if seated.Priority >= job.Priority {
					continue
				}
				if deadlineHit() {
					return true
				}
				sig := fmt.Sprintf("promote:%s:%s", un.JobID, seatedID)
				consider(s.tryPromote(ctx, st, job, staffID, i, sig))
			}
		}
	}

	return false
}

func (s *Solver) tryRelocate(ctx context.Context, st *searchState, fromStaff uuid.UUID, i int, toStaff uuid.UUID, j int, sig string) *move {
	trial := st.candidate.Clone()
	fromTour := tourJobIDs(trial.Stops[fromStaff])
	jobID := fromTour[i]
	fromTour = removeIndex(fromTour, i)

	if fromStaff == toStaff {
		fromTour = insertJobID(fromTour, jobID, j)
		return s.materialize(ctx, st, trial, sig, map[uuid.UUID][]uuid.UUID{fromStaff: fromTour}, map[uuid.UUID][]uuid.UUID{jobID: {toStaff}})
	}

	toTour := insertJobID(tourJobIDs(trial.Stops[toStaff]), jobID, j)
	return s.materialize(ctx, st, trial, sig,
		map[uuid.UUID][]uuid.UUID{fromStaff: fromTour, toStaff: toTour},
		map[uuid.UUID][]uuid.UUID{jobID: {toStaff}})
}

func (s *Solver) tryReverse(ctx context.Context, st *searchState, staffID uuid.UUID, i, j int, sig string) *move {
	trial := st.candidate.Clone()
	tour := tourJobIDs(trial.Stops[staffID])
	for lo, hi := i, j; lo < hi; lo, hi = lo+1, hi-1 {
		tour[lo], tour[hi] = tour[hi], tour[lo]
	}
	return s.materialize(ctx, st, trial, sig, map[uuid.UUID][]uuid.UUID{staffID: tour}, nil)
}

func (s *Solver) trySwap(ctx context.Context, st *searchState, staffA uuid.UUID, i int, staffB uuid.UUID, j int, sig string) *move {
	trial := st.candidate.Clone()
	tourA := tourJobIDs(trial.Stops[staffA])
	tourB := tourJobIDs(trial.Stops[staffB])
	jobA, jobB := tourA[i], tourB[j]
	tourA[i], tourB[j] = jobB, jobA
	return s.materialize(ctx, st, trial, sig,
		map[uuid.UUID][]uuid.UUID{staffA: tourA, staffB: tourB},
		map[uuid.UUID][]uuid.UUID{jobA: {staffB}, jobB: {staffA}})
}

func (s *Solver) tryReinsert(ctx context.Context, st *searchState, job domain.JobSnapshot, sig string) *move {
	type placement struct {
		staffID uuid.UUID
		tour    []uuid.UUID
		score   domain.Score
	}
	var best *placement

	for _, staffID := range st.candidate.sortedStaffIDs() {
		day, ok := st.engine.staffByID[staffID]
		if !ok {
			continue
		}
		tour := tourJobIDs(st.candidate.Stops[staffID])
		for idx := 0; idx <= len(tour); idx++ {
			trialJobs := insertJobID(tour, job.JobID, idx)
			stops, ok := st.engine.timeTour(ctx, day, trialJobs)
			if !ok {
				continue
			}
			trial := st.candidate.Clone()
			trial.Stops[staffID] = stops
			trial.removeUnassigned(job.JobID)
			trial.JobStaff[job.JobID] = []uuid.UUID{staffID}
			score, _ := s.evaluate(st, trial)
			if score.Hard < 0 {
				continue
			}
			if best == nil || score.Soft > best.score.Soft {
				best = &placement{staffID: staffID, tour: trialJobs, score: score}
			}
		}
	}
	if best == nil {
		return nil
	}

	trial := st.candidate.Clone()
	day := st.engine.staffByID[best.staffID]
	stops, _ := st.engine.timeTour(ctx, day, best.tour)
	trial.Stops[best.staffID] = stops
	trial.removeUnassigned(job.JobID)
	trial.JobStaff[job.JobID] = []uuid.UUID{best.staffID}
	st.movesEvaluated++
	return &move{signature: sig, candidate: trial, score: best.score}
}

func (s *Solver) tryPromote(ctx context.Context, st *searchState, job domain.JobSnapshot, staffID uuid.UUID, i int, sig string) *move {
	trial := st.candidate.Clone()
	tour := tourJobIDs(trial.Stops[staffID])
	evictedID := tour[i]
	tour[i] = job.JobID

	day := st.engine.staffByID[staffID]
	stops, ok := st.engine.timeTour(ctx, day, tour)
	if !ok {
		return nil
	}
	trial.Stops[staffID] = stops
	trial.removeUnassigned(job.JobID)
	delete(trial.JobStaff, evictedID)
	trial.JobStaff[job.JobID] = []uuid.UUID{staffID}

	// Try to reseat the evicted job; otherwise it becomes unassigned.
	evicted, okJob := st.engine.jobByID[evictedID]
	reseated := false
	if okJob {
		for _, otherID := range trial.sortedStaffIDs() {
			otherDay, ok := st.engine.staffByID[otherID]
			if !ok {
				continue
			}
			otherTour := tourJobIDs(trial.Stops[otherID])
			for idx := 0; idx <= len(otherTour); idx++ {
				trialJobs := insertJobID(otherTour, evictedID, idx)
				if reStops, ok := st.engine.timeTour(ctx, otherDay, trialJobs); ok {
					trial.Stops[otherID] = reStops
					trial.JobStaff[evictedID] = []uuid.UUID{otherID}
					reseated = true
					break
				}
			}
			if reseated {
				break
			}
		}
	}
	if !reseated {
		trial.Unassigned = append(trial.Unassigned, domain.UnassignedJob{
			JobID:  evictedID,
			Reason: s.unassignedReason(ctx, st, evicted),
		})
	}

	score, _ := s.evaluate(st, trial)
	if score.Hard < 0 {
		return nil
	}
	st.movesEvaluated++
	return &move{signature: sig, candidate: trial, score: score}
}

// materialize re-times the changed tours on a cloned candidate, rejecting
// the move when any tour loses hard feasibility.
func (s *Solver) materialize(ctx context.Context, st *searchState, trial *Candidate, sig string, tours map[uuid.UUID][]uuid.UUID, reassigned map[uuid.UUID][]uuid.UUID) *move {
	staffIDs := make([]uuid.UUID, 0, len(tours))
	for id := range tours {
		staffIDs = append(staffIDs, id)
	}
	sort.Slice(staffIDs, func(i, j int) bool { return staffIDs[i].String() < staffIDs[j].String() })

	for _, staffID := range staffIDs {
		day, ok := st.engine.staffByID[staffID]
		if !ok {
			return nil
		}
		stops, ok := st.engine.timeTour(ctx, day, tours[staffID])
		if !ok {
			return nil
		}
		trial.Stops[staffID] = stops
	}
	for jobID, staff := range reassigned {
		trial.JobStaff[jobID] = staff
	}

	score, _ := s.evaluate(st, trial)
	st.movesEvaluated++
	if score.Hard < 0 {
		return nil
	}
	return &move{signature: sig, candidate: trial, score: score}
}

func (s *Solver) evaluate(st *searchState, c *Candidate) (domain.Score, []domain.ConstraintViolation) {
	score, violations := st.engine.Evaluate(c)
	return score, violations
}

// betterThan is the lexicographic score order: higher hard first, then
// higher soft. Strict improvement only, so the search cannot cycle
// through equal-score candidates.
func betterThan(a, b domain.Score) bool {
	if a.Hard != b.Hard {
		return a.Hard > b.Hard
	}
	return a.Soft > b.Soft
}

// assemble freezes the search state into the solver's output shape.
func (s *Solver) assemble(ctx context.Context, st *searchState, started time.Time) *domain.ScheduleResult {
	score, violations := st.engine.Evaluate(st.candidate)

	assignments := make([]domain.Assignment, 0, len(st.candidate.Stops))
	for _, staffID := range st.candidate.sortedStaffIDs() {
		stops := st.candidate.Stops[staffID]
		cp := make([]domain.StopPlan, len(stops))
		copy(cp, stops)
		assignments = append(assignments, domain.Assignment{StaffID: staffID, Stops: cp})
	}

	unassigned := make([]domain.UnassignedJob, 0, len(st.candidate.Unassigned)+len(st.input.PreResolvedUnassigned))
	unassigned = append(unassigned, st.input.PreResolvedUnassigned...)
	unassigned = append(unassigned, st.candidate.Unassigned...)
	sort.Slice(unassigned, func(i, j int) bool { return unassigned[i].JobID.String() < unassigned[j].JobID.String() })

	result := &domain.ScheduleResult{
		Date:           st.input.Date,
		Assignments:    assignments,
		UnassignedJobs: unassigned,
		Violations:     violations,
		Hard:           score.Hard,
		Soft:           score.Soft,
		Feasible:       score.Feasible(),
		ElapsedMS:      time.Since(started).Milliseconds(),
		MovesEvaluated: st.movesEvaluated,
		Seed:           st.input.Seed,
	}

	s.logger.Printf("solve finished date=%v feasible=%v hard=%v soft=%v assigned_staff=%v unassigned=%v moves=%v elapsed_ms=%v",
		st.input.Date,
		result.Feasible,
		result.Hard,
		result.Soft,
		len(assignments),
		len(unassigned),
		st.movesEvaluated,
		result.ElapsedMS,
	)
	return result
}

// --- tour helpers ---

func tourJobIDs(stops []domain.StopPlan) []uuid.UUID {
	ids := make([]uuid.UUID, len(stops))
	for i, s := range stops {
		ids[i] = s.JobID
	}
	return ids
}

func insertJobID(tour []uuid.UUID, jobID uuid.UUID, idx int) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(tour)+1)
	out = append(out, tour[:idx]...)
	out = append(out, jobID)
	out = append(out, tour[idx:]...)
	return out
}

func removeIndex(tour []uuid.UUID, idx int) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(tour)-1)
	out = append(out, tour[:idx]...)
	out = append(out, tour[idx+1:]...)
	return out
}

// removeUnassigned drops a job from the unassigned list in place.
func (c *Candidate) removeUnassigned(jobID uuid.UUID) {
	out := c.Unassigned[:0]
	for _, u := range c.Unassigned {
		if u.JobID != jobID {
			out = append(out, u)
		}
	}
	c.Unassigned = out
}
