package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

func seatedCandidate(ctx context.Context, t *testing.T, engine *ConstraintEngine, day StaffDay, jobs ...domain.JobSnapshot) *Candidate {
	t.Helper()
	c := NewCandidate([]uuid.UUID{day.Staff.StaffID})
	ids := make([]uuid.UUID, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.JobID)
		c.JobStaff[j.JobID] = []uuid.UUID{day.Staff.StaffID}
	}
	stops, _ := engine.timeTour(ctx, day, ids)
	c.Stops[day.Staff.StaffID] = stops
	return c
}

func TestEvaluateReportsEquipmentViolation(t *testing.T) {
	day := makeStaffDay(44.05, -123.09, 480, 1020, nil, 0) // owns nothing
	job := makeJob(44.05, -123.09, "eugene", "mowing", 60, 0, domain.PriorityNormal, fixtureCreated, "mower")

	input := makeInput("2025-06-02", 7, 1, []StaffDay{day}, []domain.JobSnapshot{job})
	engine := NewConstraintEngine(input, NewOracle(nil, testLogger()))

	candidate := seatedCandidate(context.Background(), t, engine, day, job)
	score, violations := engine.Evaluate(candidate)

	assert.Equal(t, int64(-1), score.Hard)
	require.NotEmpty(t, violations)
	assert.Equal(t, "equipment_matching", violations[0].Name)
	assert.True(t, violations[0].IsHard)
}

func TestEvaluateCityAndJobTypeBatchingRewards(t *testing.T) {
	day := makeStaffDay(44.05, -123.09, 480, 1020, nil, 0, "mower")
	jobA := makeJob(44.051, -123.091, "eugene", "mowing", 60, 0, domain.PriorityNormal, fixtureCreated, "mower")
	jobB := makeJob(44.052, -123.092, "eugene", "mowing", 60, 0, domain.PriorityNormal, fixtureCreated.Add(time.Minute), "mower")
	jobC := makeJob(44.053, -123.093, "coburg", "cleanup", 60, 0, domain.PriorityNormal, fixtureCreated.Add(2*time.Minute), "mower")

	input := makeInput("2025-06-02", 7, 1, []StaffDay{day}, []domain.JobSnapshot{jobA, jobB, jobC})
	engine := NewConstraintEngine(input, NewOracle(nil, testLogger()))

	batched := seatedCandidate(context.Background(), t, engine, day, jobA, jobB, jobC)
	split := seatedCandidate(context.Background(), t, engine, day, jobA, jobC, jobB)

	batchedScore, _ := engine.Evaluate(batched)
	splitScore, _ := engine.Evaluate(split)

	assert.Equal(t, int64(0), batchedScore.Hard)
	assert.Greater(t, batchedScore.Soft, splitScore.Soft,
		"consecutive same-city, same-type stops score higher")
}

func TestEvaluatePriorityReward(t *testing.T) {
	day := makeStaffDay(44.05, -123.09, 480, 1020, nil, 0, "mower")
	urgent := makeJob(44.051, -123.091, "eugene", "mowing", 60, 0, domain.PriorityUrgent, fixtureCreated, "mower")
	normal := makeJob(44.051, -123.091, "eugene", "mowing", 60, 0, domain.PriorityNormal, fixtureCreated, "mower")

	inputUrgent := makeInput("2025-06-02", 7, 1, []StaffDay{day}, []domain.JobSnapshot{urgent})
	engineUrgent := NewConstraintEngine(inputUrgent, NewOracle(nil, testLogger()))
	scoreUrgent, _ := engineUrgent.Evaluate(seatedCandidate(context.Background(), t, engineUrgent, day, urgent))

	inputNormal := makeInput("2025-06-02", 7, 1, []StaffDay{day}, []domain.JobSnapshot{normal})
	engineNormal := NewConstraintEngine(inputNormal, NewOracle(nil, testLogger()))
	scoreNormal, _ := engineNormal.Evaluate(seatedCandidate(context.Background(), t, engineNormal, day, normal))

	assert.Equal(t, int64(180), scoreUrgent.Soft-scoreNormal.Soft,
		"urgent stop earns priority x 90")
}

func TestEvaluateMultiStaffCoherenceViolation(t *testing.T) {
	day := makeStaffDay(44.05, -123.09, 480, 1020, nil, 0, "winch")
	job := makeJob(44.051, -123.091, "eugene", "stump_pull", 60, 0, domain.PriorityNormal, fixtureCreated, "winch")
	job.StaffingRequired = 2

	input := makeInput("2025-06-02", 7, 1, []StaffDay{day}, []domain.JobSnapshot{job})
	engine := NewConstraintEngine(input, NewOracle(nil, testLogger()))

	// Only one of the two required staff is assigned.
	candidate := seatedCandidate(context.Background(), t, engine, day, job)
	score, violations := engine.Evaluate(candidate)

	assert.Equal(t, int64(-1), score.Hard)
	found := false
	for _, v := range violations {
		if v.Name == "multi_staff_coherence" {
			found = true
		}
	}
	assert.True(t, found)
}
