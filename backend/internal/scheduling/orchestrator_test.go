package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

type fakeLocker struct {
	held     map[string]bool
	acquired []string
}

func (f *fakeLocker) Acquire(ctx context.Context, tenantID uuid.UUID, date string) (func(), error) {
	if f.held[date] {
		return nil, &domain.ConflictError{ScheduleDate: date}
	}
	f.acquired = append(f.acquired, date)
	return func() {}, nil
}

func newOrchestratorFixture(t *testing.T) (*Orchestrator, *fakeAppointmentStore, *fakeJobStore, *fakeLocker) {
	t.Helper()

	day := makeStaffDay(44.05, -123.09, 480, 1020, nil, 0, "mower")
	job := makeJob(44.06, -123.10, "eugene", "mowing", 60, 0, domain.PriorityNormal, fixtureCreated, "mower")

	jobs := &fakeJobStore{snapshots: map[uuid.UUID]domain.JobSnapshot{job.JobID: job}}
	appts := &fakeAppointmentStore{}
	audits := &fakeAuditStore{}
	staff := &fakeStaffRepo{staff: []domain.StaffSnapshot{day.Staff}}
	availability := &fakeAvailabilityRepo{entries: []domain.AvailabilityEntry{day.Availability}}
	locker := &fakeLocker{held: map[string]bool{}}
	tx := &fakeTxRunner{}
	logger := testLogger()
	oracle := NewOracle(nil, logger)

	loader := NewSnapshotLoader(jobs, staff, availability, oracle, logger)
	solver := NewSolver(oracle, logger)
	persister := NewPersister(tx, appts, jobs, logger)
	emergency := NewEmergencyInserter(jobs, jobs, staff, availability, appts, appts, jobs, tx, oracle, logger)
	clear := NewClearService(tx, appts, appts, audits, jobs, jobs, logger)
	capacity := NewCapacityReporter(staff, availability, &fakeMinutesReader{}, logger)

	return NewOrchestrator(loader, solver, persister, emergency, clear, capacity, locker, NewSolveGate(2), appts, logger), appts, jobs, locker
}

func TestGeneratePersistsUnderDateLock(t *testing.T) {
	orch, appts, jobs, locker := newOrchestratorFixture(t)

	resp, err := orch.Generate(context.Background(), uuid.New(), &ScheduleGenerateRequest{ScheduleDate: "2025-06-02", TimeoutSeconds: 1})
	require.NoError(t, err)

	assert.True(t, resp.IsFeasible)
	assert.Len(t, appts.inserted, 1, "the solved stop reaches the store")
	assert.Len(t, jobs.markedScheduled, 1)
	assert.Equal(t, []string{"2025-06-02"}, locker.acquired)

	stop := resp.Assignments[0].Jobs[0]
	assert.NotEmpty(t, stop.CustomerName)
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, stop.StartTime)
}

func TestPreviewLeavesStoreUntouched(t *testing.T) {
	orch, appts, jobs, locker := newOrchestratorFixture(t)

	first, err := orch.Preview(context.Background(), uuid.New(), &ScheduleGenerateRequest{ScheduleDate: "2025-06-02", TimeoutSeconds: 1})
	require.NoError(t, err)
	second, err := orch.Preview(context.Background(), uuid.New(), &ScheduleGenerateRequest{ScheduleDate: "2025-06-02", TimeoutSeconds: 1})
	require.NoError(t, err)

	assert.Empty(t, appts.inserted, "preview never writes")
	assert.Empty(t, jobs.markedScheduled)
	assert.Empty(t, locker.acquired, "preview never locks")

	first.ElapsedMS, second.ElapsedMS = 0, 0
	assert.Equal(t, first, second, "repeated previews agree")
}

func TestGenerateFailsFastOnHeldLock(t *testing.T) {
	orch, _, _, locker := newOrchestratorFixture(t)
	locker.held["2025-06-02"] = true

	_, err := orch.Generate(context.Background(), uuid.New(), &ScheduleGenerateRequest{ScheduleDate: "2025-06-02", TimeoutSeconds: 1})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestGenerateRejectsBadDate(t *testing.T) {
	orch, _, _, _ := newOrchestratorFixture(t)

	_, err := orch.Generate(context.Background(), uuid.New(), &ScheduleGenerateRequest{ScheduleDate: "06/02/2025"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
}
