package scheduling

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// --- in-memory fakes ---

type fakeTxRunner struct{ calls int }

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	f.calls++
	return fn(nil)
}

type fakeJobStore struct {
	snapshots map[uuid.UUID]domain.JobSnapshot
	scheduled []domain.JobSnapshot

	markedScheduled [][]uuid.UUID
	markedApproved  [][]uuid.UUID
}

func (f *fakeJobStore) GetSnapshot(ctx context.Context, tenantID, jobID uuid.UUID) (*domain.JobSnapshot, error) {
	snap, ok := f.snapshots[jobID]
	if !ok {
		return nil, domain.NewNotFoundError("job", jobID.String())
	}
	return &snap, nil
}

func (f *fakeJobStore) ListApprovedForDate(ctx context.Context, tenantID uuid.UUID, jobIDFilter *uuid.UUID) ([]domain.JobSnapshot, error) {
	var out []domain.JobSnapshot
	for _, snap := range f.snapshots {
		if snap.Status == domain.JobStatusApproved {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (f *fakeJobStore) ListScheduledForDate(ctx context.Context, tenantID uuid.UUID, date string) ([]domain.JobSnapshot, error) {
	return f.scheduled, nil
}

func (f *fakeJobStore) MarkScheduledTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, jobIDs []uuid.UUID) (int, error) {
	f.markedScheduled = append(f.markedScheduled, jobIDs)
	return len(jobIDs), nil
}

func (f *fakeJobStore) MarkApprovedTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, jobIDs []uuid.UUID) (int, error) {
	f.markedApproved = append(f.markedApproved, jobIDs)
	return len(jobIDs), nil
}

type fakeStaffRepo struct{ staff []domain.StaffSnapshot }

func (f *fakeStaffRepo) ListActiveTechs(ctx context.Context, tenantID uuid.UUID) ([]domain.StaffSnapshot, error) {
	return f.staff, nil
}

type fakeAvailabilityRepo struct{ entries []domain.AvailabilityEntry }

func (f *fakeAvailabilityRepo) ListForDate(ctx context.Context, tenantID uuid.UUID, date string) ([]domain.AvailabilityEntry, error) {
	return f.entries, nil
}

type fakeAppointmentStore struct {
	rows []domain.Appointment

	inserted []domain.Appointment
	updated  map[uuid.UUID][4]int // appointment id -> start, end, arrival, order
}

func (f *fakeAppointmentStore) ListForDate(ctx context.Context, tenantID uuid.UUID, date string) ([]domain.Appointment, error) {
	return f.rows, nil
}

func (f *fakeAppointmentStore) DeleteScheduledForDateTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, date string) (int, error) {
	n := len(f.rows)
	f.rows = nil
	return n, nil
}

func (f *fakeAppointmentStore) InsertTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, a *domain.Appointment) error {
	f.inserted = append(f.inserted, *a)
	return nil
}

func (f *fakeAppointmentStore) UpdateTimesTx(ctx context.Context, tx *sql.Tx, tenantID, appointmentID uuid.UUID, start, end, arrival, routeOrder int) error {
	if f.updated == nil {
		f.updated = make(map[uuid.UUID][4]int)
	}
	f.updated[appointmentID] = [4]int{start, end, arrival, routeOrder}
	return nil
}

// --- fixtures ---

func scheduledJob(lat, lon float64, createdAt time.Time) domain.JobSnapshot {
	j := makeJob(lat, lon, "eugene", "mowing", 60, 0, domain.PriorityNormal, createdAt, "mower")
	j.Status = domain.JobStatusScheduled
	return j
}

func appointmentFor(job domain.JobSnapshot, staffID uuid.UUID, order, start int) domain.Appointment {
	return domain.Appointment{
		ID:               uuid.New(),
		JobID:            job.JobID,
		StaffID:          staffID,
		ScheduleDate:     "2025-06-02",
		TimeWindowStart:  start,
		TimeWindowEnd:    start + 60,
		Status:           domain.AppointmentStatusScheduled,
		RouteOrder:       order,
		EstimatedArrival: start,
	}
}

func TestEmergencyInsertMinimalDisturbance(t *testing.T) {
	hostDay := makeStaffDay(44.00, -123.00, 480, 1020, nil, 0, "mower", "crane")
	otherDay := makeStaffDay(44.50, -123.50, 480, 1020, nil, 0, "mower")

	s1 := scheduledJob(44.01, -123.01, fixtureCreated)
	s2 := scheduledJob(44.02, -123.02, fixtureCreated.Add(time.Minute))
	s3 := scheduledJob(44.03, -123.03, fixtureCreated.Add(2*time.Minute))
	t1 := scheduledJob(44.51, -123.51, fixtureCreated.Add(3*time.Minute))

	urgent := makeJob(44.015, -123.015, "eugene", "mowing", 30, 0, domain.PriorityUrgent, fixtureCreated.Add(time.Hour), "crane")

	hostID := hostDay.Staff.StaffID
	otherID := otherDay.Staff.StaffID
	appointments := []domain.Appointment{
		appointmentFor(s1, hostID, 0, 485),
		appointmentFor(s2, hostID, 1, 550),
		appointmentFor(s3, hostID, 2, 615),
		appointmentFor(t1, otherID, 0, 485),
	}

	jobs := &fakeJobStore{
		snapshots: map[uuid.UUID]domain.JobSnapshot{urgent.JobID: urgent},
		scheduled: []domain.JobSnapshot{s1, s2, s3, t1},
	}
	appts := &fakeAppointmentStore{rows: appointments}
	tx := &fakeTxRunner{}

	inserter := NewEmergencyInserter(
		jobs, jobs,
		&fakeStaffRepo{staff: []domain.StaffSnapshot{hostDay.Staff, otherDay.Staff}},
		&fakeAvailabilityRepo{entries: []domain.AvailabilityEntry{hostDay.Availability, otherDay.Availability}},
		appts, appts, jobs, tx,
		NewOracle(nil, testLogger()), testLogger(),
	)

	result, err := inserter.Insert(context.Background(), uuid.New(), urgent.JobID, "2025-06-02", domain.PriorityUrgent)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, hostID, result.StaffID, "equipped host wins")

	// The host tour gains the urgent stop between s1 and s2.
	require.Len(t, result.Assignment.Stops, 4)
	assert.Equal(t, s1.JobID, result.Assignment.Stops[0].JobID)
	assert.Equal(t, urgent.JobID, result.Assignment.Stops[1].JobID)
	assert.Equal(t, s2.JobID, result.Assignment.Stops[2].JobID)
	assert.Equal(t, s3.JobID, result.Assignment.Stops[3].JobID)

	// One insert for the urgent job, updates only for the host's rows.
	require.Len(t, appts.inserted, 1)
	assert.Equal(t, urgent.JobID, appts.inserted[0].JobID)
	assert.Equal(t, 1, appts.inserted[0].RouteOrder)
	for id := range appts.updated {
		owner := uuid.Nil
		for _, a := range appointments {
			if a.ID == id {
				owner = a.StaffID
			}
		}
		assert.Equal(t, hostID, owner, "only the host tour is touched")
	}

	require.Len(t, jobs.markedScheduled, 1)
	assert.Equal(t, []uuid.UUID{urgent.JobID}, jobs.markedScheduled[0])
	assert.Equal(t, 1, tx.calls)
}

func TestEmergencyInsertInfeasibleEquipment(t *testing.T) {
	day := makeStaffDay(44.00, -123.00, 480, 1020, nil, 0, "mower")
	urgent := makeJob(44.015, -123.015, "eugene", "mowing", 30, 0, domain.PriorityUrgent, fixtureCreated, "crane")

	jobs := &fakeJobStore{snapshots: map[uuid.UUID]domain.JobSnapshot{urgent.JobID: urgent}}
	appts := &fakeAppointmentStore{}

	inserter := NewEmergencyInserter(
		jobs, jobs,
		&fakeStaffRepo{staff: []domain.StaffSnapshot{day.Staff}},
		&fakeAvailabilityRepo{entries: []domain.AvailabilityEntry{day.Availability}},
		appts, appts, jobs, &fakeTxRunner{},
		NewOracle(nil, testLogger()), testLogger(),
	)

	result, err := inserter.Insert(context.Background(), uuid.New(), urgent.JobID, "2025-06-02", domain.PriorityUrgent)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, domain.ReasonEquipment, result.Reason)
	assert.Empty(t, appts.inserted)
}

func TestEmergencyInsertRejectsNonApprovedJob(t *testing.T) {
	job := scheduledJob(44.01, -123.01, fixtureCreated)
	jobs := &fakeJobStore{snapshots: map[uuid.UUID]domain.JobSnapshot{job.JobID: job}}
	appts := &fakeAppointmentStore{}

	inserter := NewEmergencyInserter(
		jobs, jobs, &fakeStaffRepo{}, &fakeAvailabilityRepo{},
		appts, appts, jobs, &fakeTxRunner{},
		NewOracle(nil, testLogger()), testLogger(),
	)

	_, err := inserter.Insert(context.Background(), uuid.New(), job.JobID, "2025-06-02", domain.PriorityUrgent)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
}
