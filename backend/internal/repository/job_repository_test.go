package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// containsMatcher matches when the executed SQL contains the expected
// fragment, keeping expectations readable against multi-line queries.
var containsMatcher = sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
	if !strings.Contains(normalizeSpace(actualSQL), normalizeSpace(expectedSQL)) {
		return fmt.Errorf("query %q does not contain %q", actualSQL, expectedSQL)
	}
	return nil
})

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(containsMatcher))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDatabaseFromConn(db), mock
}

var snapshotColumns = []string{
	"id", "customer_id", "customer_name", "latitude", "longitude", "city_tag",
	"address", "job_type", "duration_minutes", "buffer_minutes", "priority",
	"required_equipment", "staffing_required", "earliest_start_minute",
	"latest_finish_minute", "preferred_window_start", "preferred_window_end",
	"status", "created_at",
}

func TestListApprovedForDateScansSnapshots(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewJobRepository(db)

	tenantID := uuid.New()
	jobID := uuid.New()
	customerID := uuid.New()
	created := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(snapshotColumns).AddRow(
		jobID, customerID, "Pat Doyle", 44.05, -123.09, "eugene",
		"12 Oak St, Eugene, OR", "mowing", 60, 10, 1,
		"{mower,trailer}", 1, nil, nil, nil, nil,
		"approved", created,
	)
	mock.ExpectQuery("FROM jobs j").WithArgs(tenantID, domain.JobStatusApproved).WillReturnRows(rows)

	snapshots, err := repo.ListApprovedForDate(context.Background(), tenantID, nil)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	snap := snapshots[0]
	assert.Equal(t, jobID, snap.JobID)
	assert.Equal(t, "Pat Doyle", snap.CustomerName)
	assert.Equal(t, 44.05, snap.PropertyLocation.Lat)
	assert.Equal(t, "eugene", snap.PropertyLocation.CityTag)
	assert.Equal(t, domain.JobPriority(1), snap.Priority)
	assert.Equal(t, []domain.EquipmentTag{"mower", "trailer"}, snap.EquipmentRequired)
	assert.False(t, snap.Unlocatable)
	assert.Nil(t, snap.EarliestStart)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListApprovedForDateTagsMissingCoordinates(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewJobRepository(db)

	tenantID := uuid.New()
	rows := sqlmock.NewRows(snapshotColumns).AddRow(
		uuid.New(), uuid.New(), "Sam Reyes", nil, nil, "eugene",
		"", "mowing", 60, 0, 0, "{}", 1, nil, nil, nil, nil,
		"approved", time.Now(),
	)
	mock.ExpectQuery("FROM jobs j").WithArgs(tenantID, domain.JobStatusApproved).WillReturnRows(rows)

	snapshots, err := repo.ListApprovedForDate(context.Background(), tenantID, nil)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].Unlocatable)
}

func TestGetSnapshotNotFound(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewJobRepository(db)

	tenantID := uuid.New()
	jobID := uuid.New()
	mock.ExpectQuery("FROM jobs j").
		WithArgs(tenantID, jobID).
		WillReturnRows(sqlmock.NewRows(snapshotColumns))

	_, err := repo.GetSnapshot(context.Background(), tenantID, jobID)
	var nfErr *domain.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestMarkScheduledTxTransitionsOnlyApproved(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewJobRepository(db)

	tenantID := uuid.New()
	jobIDs := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE jobs SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	moved, err := repo.MarkScheduledTx(context.Background(), tx, tenantID, jobIDs)
	require.NoError(t, err)
	assert.Equal(t, 1, moved, "already-scheduled jobs do not move")

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkScheduledTxNoJobsIsNoop(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewJobRepository(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	moved, err := repo.MarkScheduledTx(context.Background(), tx, uuid.New(), nil)
	require.NoError(t, err)
	assert.Zero(t, moved)

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}
