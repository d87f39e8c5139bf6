package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/landscaping-app/backend/internal/domain"
	"github.com/pageza/landscaping-app/backend/internal/repository"
)

var sqlContains = sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
	squash := func(s string) string { return strings.Join(strings.Fields(s), " ") }
	if !strings.Contains(squash(actualSQL), squash(expectedSQL)) {
		return fmt.Errorf("query %q does not contain %q", actualSQL, expectedSQL)
	}
	return nil
})

func persistFixture() (*domain.ScheduleResult, uuid.UUID) {
	staffID := uuid.New()
	return &domain.ScheduleResult{
		Date: "2025-06-02",
		Assignments: []domain.Assignment{{
			StaffID: staffID,
			Stops: []domain.StopPlan{
				{JobID: uuid.New(), ArriveMinute: 481, StartMinute: 481, EndMinute: 541, TravelMinuteFromPrev: 1},
				{JobID: uuid.New(), ArriveMinute: 545, StartMinute: 545, EndMinute: 605, TravelMinuteFromPrev: 4},
			},
		}},
		Feasible: true,
	}, staffID
}

func TestPersistWritesEverythingInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlContains))
	require.NoError(t, err)
	defer db.Close()

	store := repository.NewDatabaseFromConn(db)
	repos := repository.NewRepositories(store)
	persister := NewPersister(store, repos.Appointment, repos.Job, testLogger())

	result, _ := persistFixture()
	tenantID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM appointments a").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE jobs SET status").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, persister.Persist(context.Background(), tenantID, result))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlContains))
	require.NoError(t, err)
	defer db.Close()

	store := repository.NewDatabaseFromConn(db)
	repos := repository.NewRepositories(store)
	persister := NewPersister(store, repos.Appointment, repos.Job, testLogger())

	result, _ := persistFixture()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM appointments a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO appointments").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = persister.Persist(context.Background(), uuid.New(), result)
	var pErr *domain.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, err.Error(), "persist schedule")
	require.NoError(t, mock.ExpectationsWereMet())
}
