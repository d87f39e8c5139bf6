package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

func testHandler() *ScheduleHandler {
	return &ScheduleHandler{logger: log.New(io.Discard, "", 0)}
}

func TestWriteSchedulingErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", domain.NewValidationError("schedule_date", "must be YYYY-MM-DD"), http.StatusBadRequest},
		{"not found", domain.NewNotFoundError("clear audit", "abc"), http.StatusNotFound},
		{"conflict", &domain.ConflictError{ScheduleDate: "2025-06-02"}, http.StatusConflict},
		{"busy", &domain.BusyError{Cap: 2}, http.StatusServiceUnavailable},
		{"persistence", domain.NewPersistenceError("persist schedule", errors.New("boom")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			testHandler().writeSchedulingError(rec, "failed", tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestBusyErrorCarriesRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler().writeSchedulingError(rec, "failed", &domain.BusyError{Cap: 2})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler().writeSchedulingError(rec, "failed", errors.New("connection string with secrets"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body["detail"], "internal errors stay opaque")
}
