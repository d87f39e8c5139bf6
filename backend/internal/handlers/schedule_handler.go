package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pageza/landscaping-app/backend/internal/domain"
	"github.com/pageza/landscaping-app/backend/internal/middleware"
	"github.com/pageza/landscaping-app/backend/internal/scheduling"
)

// ScheduleHandler handles HTTP requests for schedule operations
type ScheduleHandler struct {
	orchestrator *scheduling.Orchestrator
	logger       *log.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(orchestrator *scheduling.Orchestrator, logger *log.Logger) *ScheduleHandler {
	return &ScheduleHandler{orchestrator: orchestrator, logger: logger}
}

// RegisterRoutes registers schedule routes with the router
func (h *ScheduleHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/schedule/generate", h.Generate).Methods("POST")
	router.HandleFunc("/schedule/preview", h.Preview).Methods("POST")
	router.HandleFunc("/schedule/capacity/{date}", h.Capacity).Methods("GET")
	router.HandleFunc("/schedule/insert-emergency", h.InsertEmergency).Methods("POST")
	router.HandleFunc("/schedule/re-optimize/{date}", h.Reoptimize).Methods("POST")
	router.HandleFunc("/schedule/clear", h.Clear).Methods("POST")
	router.HandleFunc("/schedule/clear/recent", h.RecentAudits).Methods("GET")
	router.HandleFunc("/schedule/clear/{audit_id}", h.AuditDetail).Methods("GET")
	router.HandleFunc("/schedule/clear/{audit_id}/restore", h.Restore).Methods("POST")
}

// Generate solves and persists the schedule for a date.
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req scheduling.ScheduleGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := h.orchestrator.Generate(r.Context(), middleware.TenantIDFromContext(r.Context()), &req)
	if err != nil {
		h.writeSchedulingError(w, "Failed to generate schedule", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, resp)
}

// Preview solves without persisting.
func (h *ScheduleHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req scheduling.ScheduleGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := h.orchestrator.Preview(r.Context(), middleware.TenantIDFromContext(r.Context()), &req)
	if err != nil {
		h.writeSchedulingError(w, "Failed to preview schedule", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, resp)
}

// Capacity reports remaining slack for a date.
func (h *ScheduleHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]

	report, err := h.orchestrator.Capacity(r.Context(), middleware.TenantIDFromContext(r.Context()), date)
	if err != nil {
		h.writeSchedulingError(w, "Failed to report capacity", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, report)
}

// InsertEmergency places a priority job into the persisted day.
func (h *ScheduleHandler) InsertEmergency(w http.ResponseWriter, r *http.Request) {
	var req scheduling.EmergencyInsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.orchestrator.InsertEmergency(r.Context(), middleware.TenantIDFromContext(r.Context()), &req)
	if err != nil {
		h.writeSchedulingError(w, "Failed to insert emergency job", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

// Reoptimize re-solves the persisted day.
func (h *ScheduleHandler) Reoptimize(w http.ResponseWriter, r *http.Request) {
	req := scheduling.ScheduleGenerateRequest{ScheduleDate: mux.Vars(r)["date"]}
	if r.Body != nil {
		// The body is optional; only timeout/seed overrides live there.
		_ = json.NewDecoder(r.Body).Decode(&req)
		req.ScheduleDate = mux.Vars(r)["date"]
	}

	resp, err := h.orchestrator.Reoptimize(r.Context(), middleware.TenantIDFromContext(r.Context()), &req)
	if err != nil {
		h.writeSchedulingError(w, "Failed to re-optimize schedule", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, resp)
}

// Clear snapshots and deletes a day's appointments.
func (h *ScheduleHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req scheduling.ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	result, err := h.orchestrator.Clear(ctx, middleware.TenantIDFromContext(ctx), &req, middleware.UserIDFromContext(ctx))
	if err != nil {
		h.writeSchedulingError(w, "Failed to clear schedule", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

// Restore reverses a clear by audit ID.
func (h *ScheduleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	auditID, err := uuid.Parse(mux.Vars(r)["audit_id"])
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid audit ID", err)
		return
	}

	result, err := h.orchestrator.Restore(r.Context(), middleware.TenantIDFromContext(r.Context()), auditID)
	if err != nil {
		h.writeSchedulingError(w, "Failed to restore schedule", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

// RecentAudits lists clear audits from the last N hours (default 24).
func (h *ScheduleHandler) RecentAudits(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondWithError(w, http.StatusBadRequest, "Invalid hours parameter", err)
			return
		}
		hours = parsed
	}

	summaries, err := h.orchestrator.RecentAudits(r.Context(), middleware.TenantIDFromContext(r.Context()), hours)
	if err != nil {
		h.writeSchedulingError(w, "Failed to list recent audits", err)
		return
	}
	if summaries == nil {
		summaries = []domain.AuditSummary{}
	}
	h.respondWithJSON(w, http.StatusOK, summaries)
}

// AuditDetail returns one audit row including its appointments payload.
func (h *ScheduleHandler) AuditDetail(w http.ResponseWriter, r *http.Request) {
	auditID, err := uuid.Parse(mux.Vars(r)["audit_id"])
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid audit ID", err)
		return
	}

	audit, err := h.orchestrator.AuditDetail(r.Context(), middleware.TenantIDFromContext(r.Context()), auditID)
	if err != nil {
		h.writeSchedulingError(w, "Failed to get audit", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, audit)
}

// writeSchedulingError maps the typed scheduling errors onto HTTP
// statuses. Solver infeasibility never reaches here; it rides a 200.
func (h *ScheduleHandler) writeSchedulingError(w http.ResponseWriter, message string, err error) {
	var (
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		conflict    *domain.ConflictError
		busy        *domain.BusyError
		persistence *domain.PersistenceError
	)

	switch {
	case errors.As(err, &validation):
		h.respondWithError(w, http.StatusBadRequest, validation.Error(), nil)
	case errors.As(err, &notFound):
		h.respondWithError(w, http.StatusNotFound, notFound.Error(), nil)
	case errors.As(err, &conflict):
		h.respondWithError(w, http.StatusConflict, conflict.Error(), nil)
	case errors.As(err, &busy):
		w.Header().Set("Retry-After", "30")
		h.respondWithError(w, http.StatusServiceUnavailable, busy.Error(), nil)
	case errors.As(err, &persistence):
		h.logger.Printf("persistence failure error=%v", err)
		h.respondWithError(w, http.StatusInternalServerError, message, err)
	default:
		h.logger.Printf("internal failure error=%v", err)
		h.respondWithError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *ScheduleHandler) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Printf("failed to encode response error=%v", err)
	}
}

func (h *ScheduleHandler) respondWithError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]interface{}{"error": message}
	if err != nil && status < http.StatusInternalServerError {
		body["detail"] = err.Error()
	}
	h.respondWithJSON(w, status, body)
}
