package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// AppointmentRepository owns the appointments table: one row per stop of
// a persisted schedule.
type AppointmentRepository struct {
	db *Database
}

// NewAppointmentRepository creates a new appointment repository instance
func NewAppointmentRepository(db *Database) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `
	id, job_id, staff_id, to_char(schedule_date, 'YYYY-MM-DD'),
	time_window_start, time_window_end, status, route_order,
	estimated_arrival, created_at, updated_at`

// ListForDate returns every appointment on the date regardless of
// status, ordered by staff then route order.
func (r *AppointmentRepository) ListForDate(ctx context.Context, tenantID uuid.UUID, date string) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE tenant_id = $1 AND schedule_date = $2
		ORDER BY staff_id, route_order, id`

	rows, err := r.db.QueryContext(ctx, query, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

func scanAppointments(rows *sql.Rows) ([]domain.Appointment, error) {
	var appointments []domain.Appointment
	for rows.Next() {
		var a domain.Appointment
		err := rows.Scan(
			&a.ID,
			&a.JobID,
			&a.StaffID,
			&a.ScheduleDate,
			&a.TimeWindowStart,
			&a.TimeWindowEnd,
			&a.Status,
			&a.RouteOrder,
			&a.EstimatedArrival,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}
	return appointments, nil
}

// DeleteScheduledForDateTx removes the date's appointments whose job is
// still in scheduled status; in-progress and completed work is untouched.
func (r *AppointmentRepository) DeleteScheduledForDateTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, date string) (int, error) {
	query := `
		DELETE FROM appointments a
		USING jobs j
		WHERE a.job_id = j.id AND a.tenant_id = j.tenant_id
		  AND a.tenant_id = $1 AND a.schedule_date = $2
		  AND j.status = $3`

	result, err := tx.ExecContext(ctx, query, tenantID, date, domain.JobStatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scheduled appointments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// DeleteAllForDateTx removes every appointment on the date, used by clear
// after the audit payload has been serialized.
func (r *AppointmentRepository) DeleteAllForDateTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, date string) (int, error) {
	result, err := tx.ExecContext(ctx,
		`DELETE FROM appointments WHERE tenant_id = $1 AND schedule_date = $2`,
		tenantID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete appointments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// InsertTx inserts one appointment row inside the caller's transaction.
func (r *AppointmentRepository) InsertTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, a *domain.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, tenant_id, job_id, staff_id, schedule_date,
			time_window_start, time_window_end, status, route_order,
			estimated_arrival, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.ExecContext(ctx, query,
		a.ID,
		tenantID,
		a.JobID,
		a.StaffID,
		a.ScheduleDate,
		a.TimeWindowStart,
		a.TimeWindowEnd,
		a.Status,
		a.RouteOrder,
		a.EstimatedArrival,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

// UpdateTimesTx shifts one appointment's times and route order, used by
// emergency insertion to push downstream stops.
func (r *AppointmentRepository) UpdateTimesTx(ctx context.Context, tx *sql.Tx, tenantID, appointmentID uuid.UUID, start, end, arrival, routeOrder int) error {
	query := `
		UPDATE appointments
		SET time_window_start = $1, time_window_end = $2,
		    estimated_arrival = $3, route_order = $4, updated_at = $5
		WHERE tenant_id = $6 AND id = $7`

	result, err := tx.ExecContext(ctx, query, start, end, arrival, routeOrder, time.Now().UTC(), tenantID, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to update appointment times: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("appointment", appointmentID.String())
	}
	return nil
}

// SumScheduledMinutes totals the date's appointment durations, feeding
// the capacity report.
func (r *AppointmentRepository) SumScheduledMinutes(ctx context.Context, tenantID uuid.UUID, date string) (int, error) {
	var minutes sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(time_window_end - time_window_start)
		 FROM appointments
		 WHERE tenant_id = $1 AND schedule_date = $2 AND status <> $3`,
		tenantID, date, domain.AppointmentStatusCancelled,
	).Scan(&minutes)
	if err != nil {
		return 0, fmt.Errorf("failed to sum scheduled minutes: %w", err)
	}
	return int(minutes.Int64), nil
}

// JobStatuses returns the job status for each appointment's job so clear
// can record what to reset without a second round trip per row.
func (r *AppointmentRepository) JobStatuses(ctx context.Context, tenantID uuid.UUID, date string) (map[uuid.UUID]string, error) {
	query := `
		SELECT a.job_id, j.status
		FROM appointments a
		JOIN jobs j ON j.id = a.job_id AND j.tenant_id = a.tenant_id
		WHERE a.tenant_id = $1 AND a.schedule_date = $2`

	rows, err := r.db.QueryContext(ctx, query, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointment job statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[uuid.UUID]string)
	for rows.Next() {
		var jobID uuid.UUID
		var status string
		if err := rows.Scan(&jobID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan job status: %w", err)
		}
		statuses[jobID] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job statuses: %w", err)
	}
	return statuses, nil
}
