package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// JobRepository resolves jobs into the solver's flat snapshot projection
// and owns the approved<->scheduled status transitions. The snapshot
// queries join through properties and customers so the solver never
// touches the job/property/customer graph itself.
type JobRepository struct {
	db *Database
}

// NewJobRepository creates a new job repository instance
func NewJobRepository(db *Database) *JobRepository {
	return &JobRepository{db: db}
}

const jobSnapshotColumns = `
	j.id, j.customer_id,
	COALESCE(c.first_name || ' ' || c.last_name, '') AS customer_name,
	p.latitude, p.longitude,
	COALESCE(LOWER(p.city), '') AS city_tag,
	COALESCE(p.address_line1 || ', ' || p.city || ', ' || p.state, '') AS address,
	j.job_type, j.duration_minutes, j.buffer_minutes, j.priority,
	j.required_equipment, j.staffing_required,
	j.earliest_start_minute, j.latest_finish_minute,
	j.preferred_window_start, j.preferred_window_end,
	j.status, j.created_at`

const jobSnapshotJoins = `
	FROM jobs j
	JOIN properties p ON p.id = j.property_id AND p.tenant_id = j.tenant_id
	JOIN customers c ON c.id = j.customer_id AND c.tenant_id = j.tenant_id`

// ListApprovedForDate returns snapshots of every approved job, optionally
// filtered to a single job ID.
func (r *JobRepository) ListApprovedForDate(ctx context.Context, tenantID uuid.UUID, jobIDFilter *uuid.UUID) ([]domain.JobSnapshot, error) {
	query := `SELECT ` + jobSnapshotColumns + jobSnapshotJoins + `
		WHERE j.tenant_id = $1 AND j.status = $2`
	args := []interface{}{tenantID, domain.JobStatusApproved}

	if jobIDFilter != nil {
		query += ` AND j.id = $3`
		args = append(args, *jobIDFilter)
	}
	query += ` ORDER BY j.created_at, j.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved jobs: %w", err)
	}
	defer rows.Close()

	return scanJobSnapshots(rows)
}

// ListScheduledForDate returns snapshots for the re-optimization path:
// approved jobs plus jobs whose appointment falls on the given date.
func (r *JobRepository) ListScheduledForDate(ctx context.Context, tenantID uuid.UUID, date string) ([]domain.JobSnapshot, error) {
	query := `SELECT ` + jobSnapshotColumns + jobSnapshotJoins + `
		WHERE j.tenant_id = $1
		  AND (j.status = $2
		       OR (j.status = $3 AND EXISTS (
		             SELECT 1 FROM appointments a
		             WHERE a.job_id = j.id AND a.tenant_id = j.tenant_id AND a.schedule_date = $4)))
		ORDER BY j.created_at, j.id`

	rows, err := r.db.QueryContext(ctx, query, tenantID, domain.JobStatusApproved, domain.JobStatusScheduled, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled jobs: %w", err)
	}
	defer rows.Close()

	return scanJobSnapshots(rows)
}

// GetSnapshot returns one job's snapshot, or a NotFoundError.
func (r *JobRepository) GetSnapshot(ctx context.Context, tenantID, jobID uuid.UUID) (*domain.JobSnapshot, error) {
	query := `SELECT ` + jobSnapshotColumns + jobSnapshotJoins + `
		WHERE j.tenant_id = $1 AND j.id = $2`

	rows, err := r.db.QueryContext(ctx, query, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job snapshot: %w", err)
	}
	defer rows.Close()

	snapshots, err := scanJobSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, domain.NewNotFoundError("job", jobID.String())
	}
	return &snapshots[0], nil
}

func scanJobSnapshots(rows *sql.Rows) ([]domain.JobSnapshot, error) {
	var snapshots []domain.JobSnapshot
	for rows.Next() {
		var (
			snap      domain.JobSnapshot
			lat, lon  sql.NullFloat64
			equipment pq.StringArray
			priority  int
		)
		err := rows.Scan(
			&snap.JobID,
			&snap.CustomerID,
			&snap.CustomerName,
			&lat,
			&lon,
			&snap.PropertyLocation.CityTag,
			&snap.Address,
			&snap.JobType,
			&snap.DurationMinutes,
			&snap.BufferMinutes,
			&priority,
			&equipment,
			&snap.StaffingRequired,
			&snap.EarliestStart,
			&snap.LatestFinish,
			&snap.PreferredWindowStart,
			&snap.PreferredWindowEnd,
			&snap.Status,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job snapshot: %w", err)
		}

		snap.Priority = domain.JobPriority(priority)
		snap.PropertyLocation.CityTag = strings.ToLower(snap.PropertyLocation.CityTag)
		for _, tag := range equipment {
			snap.EquipmentRequired = append(snap.EquipmentRequired, domain.EquipmentTag(tag))
		}
		if lat.Valid && lon.Valid {
			snap.PropertyLocation.Lat = lat.Float64
			snap.PropertyLocation.Lon = lon.Float64
		} else {
			snap.Unlocatable = true
		}

		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job snapshots: %w", err)
	}
	return snapshots, nil
}

// MarkScheduledTx transitions the given approved jobs to scheduled inside
// the caller's transaction and returns how many actually moved.
func (r *JobRepository) MarkScheduledTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, jobIDs []uuid.UUID) (int, error) {
	return r.transitionTx(ctx, tx, tenantID, jobIDs, domain.JobStatusApproved, domain.JobStatusScheduled)
}

// MarkApprovedTx transitions the given scheduled jobs back to approved.
func (r *JobRepository) MarkApprovedTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, jobIDs []uuid.UUID) (int, error) {
	return r.transitionTx(ctx, tx, tenantID, jobIDs, domain.JobStatusScheduled, domain.JobStatusApproved)
}

func (r *JobRepository) transitionTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, jobIDs []uuid.UUID, from, to string) (int, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}

	query := `
		UPDATE jobs SET status = $1, updated_at = $2
		WHERE tenant_id = $3 AND status = $4 AND id = ANY($5)`

	result, err := tx.ExecContext(ctx, query, to, time.Now().UTC(), tenantID, from, pq.Array(jobIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to transition jobs %s -> %s: %w", from, to, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// ListScheduledJobIDs returns the IDs of jobs currently in scheduled
// status among the given set, used by clear to know which ones to reset.
func (r *JobRepository) ListScheduledJobIDs(ctx context.Context, tenantID uuid.UUID, jobIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id FROM jobs
		WHERE tenant_id = $1 AND status = $2 AND id = ANY($3)
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, tenantID, domain.JobStatusScheduled, pq.Array(jobIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled job ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job ids: %w", err)
	}
	return ids, nil
}

// GetStatus returns a job's current status, used by restore's
// best-effort path to skip rows whose job has since been cancelled.
func (r *JobRepository) GetStatus(ctx context.Context, tenantID, jobID uuid.UUID) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM jobs WHERE tenant_id = $1 AND id = $2`,
		tenantID, jobID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return "", domain.NewNotFoundError("job", jobID.String())
	}
	if err != nil {
		return "", fmt.Errorf("failed to get job status: %w", err)
	}
	return status, nil
}
