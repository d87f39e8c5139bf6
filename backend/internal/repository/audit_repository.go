package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// ClearAuditRepository owns the schedule_clear_audit table: one row per
// clear operation, holding everything needed to reverse it.
type ClearAuditRepository struct {
	db *Database
}

// NewClearAuditRepository creates a new clear audit repository instance
func NewClearAuditRepository(db *Database) *ClearAuditRepository {
	return &ClearAuditRepository{db: db}
}

// CreateTx writes one audit row inside the caller's transaction.
func (r *ClearAuditRepository) CreateTx(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, audit *domain.ClearAudit) error {
	payload, err := json.Marshal(audit.SerializedAppointments)
	if err != nil {
		return fmt.Errorf("failed to marshal appointments payload: %w", err)
	}

	query := `
		INSERT INTO schedule_clear_audit (
			id, tenant_id, schedule_date, cleared_at, cleared_by, notes,
			appointments_data, jobs_reset, appointment_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.ExecContext(ctx, query,
		audit.AuditID,
		tenantID,
		audit.ScheduleDate,
		audit.ClearedAt,
		audit.ClearedBy,
		audit.Notes,
		payload,
		pq.Array(audit.JobsReset),
		audit.AppointmentCount,
	)
	if err != nil {
		return fmt.Errorf("failed to create clear audit: %w", err)
	}
	return nil
}

const auditColumns = `
	id, to_char(schedule_date, 'YYYY-MM-DD'), cleared_at, cleared_by,
	notes, appointments_data, jobs_reset, appointment_count`

// Get loads one audit row, or a NotFoundError.
func (r *ClearAuditRepository) Get(ctx context.Context, tenantID, auditID uuid.UUID) (*domain.ClearAudit, error) {
	query := `SELECT ` + auditColumns + `
		FROM schedule_clear_audit
		WHERE tenant_id = $1 AND id = $2`

	row := r.db.QueryRowContext(ctx, query, tenantID, auditID)
	audit, err := scanAudit(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("clear audit", auditID.String())
	}
	if err != nil {
		return nil, err
	}
	return audit, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAudit(row rowScanner) (*domain.ClearAudit, error) {
	var (
		audit     domain.ClearAudit
		payload   []byte
		jobsReset pq.StringArray
	)
	err := row.Scan(
		&audit.AuditID,
		&audit.ScheduleDate,
		&audit.ClearedAt,
		&audit.ClearedBy,
		&audit.Notes,
		&payload,
		&jobsReset,
		&audit.AppointmentCount,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payload, &audit.SerializedAppointments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal appointments payload: %w", err)
	}
	for _, raw := range jobsReset {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reset job id %q: %w", raw, err)
		}
		audit.JobsReset = append(audit.JobsReset, id)
	}
	return &audit, nil
}

// DeleteTx removes the audit row once its restore has committed.
func (r *ClearAuditRepository) DeleteTx(ctx context.Context, tx *sql.Tx, tenantID, auditID uuid.UUID) error {
	result, err := tx.ExecContext(ctx,
		`DELETE FROM schedule_clear_audit WHERE tenant_id = $1 AND id = $2`,
		tenantID, auditID)
	if err != nil {
		return fmt.Errorf("failed to delete clear audit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("clear audit", auditID.String())
	}
	return nil
}

// ListRecent returns audit summaries newer than the cutoff, newest first.
func (r *ClearAuditRepository) ListRecent(ctx context.Context, tenantID uuid.UUID, hours int) ([]domain.AuditSummary, error) {
	query := `
		SELECT id, to_char(schedule_date, 'YYYY-MM-DD'), cleared_at,
		       cleared_by, notes, appointment_count
		FROM schedule_clear_audit
		WHERE tenant_id = $1 AND cleared_at >= NOW() - make_interval(hours => $2)
		ORDER BY cleared_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID, hours)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent audits: %w", err)
	}
	defer rows.Close()

	var summaries []domain.AuditSummary
	for rows.Next() {
		var s domain.AuditSummary
		err := rows.Scan(&s.AuditID, &s.ScheduleDate, &s.ClearedAt, &s.ClearedBy, &s.Notes, &s.AppointmentCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit summaries: %w", err)
	}
	return summaries, nil
}
