package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// AvailabilityRepository resolves per-staff, per-date work windows.
type AvailabilityRepository struct {
	db *Database
}

// NewAvailabilityRepository creates a new availability repository instance
func NewAvailabilityRepository(db *Database) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

type dbAvailability struct {
	StaffID              uuid.UUID `db:"staff_id"`
	Date                 string    `db:"date"`
	Available            bool      `db:"available"`
	WindowStart          int       `db:"window_start"`
	WindowEnd            int       `db:"window_end"`
	LunchStart           *int      `db:"lunch_start"`
	LunchDurationMinutes int       `db:"lunch_duration_minutes"`
}

// ListForDate returns every availability entry for the date. Rows that
// fail entry validation surface as a ValidationError rather than leaking
// an impossible window into the solver.
func (r *AvailabilityRepository) ListForDate(ctx context.Context, tenantID uuid.UUID, date string) ([]domain.AvailabilityEntry, error) {
	query := `
		SELECT staff_id, to_char(date, 'YYYY-MM-DD') AS date, available,
		       window_start, window_end, lunch_start, lunch_duration_minutes
		FROM staff_availability
		WHERE tenant_id = $1 AND date = $2
		ORDER BY staff_id`

	var rows []dbAvailability
	if err := r.db.SQLX().SelectContext(ctx, &rows, query, tenantID, date); err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}

	entries := make([]domain.AvailabilityEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := domain.NewAvailabilityEntry(row.StaffID, row.Date, row.Available,
			row.WindowStart, row.WindowEnd, row.LunchStart, row.LunchDurationMinutes)
		if err != nil {
			return nil, fmt.Errorf("availability entry for staff %s: %w", row.StaffID, err)
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
