package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// StaffRepository resolves dispatchable technicians into staff snapshots.
type StaffRepository struct {
	db *Database
}

// NewStaffRepository creates a new staff repository instance
func NewStaffRepository(db *Database) *StaffRepository {
	return &StaffRepository{db: db}
}

type dbStaff struct {
	ID             uuid.UUID      `db:"id"`
	Name           string         `db:"name"`
	Role           string         `db:"role"`
	HomeLatitude   float64        `db:"home_latitude"`
	HomeLongitude  float64        `db:"home_longitude"`
	HomeCity       string         `db:"home_city"`
	EquipmentOwned pq.StringArray `db:"equipment_owned"`
	Active         bool           `db:"active"`
}

// ListActiveTechs returns every active staff member with role tech, the
// only dispatchable population.
func (r *StaffRepository) ListActiveTechs(ctx context.Context, tenantID uuid.UUID) ([]domain.StaffSnapshot, error) {
	query := `
		SELECT id, name, role, home_latitude, home_longitude,
		       COALESCE(LOWER(home_city), '') AS home_city,
		       equipment_owned, active
		FROM staff
		WHERE tenant_id = $1 AND active = TRUE AND role = 'tech'
		ORDER BY id`

	var rows []dbStaff
	if err := r.db.SQLX().SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list active staff: %w", err)
	}

	snapshots := make([]domain.StaffSnapshot, 0, len(rows))
	for _, row := range rows {
		owned := make(map[domain.EquipmentTag]struct{}, len(row.EquipmentOwned))
		for _, tag := range row.EquipmentOwned {
			owned[domain.EquipmentTag(strings.ToLower(tag))] = struct{}{}
		}
		snapshots = append(snapshots, domain.StaffSnapshot{
			StaffID: row.ID,
			Name:    row.Name,
			Role:    row.Role,
			HomeLocation: domain.Location{
				Lat:     row.HomeLatitude,
				Lon:     row.HomeLongitude,
				CityTag: row.HomeCity,
			},
			EquipmentOwned: owned,
			Active:         row.Active,
		})
	}
	return snapshots, nil
}

// GetName returns one staff member's display name, used when shaping the
// schedule response.
func (r *StaffRepository) GetName(ctx context.Context, tenantID, staffID uuid.UUID) (string, error) {
	var name string
	err := r.db.SQLX().GetContext(ctx, &name,
		`SELECT name FROM staff WHERE tenant_id = $1 AND id = $2`, tenantID, staffID)
	if err != nil {
		return "", fmt.Errorf("failed to get staff name: %w", err)
	}
	return name, nil
}
