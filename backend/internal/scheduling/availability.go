package scheduling

import (
	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// IndexAvailabilityByStaff builds a staff_id -> entry lookup for a single
// date. Absence of an entry means unavailable.
func IndexAvailabilityByStaff(entries []domain.AvailabilityEntry) map[uuid.UUID]*domain.AvailabilityEntry {
	idx := make(map[uuid.UUID]*domain.AvailabilityEntry, len(entries))
	for i := range entries {
		e := entries[i]
		idx[e.StaffID] = &e
	}
	return idx
}

// DispatchableStaff filters staff down to those with a usable availability
// entry for the date: active, role tech, and an entry with available=true.
func DispatchableStaff(staff []domain.StaffSnapshot, availability map[uuid.UUID]*domain.AvailabilityEntry) []StaffDay {
	days := make([]StaffDay, 0, len(staff))
	for _, s := range staff {
		if !s.Active || s.Role != "tech" {
			continue
		}
		entry, ok := availability[s.StaffID]
		if !ok || entry == nil || !entry.Available {
			continue
		}
		days = append(days, StaffDay{Staff: s, Availability: *entry})
	}
	return days
}

// StaffDay pairs a staff snapshot with its resolved availability entry for
// the schedule date — the unit the solver actually reasons about.
type StaffDay struct {
	Staff        domain.StaffSnapshot
	Availability domain.AvailabilityEntry
}

// HomeKey is the travel-matrix identity for this staff member's home
// location.
func (d StaffDay) HomeKey() string {
	return d.Staff.HomeLocation.Key("staff", d.Staff.StaffID)
}
