package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EquipmentTag identifies a piece of equipment a job requires or a staff
// member carries (chainsaw, mower, aerator, ...).
type EquipmentTag string

// JobPriority orders jobs for construction-phase insertion and the
// priority-reward soft constraint.
type JobPriority int

const (
	PriorityNormal JobPriority = 0
	PriorityHigh   JobPriority = 1
	PriorityUrgent JobPriority = 2
)

// Job statuses participating in (or excluded from) the optimizer.
const (
	JobStatusApproved   = "approved"
	JobStatusScheduled  = "scheduled"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
	JobStatusClosed     = "closed"
)

// Location is a geocoded point plus a case-folded city tag used for soft
// batching. Lat/Lon are degrees; CityTag is matched case-insensitively by
// callers, so it is stored already folded.
type Location struct {
	Lat     float64 `json:"lat" db:"lat"`
	Lon     float64 `json:"lon" db:"lon"`
	CityTag string  `json:"city_tag" db:"city_tag"`
}

// Key returns an identity string suitable for travel-matrix lookups. Two
// Locations with the same Key are treated as the same point.
func (l Location) Key(ownerKind string, ownerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", ownerKind, ownerID.String())
}

// JobSnapshot is the solver's immutable, read-only view of a job. It is a
// flat projection copied out of the CRM job/property/customer graph at
// snapshot-load time; the solver never walks back to the originating rows.
type JobSnapshot struct {
	JobID                uuid.UUID
	CustomerID           uuid.UUID
	CustomerName         string
	PropertyLocation     Location
	Address              string
	JobType              string
	DurationMinutes      int
	BufferMinutes        int
	Priority             JobPriority
	EquipmentRequired    []EquipmentTag
	StaffingRequired     int
	EarliestStart        *int // minute-of-day, inclusive
	LatestFinish         *int // minute-of-day, inclusive upper bound on end_minute
	PreferredWindowStart *int // soft preference, distinct from the hard bounds above
	PreferredWindowEnd   *int
	Status               string
	CreatedAt            time.Time
	Unlocatable          bool // property has no usable coordinates
}

// MissingEquipment returns the required tags the given inventory lacks.
func (j JobSnapshot) MissingEquipment(owned map[EquipmentTag]struct{}) []EquipmentTag {
	var missing []EquipmentTag
	for _, tag := range j.EquipmentRequired {
		if _, ok := owned[tag]; !ok {
			missing = append(missing, tag)
		}
	}
	return missing
}

// StaffSnapshot is the solver's immutable view of a dispatchable technician.
type StaffSnapshot struct {
	StaffID        uuid.UUID
	Name           string
	Role           string
	HomeLocation   Location
	EquipmentOwned map[EquipmentTag]struct{}
	Active         bool
}

// AvailabilityEntry is the per-staff, per-date work window. Use
// NewAvailabilityEntry rather than the struct literal so window and
// lunch violations are caught as a ValidationError.
type AvailabilityEntry struct {
	StaffID              uuid.UUID
	Date                 string // YYYY-MM-DD, no timezone
	Available            bool
	WindowStart          int // minute-of-day
	WindowEnd            int
	LunchStart           *int
	LunchDurationMinutes int
}

// NewAvailabilityEntry validates and returns an AvailabilityEntry.
func NewAvailabilityEntry(staffID uuid.UUID, date string, available bool, windowStart, windowEnd int, lunchStart *int, lunchDuration int) (*AvailabilityEntry, error) {
	e := &AvailabilityEntry{
		StaffID:              staffID,
		Date:                 date,
		Available:            available,
		WindowStart:          windowStart,
		WindowEnd:            windowEnd,
		LunchStart:           lunchStart,
		LunchDurationMinutes: lunchDuration,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate enforces the construction-time window and lunch invariants.
func (e *AvailabilityEntry) Validate() error {
	if e.WindowStart >= e.WindowEnd {
		return NewValidationError("window_start", "window_start must be before window_end")
	}
	if e.LunchDurationMinutes < 0 || e.LunchDurationMinutes > 120 {
		return NewValidationError("lunch_duration_minutes", "lunch_duration_minutes must be within [0,120]")
	}
	if e.LunchStart != nil {
		if *e.LunchStart < e.WindowStart {
			return NewValidationError("lunch_start", "lunch_start must be at or after window_start")
		}
		if *e.LunchStart+e.LunchDurationMinutes > e.WindowEnd {
			return NewValidationError("lunch_start", "lunch interval must end at or before window_end")
		}
	}
	return nil
}

// AvailableMinutes is the total working
// minutes minus the lunch break, zero when the entry marks the day
// unavailable.
func (e *AvailabilityEntry) AvailableMinutes() int {
	if !e.Available {
		return 0
	}
	return (e.WindowEnd - e.WindowStart) - e.LunchDurationMinutes
}

// IsTimeAvailable reports whether minute t of the day falls inside the work
// window and outside the lunch interval.
func (e *AvailabilityEntry) IsTimeAvailable(t int) bool {
	if !e.Available {
		return false
	}
	if t < e.WindowStart || t >= e.WindowEnd {
		return false
	}
	if e.LunchStart != nil {
		lunchEnd := *e.LunchStart + e.LunchDurationMinutes
		if t >= *e.LunchStart && t < lunchEnd {
			return false
		}
	}
	return true
}

// OverlapsLunch reports whether [start,end) intersects the lunch interval.
func (e *AvailabilityEntry) OverlapsLunch(start, end int) bool {
	if e.LunchStart == nil || e.LunchDurationMinutes == 0 {
		return false
	}
	lunchEnd := *e.LunchStart + e.LunchDurationMinutes
	return start < lunchEnd && end > *e.LunchStart
}

// StopPlan is one scheduled visit within a staff member's tour. All times
// are minutes-of-day.
type StopPlan struct {
	JobID                uuid.UUID `json:"job_id"`
	ArriveMinute         int       `json:"arrive_minute"`
	StartMinute          int       `json:"start_minute"`
	EndMinute            int       `json:"end_minute"`
	TravelMinuteFromPrev int       `json:"travel_minute_from_prev"`
}

// Assignment is the ordered tour for one staff member on the schedule date.
type Assignment struct {
	StaffID uuid.UUID  `json:"staff_id"`
	Stops   []StopPlan `json:"stops"`
}

// UnassignedJob names a job the solver could not seat, and why.
type UnassignedJob struct {
	JobID  uuid.UUID `json:"job_id"`
	Reason string    `json:"reason"`
}

// Unassigned reasons.
const (
	ReasonUnlocatable       = "unlocatable"
	ReasonNoFit             = "no_fit"
	ReasonNoFitWithTravel   = "no_fit_with_travel"
	ReasonEquipment         = "equipment"
	ReasonNoEligibleStaff   = "no_eligible_staff"
	ReasonMultiStaffPartial = "multi_staff_unavailable"
)

// ConstraintViolation names one hard or soft penalty contribution. Carried
// from the original Python service's ConstraintViolation dataclass (see
// DESIGN.md) so infeasible results explain themselves instead of just
// reporting a number.
type ConstraintViolation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Penalty     int64  `json:"penalty"`
	IsHard      bool   `json:"is_hard"`
}

// Score is the additive (hard, soft) pair. Hard is always
// <= 0; Soft is maximized.
type Score struct {
	Hard int64
	Soft int64
}

// Feasible reports hard == 0.
func (s Score) Feasible() bool { return s.Hard == 0 }

// Add returns the componentwise sum of two scores.
func (s Score) Add(o Score) Score {
	return Score{Hard: s.Hard + o.Hard, Soft: s.Soft + o.Soft}
}

// ScheduleResult is the solver's always-returned output: it never raises
// for infeasibility, it reports it.
type ScheduleResult struct {
	Date           string                `json:"schedule_date"`
	Assignments    []Assignment          `json:"assignments"`
	UnassignedJobs []UnassignedJob       `json:"unassigned_jobs"`
	Violations     []ConstraintViolation `json:"violations"`
	Hard           int64                 `json:"hard_score"`
	Soft           int64                 `json:"soft_score"`
	Feasible       bool                  `json:"is_feasible"`
	ElapsedMS      int64                 `json:"elapsed_ms"`
	MovesEvaluated int64                 `json:"moves_evaluated"`
	Seed           int64                 `json:"-"`
}

// SerializedAppointment is the audit-row shape of one persisted
// appointment, sufficient to reconstruct it on restore. Clock fields are
// strings because payloads written over time mix HH:MM, HH:MM:SS and
// ISO-8601; restore parses whichever form it finds.
type SerializedAppointment struct {
	AppointmentID    uuid.UUID `json:"appointment_id"`
	JobID            uuid.UUID `json:"job_id"`
	StaffID          uuid.UUID `json:"staff_id"`
	Date             string    `json:"date"`
	TimeWindowStart  string    `json:"time_window_start"`
	TimeWindowEnd    string    `json:"time_window_end"`
	EstimatedArrival string    `json:"estimated_arrival"`
	RouteOrder       int       `json:"route_order"`
	Status           string    `json:"status"`
	JobStatusBefore  string    `json:"job_status_before"`
}

// ClearAudit is a reversible record of one clear(date) call.
type ClearAudit struct {
	AuditID                 uuid.UUID               `json:"audit_id" db:"id"`
	ScheduleDate            string                  `json:"schedule_date" db:"schedule_date"`
	ClearedAt               time.Time               `json:"cleared_at" db:"cleared_at"`
	ClearedBy               uuid.UUID               `json:"cleared_by" db:"cleared_by"`
	Notes                   *string                 `json:"notes" db:"notes"`
	SerializedAppointments  []SerializedAppointment `json:"appointments_data" db:"appointments_data"`
	JobsReset               []uuid.UUID             `json:"jobs_reset" db:"jobs_reset"`
	AppointmentCount        int                     `json:"appointment_count" db:"appointment_count"`
}

// AuditSummary is the list-view projection returned by GET
// /schedule/clear/recent: everything but the appointments payload.
type AuditSummary struct {
	AuditID          uuid.UUID `json:"audit_id"`
	ScheduleDate     string    `json:"schedule_date"`
	ClearedAt        time.Time `json:"cleared_at"`
	ClearedBy        uuid.UUID `json:"cleared_by"`
	Notes            *string   `json:"notes,omitempty"`
	AppointmentCount int       `json:"appointment_count"`
}

// Summary projects a ClearAudit down to its list-view shape.
func (a *ClearAudit) Summary() AuditSummary {
	return AuditSummary{
		AuditID:          a.AuditID,
		ScheduleDate:     a.ScheduleDate,
		ClearedAt:        a.ClearedAt,
		ClearedBy:        a.ClearedBy,
		Notes:            a.Notes,
		AppointmentCount: a.AppointmentCount,
	}
}

// Appointment is the persisted row one StopPlan becomes once a
// ScheduleResult is flushed.
type Appointment struct {
	ID               uuid.UUID `json:"id" db:"id"`
	JobID            uuid.UUID `json:"job_id" db:"job_id"`
	StaffID          uuid.UUID `json:"staff_id" db:"staff_id"`
	ScheduleDate     string    `json:"date" db:"date"`
	TimeWindowStart  int       `json:"time_window_start" db:"time_window_start"`
	TimeWindowEnd    int       `json:"time_window_end" db:"time_window_end"`
	Status           string    `json:"status" db:"status"`
	RouteOrder       int       `json:"route_order" db:"route_order"`
	EstimatedArrival int       `json:"estimated_arrival" db:"estimated_arrival"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Appointment statuses.
const (
	AppointmentStatusScheduled  = "scheduled"
	AppointmentStatusInProgress = "in_progress"
	AppointmentStatusCompleted  = "completed"
	AppointmentStatusCancelled  = "cancelled"
)

// CapacityReport is the read-only slack summary for one date.
type CapacityReport struct {
	ScheduleDate             string `json:"schedule_date"`
	TotalStaff               int    `json:"total_staff"`
	AvailableStaff           int    `json:"available_staff"`
	TotalCapacityMinutes     int    `json:"total_capacity_minutes"`
	ScheduledMinutes         int    `json:"scheduled_minutes"`
	RemainingCapacityMinutes int    `json:"remaining_capacity_minutes"`
	CanAcceptMore            bool   `json:"can_accept_more"`
}

// --- Typed errors ---

// ValidationError reports a malformed request or invalid entry, carrying
// the offending field path.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing job, staff, or audit row.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConflictError reports advisory-lock contention on a schedule date.
type ConflictError struct {
	ScheduleDate string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule date %s is locked by a concurrent mutation", e.ScheduleDate)
}

// BusyError reports the process-wide concurrent-solve cap being reached.
type BusyError struct {
	Cap int
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("concurrent solve cap of %d reached", e.Cap)
}

// PersistenceError wraps a database transaction failure.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
