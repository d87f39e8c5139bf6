package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNewAvailabilityEntryValidation(t *testing.T) {
	staffID := uuid.New()

	tests := []struct {
		name        string
		windowStart int
		windowEnd   int
		lunchStart  *int
		lunchDur    int
		wantField   string
	}{
		{"valid no lunch", 480, 1020, nil, 0, ""},
		{"valid with lunch", 480, 1020, intPtr(720), 30, ""},
		{"window inverted", 1020, 480, nil, 0, "window_start"},
		{"window empty", 480, 480, nil, 0, "window_start"},
		{"lunch too long", 480, 1020, intPtr(720), 121, "lunch_duration_minutes"},
		{"lunch negative", 480, 1020, intPtr(720), -1, "lunch_duration_minutes"},
		{"lunch before window", 480, 1020, intPtr(400), 30, "lunch_start"},
		{"lunch spills past window", 480, 1020, intPtr(1000), 30, "lunch_start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewAvailabilityEntry(staffID, "2025-06-02", true, tt.windowStart, tt.windowEnd, tt.lunchStart, tt.lunchDur)
			if tt.wantField == "" {
				require.NoError(t, err)
				require.NotNil(t, entry)
				return
			}
			require.Error(t, err)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestAvailableMinutes(t *testing.T) {
	entry, err := NewAvailabilityEntry(uuid.New(), "2025-06-02", true, 480, 1020, intPtr(720), 30)
	require.NoError(t, err)
	assert.Equal(t, 510, entry.AvailableMinutes())

	entry.Available = false
	assert.Equal(t, 0, entry.AvailableMinutes())
}

func TestIsTimeAvailable(t *testing.T) {
	entry, err := NewAvailabilityEntry(uuid.New(), "2025-06-02", true, 480, 1020, intPtr(720), 30)
	require.NoError(t, err)

	assert.False(t, entry.IsTimeAvailable(479), "before window")
	assert.True(t, entry.IsTimeAvailable(480), "window start is inclusive")
	assert.True(t, entry.IsTimeAvailable(719), "minute before lunch")
	assert.False(t, entry.IsTimeAvailable(720), "lunch start")
	assert.False(t, entry.IsTimeAvailable(749), "last lunch minute")
	assert.True(t, entry.IsTimeAvailable(750), "lunch end is exclusive")
	assert.False(t, entry.IsTimeAvailable(1020), "window end is exclusive")
}

func TestOverlapsLunch(t *testing.T) {
	entry, err := NewAvailabilityEntry(uuid.New(), "2025-06-02", true, 480, 1020, intPtr(720), 30)
	require.NoError(t, err)

	assert.False(t, entry.OverlapsLunch(600, 720), "ends exactly at lunch start")
	assert.False(t, entry.OverlapsLunch(750, 800), "starts exactly at lunch end")
	assert.True(t, entry.OverlapsLunch(700, 730))
	assert.True(t, entry.OverlapsLunch(730, 740), "fully inside lunch")
	assert.True(t, entry.OverlapsLunch(600, 800), "spans lunch")
}

func TestMissingEquipment(t *testing.T) {
	job := JobSnapshot{EquipmentRequired: []EquipmentTag{"chainsaw", "chipper"}}

	owned := map[EquipmentTag]struct{}{"chainsaw": {}}
	assert.Equal(t, []EquipmentTag{"chipper"}, job.MissingEquipment(owned))

	owned["chipper"] = struct{}{}
	assert.Empty(t, job.MissingEquipment(owned))
}

func TestScoreFeasible(t *testing.T) {
	assert.True(t, Score{Hard: 0, Soft: -500}.Feasible())
	assert.False(t, Score{Hard: -1, Soft: 900}.Feasible())
}
