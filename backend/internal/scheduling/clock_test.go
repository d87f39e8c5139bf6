package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMinuteOfDay(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatMinuteOfDay(0))
	assert.Equal(t, "08:01:00", FormatMinuteOfDay(481))
	assert.Equal(t, "12:30:00", FormatMinuteOfDay(750))
	assert.Equal(t, "23:59:00", FormatMinuteOfDay(1439))
}

func TestParseClockAcceptsAllThreeForms(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"08:01", 481},
		{"08:01:00", 481},
		{"08:01:30", 481},
		{"2025-06-02T08:01:00Z", 481},
		{"2025-06-02T08:01:00", 481},
		{" 12:30 ", 750},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "noon", "25:00", "08:61", "8", "08:01:02:03"} {
		_, err := ParseClock(in)
		assert.Error(t, err, in)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, minute := range []int{0, 1, 481, 720, 750, 1439} {
		got, err := ParseClock(FormatMinuteOfDay(minute))
		require.NoError(t, err)
		assert.Equal(t, minute, got)
	}
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("2025-06-02"))
	assert.Error(t, ValidateDate("06/02/2025"))
	assert.Error(t, ValidateDate("2025-13-01"))
	assert.Error(t, ValidateDate(""))
}
