package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// DateLayout is the wire format for schedule dates. Dates carry no
// timezone; they are local to the operating region.
const DateLayout = "2006-01-02"

// FormatMinuteOfDay renders a minute-of-day as HH:MM:SS, the wire format
// for times of day.
func FormatMinuteOfDay(m int) string {
	if m < 0 {
		m = 0
	}
	return fmt.Sprintf("%02d:%02d:00", m/60, m%60)
}

// ParseClock accepts HH:MM, HH:MM:SS, or an ISO-8601 timestamp and
// returns the minute-of-day. Audit payloads written by older builds mix
// all three forms, so restore has to take any of them.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty clock value")
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Hour()*60 + t.Minute(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.Hour()*60 + t.Minute(), nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("unrecognized clock value %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("unrecognized clock value %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("unrecognized clock value %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return hour*60 + minute, nil
}

// ValidateDate checks the YYYY-MM-DD wire format.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return domain.NewValidationError("schedule_date", "must be YYYY-MM-DD")
	}
	return nil
}
