package scheduling

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func minutePtr(m int) *int { return &m }

// makeStaffDay builds a tech with the given window and equipment, homed
// at the given coordinates.
func makeStaffDay(lat, lon float64, windowStart, windowEnd int, lunchStart *int, lunchDur int, equipment ...string) StaffDay {
	owned := make(map[domain.EquipmentTag]struct{}, len(equipment))
	for _, tag := range equipment {
		owned[domain.EquipmentTag(tag)] = struct{}{}
	}
	staff := domain.StaffSnapshot{
		StaffID:        uuid.New(),
		Name:           faker.Name(),
		Role:           "tech",
		HomeLocation:   domain.Location{Lat: lat, Lon: lon, CityTag: "springfield"},
		EquipmentOwned: owned,
		Active:         true,
	}
	availability := domain.AvailabilityEntry{
		StaffID:              staff.StaffID,
		Date:                 "2025-06-02",
		Available:            true,
		WindowStart:          windowStart,
		WindowEnd:            windowEnd,
		LunchStart:           lunchStart,
		LunchDurationMinutes: lunchDur,
	}
	return StaffDay{Staff: staff, Availability: availability}
}

// makeJob builds an approved job at the given coordinates.
func makeJob(lat, lon float64, city, jobType string, duration, buffer int, priority domain.JobPriority, createdAt time.Time, equipment ...string) domain.JobSnapshot {
	tags := make([]domain.EquipmentTag, 0, len(equipment))
	for _, tag := range equipment {
		tags = append(tags, domain.EquipmentTag(tag))
	}
	return domain.JobSnapshot{
		JobID:            uuid.New(),
		CustomerID:       uuid.New(),
		CustomerName:     faker.Name(),
		PropertyLocation: domain.Location{Lat: lat, Lon: lon, CityTag: city},
		Address:          faker.Word() + " St, Springfield, OR",
		JobType:          jobType,
		DurationMinutes:  duration,
		BufferMinutes:    buffer,
		Priority:         priority,
		EquipmentRequired: tags,
		StaffingRequired: 1,
		Status:           domain.JobStatusApproved,
		CreatedAt:        createdAt,
	}
}

// makeInput assembles a SolverInput over the fixtures with a haversine
// travel matrix.
func makeInput(date string, seed int64, timeoutSeconds int, days []StaffDay, jobs []domain.JobSnapshot) *SolverInput {
	oracle := NewOracle(nil, testLogger())

	keyed := make(map[string]domain.Location, len(days)+len(jobs))
	for _, d := range days {
		keyed[d.HomeKey()] = d.Staff.HomeLocation
	}
	for _, j := range jobs {
		keyed[j.PropertyLocation.Key("job", j.JobID)] = j.PropertyLocation
	}

	return &SolverInput{
		Date:           date,
		Staff:          days,
		Jobs:           jobs,
		Matrix:         oracle.NewTravelMatrix(context.Background(), keyed, time.Time{}),
		Seed:           seed,
		TimeoutSeconds: timeoutSeconds,
	}
}
