package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

type stubProvider struct {
	seconds float64
	err     error
	calls   int
}

func (p *stubProvider) DriveSeconds(ctx context.Context, from, to domain.Location, depart time.Time) (float64, error) {
	p.calls++
	return p.seconds, p.err
}

func TestTravelIdenticalCoordinatesReturnsOne(t *testing.T) {
	oracle := NewOracle(nil, testLogger())
	loc := domain.Location{Lat: 44.05, Lon: -123.09}

	assert.Equal(t, 1, oracle.Travel(context.Background(), loc, loc, time.Time{}))
}

func TestTravelClampedToRange(t *testing.T) {
	oracle := NewOracle(nil, testLogger())

	// Antipodal-ish points would take days; the clamp holds at 120.
	a := domain.Location{Lat: 44.05, Lon: -123.09}
	b := domain.Location{Lat: -33.86, Lon: 151.20}
	assert.Equal(t, 120, oracle.Travel(context.Background(), a, b, time.Time{}))

	// Points a few hundred meters apart round up to at least 1.
	c := domain.Location{Lat: 44.0500, Lon: -123.0900}
	d := domain.Location{Lat: 44.0510, Lon: -123.0910}
	got := oracle.Travel(context.Background(), c, d, time.Time{})
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 120)
}

func TestTravelUsesProviderWhenConfigured(t *testing.T) {
	provider := &stubProvider{seconds: 605} // 10m05s rounds up to 11
	oracle := NewOracle(provider, testLogger())

	a := domain.Location{Lat: 44.05, Lon: -123.09}
	b := domain.Location{Lat: 44.10, Lon: -123.15}
	assert.Equal(t, 11, oracle.Travel(context.Background(), a, b, time.Time{}))
	assert.Equal(t, 1, provider.calls)
}

func TestTravelFallsBackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("quota exceeded")}
	oracle := NewOracle(provider, testLogger())

	a := domain.Location{Lat: 44.05, Lon: -123.09}
	b := domain.Location{Lat: 44.10, Lon: -123.15}

	// The oracle never surfaces the failure; the haversine value comes
	// back clamped into range.
	got := oracle.Travel(context.Background(), a, b, time.Time{})
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 120)
	assert.Equal(t, 1, provider.calls)
}

func TestTravelMatrixCoversAllPairs(t *testing.T) {
	oracle := NewOracle(nil, testLogger())
	keyed := map[string]domain.Location{
		"a": {Lat: 44.05, Lon: -123.09},
		"b": {Lat: 44.10, Lon: -123.15},
		"c": {Lat: 44.00, Lon: -123.00},
	}
	matrix := oracle.NewTravelMatrix(context.Background(), keyed, time.Time{})

	for from := range keyed {
		for to := range keyed {
			if from == to {
				continue
			}
			got := matrix.Minutes(context.Background(), oracle, from, to, time.Time{})
			assert.GreaterOrEqual(t, got, 1)
			assert.LessOrEqual(t, got, 120)
		}
	}
}

func TestTravelMatrixSameKeyReturnsMinimum(t *testing.T) {
	oracle := NewOracle(nil, testLogger())
	matrix := oracle.NewTravelMatrix(context.Background(), map[string]domain.Location{
		"a": {Lat: 44.05, Lon: -123.09},
	}, time.Time{})

	assert.Equal(t, 1, matrix.Minutes(context.Background(), oracle, "a", "a", time.Time{}))
}
