package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/time/rate"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

const (
	minTravelMinutes = 1
	maxTravelMinutes = 120
	roadFactor       = 1.4
	avgSpeedKmh      = 40.0
)

// TravelProvider is an external driving-duration source (Google Distance
// Matrix or equivalent). A nil provider forces haversine-only mode.
type TravelProvider interface {
	// DriveSeconds returns the driving duration in seconds between two
	// coordinates, or an error if the provider could not answer.
	DriveSeconds(ctx context.Context, from, to domain.Location, depart time.Time) (float64, error)
}

// Oracle is a pure travel-time function with provider-first,
// haversine-fallback semantics. It never returns an error to callers;
// provider failures are logged and swallowed, and the haversine value
// answers instead.
type Oracle struct {
	provider TravelProvider
	logger   *log.Logger
}

// NewOracle constructs a travel oracle. Pass a nil provider to force
// haversine-only fallback mode (e.g. when GOOGLE_MAPS_API_KEY is unset).
func NewOracle(provider TravelProvider, logger *log.Logger) *Oracle {
	return &Oracle{provider: provider, logger: logger}
}

// Travel returns driving minutes between two points, clamped to [1,120].
func (o *Oracle) Travel(ctx context.Context, from, to domain.Location, depart time.Time) int {
	if from.Lat == to.Lat && from.Lon == to.Lon {
		return minTravelMinutes
	}

	if o.provider != nil {
		seconds, err := o.provider.DriveSeconds(ctx, from, to, depart)
		if err != nil {
			o.logger.Printf("travel provider failed, falling back to haversine error=%v", err)
		} else {
			return clampMinutes(int(math.Ceil(seconds / 60.0)))
		}
	}

	return clampMinutes(int(math.Ceil(haversineMinutes(from, to))))
}

// TravelMatrix is a lookup from (fromKey, toKey) to minutes. Keys are
// caller-assigned identities (e.g. "staff:<uuid>" or "job:<uuid>").
type TravelMatrix struct {
	minutes map[string]map[string]int
	locs    map[string]domain.Location
}

// NewTravelMatrix computes or fetches the full pairwise matrix over the
// given keyed locations. Each pair goes through Travel, so any cell the
// provider cannot fill falls back to haversine on its own.
func (o *Oracle) NewTravelMatrix(ctx context.Context, keyed map[string]domain.Location, depart time.Time) *TravelMatrix {
	m := &TravelMatrix{
		minutes: make(map[string]map[string]int, len(keyed)),
		locs:    keyed,
	}

	for fromKey, from := range keyed {
		m.minutes[fromKey] = make(map[string]int, len(keyed))
		for toKey, to := range keyed {
			if fromKey == toKey {
				continue
			}
			m.minutes[fromKey][toKey] = o.Travel(ctx, from, to, depart)
		}
	}

	return m
}

// Minutes returns the travel time between two keyed locations, computing
// it lazily (and caching it) if the pair was not preloaded.
func (m *TravelMatrix) Minutes(ctx context.Context, o *Oracle, fromKey, toKey string, depart time.Time) int {
	if fromKey == toKey {
		return minTravelMinutes
	}
	if row, ok := m.minutes[fromKey]; ok {
		if v, ok := row[toKey]; ok {
			return v
		}
	}

	from, fromOK := m.locs[fromKey]
	to, toOK := m.locs[toKey]
	if !fromOK || !toOK {
		return minTravelMinutes
	}

	v := o.Travel(ctx, from, to, depart)
	if m.minutes[fromKey] == nil {
		m.minutes[fromKey] = make(map[string]int)
	}
	m.minutes[fromKey][toKey] = v
	return v
}

func clampMinutes(m int) int {
	if m < minTravelMinutes {
		return minTravelMinutes
	}
	if m > maxTravelMinutes {
		return maxTravelMinutes
	}
	return m
}

// haversineMinutes computes great-circle distance with orb/geo and applies
// the road factor and average driving speed.
func haversineMinutes(from, to domain.Location) float64 {
	p1 := orb.Point{from.Lon, from.Lat}
	p2 := orb.Point{to.Lon, to.Lat}
	km := geo.DistanceHaversine(p1, p2) / 1000.0
	return (km * roadFactor) / avgSpeedKmh * 60.0
}

// GoogleDistanceMatrixProvider calls the Google Distance Matrix API (or a
// compatible endpoint) for a single origin/destination pair. Calls are
// throttled so matrix builds cannot exhaust the provider quota.
type GoogleDistanceMatrixProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGoogleDistanceMatrixProvider constructs a provider bound to the
// process-scoped HTTP client. Returns nil if apiKey is empty, signaling
// haversine-only mode to the caller.
func NewGoogleDistanceMatrixProvider(apiKey string, requestsPerSecond float64) *GoogleDistanceMatrixProvider {
	if apiKey == "" {
		return nil
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &GoogleDistanceMatrixProvider{
		apiKey:     apiKey,
		baseURL:    "https://maps.googleapis.com/maps/api/distancematrix/json",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type distanceMatrixResponse struct {
	Rows []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
	Status string `json:"status"`
}

// DriveSeconds implements TravelProvider.
func (p *GoogleDistanceMatrixProvider) DriveSeconds(ctx context.Context, from, to domain.Location, depart time.Time) (float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("travel provider throttle: %w", err)
	}

	q := url.Values{}
	q.Set("origins", fmt.Sprintf("%f,%f", from.Lat, from.Lon))
	q.Set("destinations", fmt.Sprintf("%f,%f", to.Lat, to.Lon))
	q.Set("key", p.apiKey)
	if !depart.IsZero() {
		q.Set("departure_time", fmt.Sprintf("%d", depart.Unix()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build distance matrix request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call distance matrix: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("distance matrix returned status %d", resp.StatusCode)
	}

	var parsed distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode distance matrix response: %w", err)
	}

	if parsed.Status != "OK" || len(parsed.Rows) == 0 || len(parsed.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("distance matrix status %s", parsed.Status)
	}

	elem := parsed.Rows[0].Elements[0]
	if elem.Status != "OK" {
		return 0, fmt.Errorf("distance matrix element status %s", elem.Status)
	}

	return float64(elem.Duration.Value), nil
}
