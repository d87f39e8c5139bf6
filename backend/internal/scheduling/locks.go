package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

// DateLocker is the per-date advisory lock every schedule-mutating write
// phase holds. Reads (capacity, preview) never touch it.
type DateLocker interface {
	// Acquire takes the lock for (tenantID, date) or returns a
	// ConflictError when another mutation holds it. The returned
	// release function is safe to call exactly once.
	Acquire(ctx context.Context, tenantID uuid.UUID, date string) (release func(), err error)
}

// RedisDateLocker implements DateLocker with SET NX PX against Redis, so
// the lock holds across processes sharing the store. The TTL bounds how
// long a crashed holder can wedge a date.
type RedisDateLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDateLocker constructs a date locker with the given lease TTL.
func NewRedisDateLocker(client *redis.Client, ttl time.Duration) *RedisDateLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisDateLocker{client: client, ttl: ttl}
}

// unlockScript deletes the lock only when the token still matches, so an
// expired-and-retaken lock is never released by the old holder.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Acquire implements DateLocker.
func (l *RedisDateLocker) Acquire(ctx context.Context, tenantID uuid.UUID, date string) (func(), error) {
	key := fmt.Sprintf("schedule:lock:%s:%s", tenantID, date)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire date lock: %w", err)
	}
	if !ok {
		return nil, &domain.ConflictError{ScheduleDate: date}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, nil
}

// SolveGate caps the number of CPU-bound solves running in this process.
// Attempts beyond the cap fail fast with a BusyError instead of queuing.
type SolveGate struct {
	slots chan struct{}
	cap   int
}

// NewSolveGate constructs a gate admitting at most n concurrent solves.
func NewSolveGate(n int) *SolveGate {
	if n <= 0 {
		n = 2
	}
	return &SolveGate{slots: make(chan struct{}, n), cap: n}
}

// Acquire claims a solve slot or returns a BusyError immediately.
func (g *SolveGate) Acquire() (release func(), err error) {
	select {
	case g.slots <- struct{}{}:
		return func() { <-g.slots }, nil
	default:
		return nil, &domain.BusyError{Cap: g.cap}
	}
}
