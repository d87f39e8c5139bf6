package middleware

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pageza/landscaping-app/backend/internal/config"
)

type contextKey string

const (
	tenantIDKey contextKey = "tenant_id"
	userIDKey   contextKey = "user_id"
)

// Middleware holds all middleware functions
type Middleware struct {
	config   *config.Config
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(config *config.Config) *Middleware {
	return &Middleware{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
}

// CORS handles Cross-Origin Resource Sharing
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowedOrigin := range m.config.CORSAllowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Tenant-ID")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Logging logs HTTP requests
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %s %s",
			r.Method,
			r.RequestURI,
			wrapped.statusCode,
			duration,
			r.UserAgent(),
		)
	})
}

// RateLimit throttles requests per client IP.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	perSecond := rate.Limit(float64(m.config.RateLimitRequestsPerMinute) / 60.0)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		m.mu.Lock()
		limiter, ok := m.limiters[host]
		if !ok {
			limiter = rate.NewLimiter(perSecond, m.config.RateLimitRequestsPerMinute)
			m.limiters[host] = limiter
		}
		m.mu.Unlock()

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Recovery converts panics into 500s instead of dropping the connection.
func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic recovered: %v (%s %s)", rec, r.Method, r.RequestURI)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// TenantContext resolves the tenant and acting user for the request from
// headers, falling back to the configured default tenant.
func (m *Middleware) TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := m.config.DefaultTenantID
		if raw := r.Header.Get("X-Tenant-ID"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "Invalid X-Tenant-ID header", http.StatusBadRequest)
				return
			}
			tenantID = parsed
		}

		ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
		if raw := r.Header.Get("X-User-ID"); raw != "" {
			if parsed, err := uuid.Parse(raw); err == nil {
				ctx = context.WithValue(ctx, userIDKey, parsed)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantIDFromContext returns the request tenant, or uuid.Nil.
func TenantIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(tenantIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// UserIDFromContext returns the acting user, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(userIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
