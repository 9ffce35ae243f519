package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/okian/arena/internal/domain/types"
	"github.com/okian/arena/pkg/metrics"
	"golang.org/x/time/rate"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusTooManyRequests = 429
	statusInternalError   = 500
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is the duration after which an idle caller entry is eligible for cleanup.
	maxIdleAge = 10 * time.Minute
)

type callerKey struct{}

// CallerFrom returns the authenticated caller stored by Authenticate.
func CallerFrom(ctx context.Context) (types.Account, bool) {
	a, ok := ctx.Value(callerKey{}).(types.Account)
	return a, ok && !a.IsZero()
}

// WithCaller stores caller in ctx.
func WithCaller(ctx context.Context, caller types.Account) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Authenticate resolves the caller from the bearer token's subject.
func Authenticate(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "api.authenticate"
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" || v == nil {
				writeError(w, NewKind(op, ErrMissingToken))
				return
			}
			claims, err := v.Verify(strings.TrimSpace(raw))
			if err != nil {
				writeError(w, Wrap(op, err))
				return
			}
			caller := types.NewAccount(claims.Subject)
			if caller.IsZero() {
				writeError(w, NewKind(op, types.ErrInvalidAccount))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

type callerEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CallerRateLimiter keeps one token bucket per caller and prunes idle ones inline.
type CallerRateLimiter struct {
	callers map[types.Account]*callerEntry
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

// NewCallerRateLimiter creates a new CallerRateLimiter.
func NewCallerRateLimiter(r rate.Limit, b int) *CallerRateLimiter {
	return &CallerRateLimiter{
		callers: make(map[types.Account]*callerEntry),
		r:       r,
		b:       b,
	}
}

// GetLimiter returns the bucket of caller, pruning stale entries when the
// map exceeds cleanupThreshold.
func (l *CallerRateLimiter) GetLimiter(caller types.Account) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.callers) > cleanupThreshold {
		cutoff := time.Now().Add(-maxIdleAge)
		for k, e := range l.callers {
			if e.lastSeen.Before(cutoff) {
				delete(l.callers, k)
			}
		}
	}

	e, exists := l.callers[caller]
	if !exists {
		e = &callerEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.callers[caller] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// RateLimitMiddleware rejects callers that exceed their bucket. It must run
// after Authenticate.
func RateLimitMiddleware(l *CallerRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, _ := CallerFrom(r.Context())
			if !l.GetLimiter(caller).Allow() {
				metrics.RecordRateLimited()
				writeError(w, NewKind("api.rate_limit", ErrRateLimited))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsMiddleware records request count and latency per route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		endpoint := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		durationMs := float64(time.Since(start).Microseconds()) / 1000
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)
		if wrapped.statusCode >= statusBadRequest {
			metrics.RecordErrorByComponent("http", getErrorType(wrapped.statusCode))
		}
	})
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
