package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/YelzhanWeb/foodorder/internal/adapter/logger"
	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware reuses an incoming X-Request-ID or generates one, and puts it in
// the request context for every log line.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), requestID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := loggerRequestID(r)

			logger.Debug("http_request", fmt.Sprintf("%s %s", r.Method, r.URL.Path), requestID, map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Debug("http_response", "Request completed", requestID, map[string]interface{}{
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

func RecoveryMiddleware(logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic_recovered", "Panic recovered", loggerRequestID(r), nil, fmt.Errorf("%v", err))
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{
						Message: "internal server error",
						Error:   domain.KindInternal,
						Code:    string(domain.KindInternal),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// limiterIdle is how long a client may stay silent before its bucket is dropped.
const limiterIdle = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors keeps one token bucket per client and forgets clients idle for longer
// than idle. Sweeps run inline at most once per idle period.
type visitors struct {
	mu        sync.Mutex
	perSecond rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	byIP      map[string]*visitor
}

func newVisitors(perSecond float64, burst int, idle time.Duration, now func() time.Time) *visitors {
	return &visitors{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		idle:      idle,
		now:       now,
		lastSweep: now(),
		byIP:      make(map[string]*visitor),
	}
}

func (v *visitors) allow(ip string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastSweep) >= v.idle {
		for key, vis := range v.byIP {
			if now.Sub(vis.lastSeen) >= v.idle {
				delete(v.byIP, key)
			}
		}
		v.lastSweep = now
	}

	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.perSecond, v.burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = now
	return vis.limiter.AllowN(now, 1)
}

func (v *visitors) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byIP)
}

// RateLimitMiddleware applies a per-IP token bucket.
func RateLimitMiddleware(perSecond float64, burst int) func(http.Handler) http.Handler {
	return rateLimit(newVisitors(perSecond, burst, limiterIdle, time.Now))
}

func rateLimit(v *visitors) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
					Message: "too many requests",
					Error:   domain.KindValidation,
					Code:    "rate_limited",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type userKey struct{}

// AuthMiddleware resolves the bearer token to a user.
func AuthMiddleware(provider interfaces.AuthProvider, rs responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				rs.respondError(w, r, domain.ErrUnauthorized)
				return
			}

			user, err := provider.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				rs.respondError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
		})
	}
}

// RequireStaff rejects callers whose role cannot act on other users' orders.
func RequireStaff(rs responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r)
			if user == nil {
				rs.respondError(w, r, domain.ErrUnauthorized)
				return
			}
			if !user.Role.IsStaff() {
				rs.respondError(w, r, domain.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userKey{}).(*domain.User)
	return user
}

func actor(r *http.Request) domain.Actor {
	user := currentUser(r)
	if user == nil {
		return domain.Actor{}
	}
	return domain.Actor{UserID: user.ID, Role: user.Role}
}

func loggerRequestID(r *http.Request) string {
	return logger.RequestID(r.Context())
}
