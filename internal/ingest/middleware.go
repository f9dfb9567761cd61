package ingest

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/localshare/localshare/internal/metrics"
)

// statusRecorder wraps http.ResponseWriter to capture the status code
// written by the inner handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// instrumentHandler wraps an HTTP handler with Prometheus request
// metrics. If m is nil the handler is returned unchanged.
func instrumentHandler(next http.Handler, m *metrics.Metrics) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()
		path := sanitizePath(r.URL.Path)
		status := strconv.Itoa(rec.status)

		m.IngestRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.IngestRequestDurationSeconds.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// sanitizePath replaces the dynamic transfer id segment of the cancel
// route with a fixed label to prevent high cardinality in Prometheus.
func sanitizePath(path string) string {
	if strings.HasPrefix(path, "/api/localshare/cancel/") {
		return "/api/localshare/cancel/:id"
	}
	return path
}

// transferRateLimiter caps how often a single remote address can open
// new send-file/send-text requests, keyed by IP so one misbehaving
// peer can't starve the ingest server's accept loop for every other
// peer on the LAN.
type transferRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newTransferRateLimiter(r rate.Limit, burst int) *transferRateLimiter {
	return &transferRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		burst:    burst,
	}
}

func (rl *transferRateLimiter) allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	rl.mu.Lock()
	lim, ok := rl.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rl.r, rl.burst)
		rl.limiters[host] = lim
	}
	rl.mu.Unlock()

	return lim.Allow()
}

// rateLimitMiddleware rejects requests from a remote address exceeding
// rl's rate with 429 Too Many Requests. A nil rl disables the check.
func rateLimitMiddleware(next http.Handler, rl *transferRateLimiter) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			http.Error(w, "too many transfer requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
