package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/josh-kwaku/chatledger/internal/handler"
	"github.com/josh-kwaku/chatledger/internal/logging"
)

// Buckets idle longer than this are dropped on the next sweep.
const bucketIdleTTL = 5 * time.Minute

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	perSecond rate.Limit
	burst     int
	lastSweep time.Time
}

func (s *limiterSet) allow(client string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > bucketIdleTTL {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > bucketIdleTTL {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[client]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(s.perSecond, s.burst)}
		s.buckets[client] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// RateLimit applies a token bucket per client IP. A non-positive rate
// disables limiting.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	set := &limiterSet{
		buckets:   make(map[string]*clientBucket),
		perSecond: rate.Limit(perSecond),
		burst:     max(burst, 1),
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			if !set.allow(client, time.Now()) {
				logging.FromContext(r.Context()).Warn("rate limit exceeded", "client", client)
				handler.RespondAppError(w, handler.ErrRateLimited, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
