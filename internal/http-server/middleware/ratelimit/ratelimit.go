package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unistuhelper/lib/api/response"
	"unistuhelper/lib/sl"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"
)

// idleAfter is how long a client's limiter is kept without traffic.
const idleAfter = 10 * time.Minute

type client struct {
	limiter *rate.Limiter
	seen    time.Time
}

// Limiter throttles requests per client address with a token bucket.
type Limiter struct {
	limit     rate.Limit
	burst     int
	log       *slog.Logger
	now       func() time.Time
	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

// New allows requestsPerMin per client, with bursts up to burst.
// A non-positive requestsPerMin disables limiting.
func New(requestsPerMin, burst int, log *slog.Logger) *Limiter {
	limit := rate.Inf
	if requestsPerMin > 0 {
		limit = rate.Limit(float64(requestsPerMin) / 60)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limit:   limit,
		burst:   burst,
		log:     log.With(sl.Module("middleware.ratelimit")),
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow spends one token of key's bucket.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.seen = now

	reservation := c.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	return false, delay
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleAfter {
		return
	}
	l.lastSweep = now
	for key, c := range l.clients {
		if now.Sub(c.seen) > idleAfter {
			delete(l.clients, key)
		}
	}
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		ok, delay := l.Allow(key)
		if !ok {
			l.log.With(
				slog.String("remote_addr", key),
				slog.String("path", r.URL.Path),
			).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, response.Error("Too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
