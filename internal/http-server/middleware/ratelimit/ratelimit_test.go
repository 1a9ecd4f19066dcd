package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(requestsPerMin, burst int) (*Limiter, *time.Time) {
	l := New(requestsPerMin, burst, slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllow(t *testing.T) {
	l, now := newTestLimiter(60, 2)

	ok, _ := l.Allow("10.0.0.1")
	require.True(t, ok)
	ok, _ = l.Allow("10.0.0.1")
	require.True(t, ok)

	ok, delay := l.Allow("10.0.0.1")
	require.False(t, ok)
	assert.Equal(t, time.Second, delay)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok, "clients are limited independently")

	*now = now.Add(time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok, "one token refills per second")
}

func TestAllow_Disabled(t *testing.T) {
	l, _ := newTestLimiter(0, 1)
	for i := 0; i < 100; i++ {
		ok, _ := l.Allow("10.0.0.1")
		require.True(t, ok)
	}
}

func TestSweep(t *testing.T) {
	l, now := newTestLimiter(60, 1)
	l.Allow("10.0.0.1")
	*now = now.Add(2 * idleAfter)
	l.Allow("10.0.0.2")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.clients, "10.0.0.1")
	assert.Contains(t, l.clients, "10.0.0.2")
}

func TestHandler(t *testing.T) {
	l, _ := newTestLimiter(1, 1)
	h := l.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 60, retryAfter, 1)
	assert.Contains(t, rec.Body.String(), "Too many requests")
}
