package realip

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func remoteAddrSeen(t *testing.T, trusted []netip.Prefix, peer, realIP string) string {
	t.Helper()
	var seen string
	h := New(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = peer
	if realIP != "" {
		req.Header.Set("X-Real-IP", realIP)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestNew(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		peer    string
		realIP  string
		want    string
	}{
		{"no proxies configured", nil, "203.0.113.5:4000", "198.51.100.1", "203.0.113.5:4000"},
		{"untrusted peer", proxies, "203.0.113.5:4000", "198.51.100.1", "203.0.113.5:4000"},
		{"trusted proxy", proxies, "10.1.2.3:4000", "198.51.100.1", "198.51.100.1"},
		{"trusted proxy without header", proxies, "10.1.2.3:4000", "", "10.1.2.3:4000"},
		{"mapped ipv4 peer", proxies, "[::ffff:10.1.2.3]:4000", "198.51.100.1", "198.51.100.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, remoteAddrSeen(t, tt.trusted, tt.peer, tt.realIP))
		})
	}
}
