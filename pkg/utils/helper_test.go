package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.10"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		xff     string
		realIP  string
		trusted bool
		want    string
	}{
		{name: "untrusted peer ignores headers", remote: "203.0.113.7:4000", xff: "1.2.3.4", realIP: "5.6.7.8", trusted: true, want: "203.0.113.7"},
		{name: "no trusted proxies configured", remote: "10.0.0.1:4000", xff: "1.2.3.4", want: "10.0.0.1"},
		{name: "trusted peer forwards client", remote: "10.0.0.1:4000", xff: "1.2.3.4", trusted: true, want: "1.2.3.4"},
		{name: "spoofed leftmost hop skipped", remote: "10.0.0.1:4000", xff: "9.9.9.9, 1.2.3.4", trusted: true, want: "1.2.3.4"},
		{name: "chain of trusted proxies", remote: "192.0.2.10:80", xff: "1.2.3.4, 10.4.4.4", trusted: true, want: "1.2.3.4"},
		{name: "garbage hop stops the walk", remote: "10.0.0.1:4000", xff: "1.2.3.4, nonsense", trusted: true, want: "10.0.0.1"},
		{name: "x-real-ip from trusted peer", remote: "10.0.0.1:4000", realIP: "1.2.3.4", trusted: true, want: "1.2.3.4"},
		{name: "peer without port", remote: "203.0.113.7", want: "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			proxies := trusted
			if !tt.trusted {
				proxies = nil
			}
			assert.Equal(t, tt.want, ResolveClientIP(req, proxies))
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "203.0.113.7", ClientIP(req))

	req = req.WithContext(SetClientIP(req.Context(), "1.2.3.4"))
	assert.Equal(t, "1.2.3.4", ClientIP(req))
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{"10.1.2.3/8", "192.0.2.1", "::1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "10.0.0.0/8", got[0].String())
	assert.Equal(t, "192.0.2.1/32", got[1].String())
	assert.Equal(t, "::1/128", got[2].String())

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}
