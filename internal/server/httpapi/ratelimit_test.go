package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weightlog/weightlog/internal/logging"
)

func TestParseProxies(t *testing.T) {
	prefixes, invalid := ParseProxies([]string{"10.0.0.0/8", " 172.18.0.5 ", "::1", "10.1.2.3/16", "proxy"})

	var got []string
	for _, p := range prefixes {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{"10.0.0.0/8", "172.18.0.5/32", "::1/128", "10.1.0.0/16"}, got)
	assert.Equal(t, []string{"proxy"}, invalid)
}

func TestRateLimiter_ClientKey(t *testing.T) {
	proxies, _ := ParseProxies([]string{"172.16.0.0/12", "127.0.0.1"})
	rl := NewRateLimiter(1, 1, proxies, logging.Nop{})

	tests := []struct {
		name   string
		remote string
		hdr    map[string]string
		want   string
	}{
		{name: "direct", remote: "203.0.113.7:5000", want: "203.0.113.7"},
		{
			name:   "untrusted peer ignores headers",
			remote: "203.0.113.7:5000",
			hdr:    map[string]string{"X-Forwarded-For": "198.51.100.9", "X-Real-IP": "198.51.100.9"},
			want:   "203.0.113.7",
		},
		{
			name:   "forwarded by proxy",
			remote: "172.18.0.5:40000",
			hdr:    map[string]string{"X-Forwarded-For": "198.51.100.9"},
			want:   "198.51.100.9",
		},
		{
			name:   "spoofed hop left of real client",
			remote: "172.18.0.5:40000",
			hdr:    map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.9, 172.18.0.9"},
			want:   "198.51.100.9",
		},
		{
			name:   "real ip header",
			remote: "127.0.0.1:40000",
			hdr:    map[string]string{"X-Real-IP": "198.51.100.10"},
			want:   "198.51.100.10",
		},
		{
			name:   "garbage header falls back to peer",
			remote: "172.18.0.5:40000",
			hdr:    map[string]string{"X-Forwarded-For": "unknown"},
			want:   "172.18.0.5",
		},
		{name: "proxy without headers", remote: "172.18.0.5:40000", want: "172.18.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/token", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.hdr {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, rl.clientKey(req))
		})
	}
}
