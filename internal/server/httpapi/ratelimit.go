package httpapi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/weightlog/weightlog/internal/logging"
)

// maxTrackedClients bounds the limiter map; it is reset when exceeded.
const maxTrackedClients = 10000

// RateLimiter throttles requests per client address. Requests relayed by a
// trusted proxy are keyed by the client address the proxy reports.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	proxies  []netip.Prefix
	logger   logging.Logger
}

func NewRateLimiter(r rate.Limit, burst int, proxies []netip.Prefix, l logging.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
		proxies:  proxies,
		logger:   l,
	}
}

// ParseProxies reads addresses and CIDR prefixes. Invalid entries are
// returned separately.
func ParseProxies(list []string) ([]netip.Prefix, []string) {
	var prefixes []netip.Prefix
	var invalid []string
	for _, s := range list {
		s = strings.TrimSpace(s)
		if p, err := netip.ParsePrefix(s); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		invalid = append(invalid, s)
	}
	return prefixes, invalid
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

func (rl *RateLimiter) trusted(a netip.Addr) bool {
	a = a.Unmap()
	for _, p := range rl.proxies {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// clientKey returns the peer address, or for a trusted peer the right-most
// untrusted X-Forwarded-For hop, then X-Real-IP.
func (rl *RateLimiter) clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !rl.trusted(peer) {
		return host
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := ""
		for i := len(hops) - 1; i >= 0; i-- {
			a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = a.Unmap().String()
			if !rl.trusted(a) {
				break
			}
		}
		if client != "" {
			return client
		}
	}

	if a, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return a.Unmap().String()
	}
	return host
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.clientKey(r)
		if !rl.limiter(key).Allow() {
			rl.logger.Warn(r.Context(), "rate limit exceeded", "client", key, "path", r.URL.Path)
			writeDetail(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
