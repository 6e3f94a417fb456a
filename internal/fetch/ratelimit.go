package fetch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/utils"
)

// bucket is a token bucket refilled at a steady rate.
type bucket struct {
	tokens float64
	rate   float64
	burst  float64
	last   time.Time
}

// Limiter enforces per-host token buckets. Buckets are process-shared and
// guarded by a short mutex; ATS-type limits override the host default.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limits  map[string]config.RateLimit
	now     func() time.Time
}

func NewLimiter(limits map[string]config.RateLimit) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		limits:  limits,
		now:     time.Now,
	}
}

// HostKey reduces a hostname to its rate-limit key.
func HostKey(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// limitFor picks the configured limit: ATS override first, then default.
func (l *Limiter) limitFor(host, atsType string) config.RateLimit {
	if atsType != "" {
		if lim, ok := l.limits[atsType]; ok {
			return lim
		}
	}
	if lim, ok := l.limits[host]; ok {
		return lim
	}
	if lim, ok := l.limits["default"]; ok {
		return lim
	}
	return config.RateLimit{PerSecond: 1, Burst: 1}
}

// reserve takes a token for host, returning how long the caller must wait
// before issuing the request.
func (l *Limiter) reserve(host, atsType string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := HostKey(host)
	b, ok := l.buckets[key]
	if !ok {
		lim := l.limitFor(key, atsType)
		b = &bucket{
			tokens: float64(lim.Burst),
			rate:   lim.PerSecond,
			burst:  float64(lim.Burst),
			last:   l.now(),
		}
		l.buckets[key] = b
	}

	now := l.now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.last = now

	b.tokens--
	if b.tokens >= 0 {
		return 0
	}
	return time.Duration(-b.tokens / b.rate * float64(time.Second))
}

// Wait blocks until a request to host is allowed or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context, host, atsType string) error {
	return utils.WaitFor(ctx, l.reserve(host, atsType))
}
