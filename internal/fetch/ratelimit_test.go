package fetch

import (
	"testing"
	"time"

	"github.com/huntworks/hunt/internal/config"
)

func TestHostKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, out string
	}{
		{"www.Example.com", "example.com"},
		{"boards.greenhouse.io:443", "boards.greenhouse.io"},
		{"  acme.test ", "acme.test"},
	}
	for _, tt := range tests {
		if got := HostKey(tt.in); got != tt.out {
			t.Fatalf("HostKey(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestLimiterBurstThenSteady(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(map[string]config.RateLimit{
		"default": {PerSecond: 2, Burst: 2},
	})

	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	// The burst is spent immediately.
	if d := limiter.reserve("acme.test", ""); d != 0 {
		t.Fatalf("first request should not wait, got %v", d)
	}
	if d := limiter.reserve("acme.test", ""); d != 0 {
		t.Fatalf("second request should not wait, got %v", d)
	}

	// The third waits for one refill interval at 2 rps.
	if d := limiter.reserve("acme.test", ""); d != 500*time.Millisecond {
		t.Fatalf("third request should wait 500ms, got %v", d)
	}

	// After two seconds pass, tokens refill.
	now = now.Add(2 * time.Second)
	if d := limiter.reserve("acme.test", ""); d != 0 {
		t.Fatalf("refilled bucket should not wait, got %v", d)
	}
}

func TestLimiterATSOverride(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(map[string]config.RateLimit{
		"default":    {PerSecond: 1, Burst: 1},
		"greenhouse": {PerSecond: 5, Burst: 10},
	})

	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	// The ATS override grants a larger burst than the host default.
	for i := 0; i < 10; i++ {
		if d := limiter.reserve("boards-api.greenhouse.io", "greenhouse"); d != 0 {
			t.Fatalf("request %d should ride the greenhouse burst, got wait %v", i, d)
		}
	}

	if d := limiter.reserve("unknown.example", ""); d != 0 {
		t.Fatalf("first default request should not wait, got %v", d)
	}
	if d := limiter.reserve("unknown.example", ""); d != time.Second {
		t.Fatalf("second default request should wait 1s, got %v", d)
	}
}

func TestLimiterSeparateHosts(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(map[string]config.RateLimit{
		"default": {PerSecond: 1, Burst: 1},
	})
	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	if d := limiter.reserve("a.test", ""); d != 0 {
		t.Fatalf("host a first request waited %v", d)
	}
	if d := limiter.reserve("b.test", ""); d != 0 {
		t.Fatalf("host b should have its own bucket, waited %v", d)
	}
}
