package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/errs"
)

func testConfig() *config.CrawlConfig {
	return &config.CrawlConfig{
		UserAgent:         "HuntBot/test",
		UserAgentPool:     []string{"HuntBot/test"},
		TimeoutSeconds:    5,
		RenderTimeoutSecs: 5,
		RetryAfterCapSecs: 120,
		RateLimits: map[string]config.RateLimit{
			"default": {PerSecond: 1000, Burst: 1000},
		},
	}
}

func newTestFetcher() *Fetcher {
	return New(testConfig(), nil, zap.NewNop())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("listing body"))
	}))
	defer srv.Close()

	res, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/jobs", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Body != "listing body" {
		t.Fatalf("unexpected body %q", res.Body)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestFetchClientErrorIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/jobs", Options{})
	if !errs.Is(err, errs.KindHTTPClientError) {
		t.Fatalf("expected http_client_error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("4xx must not retry, got %d attempts", got)
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/jobs", Options{})
	if !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	start := time.Now()
	res, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/jobs", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Body != "ok" {
		t.Fatalf("unexpected body %q", res.Body)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("Retry-After not honored, finished in %v", elapsed)
	}
}

func TestFetchRetryAfterCapped(t *testing.T) {
	f := newTestFetcher()
	f.cfg.RetryAfterCapSecs = 2

	resp := &http.Response{
		Header:  http.Header{"Retry-After": []string{"9999"}},
		Request: httptest.NewRequest(http.MethodGet, "http://acme.test/jobs", nil),
	}
	err := f.rateLimitedError(resp)
	if !errs.Is(err, errs.KindRateLimited) {
		t.Fatalf("expected rate_limited, got %v", err)
	}

	if d := f.retryDelay(err, 0); d != 2*time.Second {
		t.Fatalf("Retry-After should cap at 2s, got %v", d)
	}
}

func TestFetchChangeDetection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("stable content"))
	}))
	defer srv.Close()

	f := newTestFetcher()

	first, err := f.Fetch(context.Background(), srv.URL+"/jobs", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Unchanged {
		t.Fatal("first fetch must not report unchanged")
	}
	if first.Hash == "" {
		t.Fatal("hash missing")
	}

	second, err := f.Fetch(context.Background(), srv.URL+"/jobs", Options{KnownHash: first.Hash})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Unchanged {
		t.Fatal("identical content should report unchanged")
	}
}

func TestFetchRobotsDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher()

	if _, err := f.Fetch(context.Background(), srv.URL+"/private/jobs", Options{}); !errs.Is(err, errs.KindRobotsDenied) {
		t.Fatalf("expected robots_denied, got %v", err)
	}

	// Vendor API endpoints bypass robots.
	if _, err := f.Fetch(context.Background(), srv.URL+"/private/jobs", Options{APIEndpoint: true}); err != nil {
		t.Fatalf("api endpoint should bypass robots, got %v", err)
	}

	// Allowed paths pass.
	if _, err := f.Fetch(context.Background(), srv.URL+"/jobs", Options{}); err != nil {
		t.Fatalf("allowed path should pass, got %v", err)
	}
}

func TestFetchCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestFetcher().Fetch(ctx, srv.URL+"/jobs", Options{})
	if !errs.Is(err, errs.KindCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}
