// Package fetch retrieves listing pages over plain HTTP or a headless-browser
// collaborator, with per-host rate limits, retries, robots.txt handling, and
// content hashing for change detection.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/errs"
	"github.com/huntworks/hunt/internal/utils"
)

const (
	maxAttempts    = 3
	backoffBase    = 500 * time.Millisecond
	backoffFactor  = 2
	maxBodyBytes   = 8 << 20
	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptJSON     = "application/json"
	acceptLanguage = "en-US,en;q=0.5"
)

// Options control a single fetch.
type Options struct {
	// ATSType selects the rate-limit override. It does not affect the
	// robots.txt check; see APIEndpoint.
	ATSType string
	// APIEndpoint marks a published vendor API; robots.txt is not consulted.
	APIEndpoint bool
	// Render routes the fetch through the headless-browser service.
	Render bool
	// WaitSelector, when rendering, waits for the selector instead of network idle.
	WaitSelector string
	// KnownHash is the digest of the most recent snapshot for the URL.
	// A matching digest short-circuits with Unchanged=true.
	KnownHash string
	// Method and Body allow POST-based APIs (Workday search).
	Method string
	Body   string
}

// Result is the outcome of a successful fetch.
type Result struct {
	Body       string
	StatusCode int
	Headers    http.Header
	Rendered   bool
	Hash       string
	Unchanged  bool
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	limiter  *Limiter
	robots   *RobotsCache
	renderer *Renderer
	cfg      *config.CrawlConfig
	logger   *zap.Logger
	uaIndex  atomic.Uint64
}

func New(cfg *config.CrawlConfig, rdb *redis.Client, logger *zap.Logger) *Fetcher {
	client := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	return &Fetcher{
		client:   client,
		limiter:  NewLimiter(cfg.RateLimits),
		robots:   NewRobotsCache(client, rdb, cfg.UserAgent, logger),
		renderer: NewRenderer(cfg, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

// userAgent rotates through the configured pool.
func (f *Fetcher) userAgent() string {
	pool := f.cfg.UserAgentPool
	if len(pool) == 0 {
		return f.cfg.UserAgent
	}
	return pool[f.uaIndex.Add(1)%uint64(len(pool))]
}

// Hash returns the content digest used for change detection.
func Hash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Fetch retrieves the URL under the fetcher's policy. Fatal failures
// (robots_denied, not_found, http_client_error) return without retry.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, errs.Wrap(errs.KindInvalidArgument, "invalid url "+rawURL, err)
	}

	if !opts.APIEndpoint && !f.robots.Allowed(ctx, u) {
		f.logger.Warn("blocked by robots.txt", zap.String("url", rawURL))
		return nil, errs.New(errs.KindRobotsDenied, rawURL)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx, u.Host, opts.ATSType); err != nil {
			return nil, errs.Wrap(errs.KindCancelled, "rate limit wait", err)
		}

		res, err := f.fetchOnce(ctx, rawURL, opts)
		if err == nil {
			return f.finish(res, opts), nil
		}

		lastErr = err
		if !errs.Retryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.KindCancelled, rawURL, ctx.Err())
		}

		delay := f.retryDelay(err, attempt)
		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := utils.WaitFor(ctx, delay); err != nil {
			return nil, errs.Wrap(errs.KindCancelled, rawURL, err)
		}
	}

	return nil, lastErr
}

// retryDelay applies exponential backoff with full jitter; 429 responses that
// carried a usable Retry-After override it.
func (f *Fetcher) retryDelay(err error, attempt int) time.Duration {
	var re *retryAfterError
	if errors.As(err, &re) && re.delay > 0 {
		return re.delay
	}

	backoff := backoffBase
	for i := 0; i < attempt; i++ {
		backoff *= backoffFactor
	}
	return time.Duration(rand.Float64() * float64(backoff))
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	if opts.Render {
		return f.renderer.Render(ctx, rawURL, opts.WaitSelector)
	}

	method := http.MethodGet
	var body io.Reader
	if opts.Method != "" {
		method = opts.Method
	}
	if opts.Body != "" {
		body = strings.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept-Language", acceptLanguage)
	if opts.APIEndpoint {
		req.Header.Set("Accept", acceptJSON)
	} else {
		req.Header.Set("Accept", acceptHTML)
	}
	if opts.Body != "" {
		req.Header.Set("Content-Type", acceptJSON)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.KindCancelled, rawURL, ctx.Err())
		}
		return nil, errs.Wrap(errs.KindTransport, rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, f.rateLimitedError(resp)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.New(errs.KindNotFound, rawURL)
	case resp.StatusCode >= 500:
		return nil, errs.New(errs.KindHTTPServerError, fmt.Sprintf("%s: status %d", rawURL, resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, errs.New(errs.KindHTTPClientError, fmt.Sprintf("%s: status %d", rawURL, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, "read body", err)
	}

	return &Result{
		Body:       string(data),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
	}, nil
}

func (f *Fetcher) finish(res *Result, opts Options) *Result {
	res.Hash = Hash(res.Body)
	res.Unchanged = opts.KnownHash != "" && res.Hash == opts.KnownHash
	return res
}

// rateLimitedError honors Retry-After up to the configured cap; absent or
// oversized values fall back to standard backoff.
func (f *Fetcher) rateLimitedError(resp *http.Response) error {
	err := &retryAfterError{}
	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if secs, parseErr := strconv.Atoi(strings.TrimSpace(raw)); parseErr == nil && secs > 0 {
			limit := time.Duration(f.cfg.RetryAfterCapSecs) * time.Second
			d := time.Duration(secs) * time.Second
			if d > limit {
				d = limit
			}
			err.delay = d
		}
	}
	return errs.Wrap(errs.KindRateLimited, resp.Request.URL.String(), err)
}

// retryAfterError carries a server-mandated delay through the error chain.
type retryAfterError struct {
	delay time.Duration
}

func (e *retryAfterError) Error() string {
	if e.delay > 0 {
		return "rate limited, retry after " + e.delay.String()
	}
	return "rate limited"
}
