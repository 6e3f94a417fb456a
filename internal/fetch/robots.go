package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const robotsTTL = 24 * time.Hour

type robotsEntry struct {
	group     *robotstxt.Group
	fetchedAt time.Time
}

// RobotsCache fetches robots.txt once per host and caches the body for a day.
// When a redis client is provided, the raw body is shared across processes;
// the parsed group is always cached in memory.
type RobotsCache struct {
	client    *http.Client
	rdb       *redis.Client
	userAgent string
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]*robotsEntry
	now     func() time.Time
}

func NewRobotsCache(client *http.Client, rdb *redis.Client, userAgent string, logger *zap.Logger) *RobotsCache {
	return &RobotsCache{
		client:    client,
		rdb:       rdb,
		userAgent: userAgent,
		logger:    logger,
		entries:   make(map[string]*robotsEntry),
		now:       time.Now,
	}
}

// Allowed reports whether the user agent may fetch the URL. Missing or
// unreachable robots.txt allows everything.
func (r *RobotsCache) Allowed(ctx context.Context, u *url.URL) bool {
	group, err := r.group(ctx, u)
	if err != nil {
		r.logger.Debug("robots.txt unavailable", zap.String("host", u.Host), zap.Error(err))
		return true
	}
	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

func (r *RobotsCache) group(ctx context.Context, u *url.URL) (*robotstxt.Group, error) {
	host := HostKey(u.Host)

	r.mu.Lock()
	entry, ok := r.entries[host]
	r.mu.Unlock()
	if ok && r.now().Sub(entry.fetchedAt) < robotsTTL {
		return entry.group, nil
	}

	body, err := r.fetchBody(ctx, u.Scheme, u.Host)
	if err != nil {
		return nil, err
	}

	var group *robotstxt.Group
	if body != nil {
		data, err := robotstxt.FromBytes(body)
		if err != nil {
			return nil, fmt.Errorf("parse robots.txt for %s: %w", host, err)
		}
		group = data.FindGroup(r.userAgent)
	}

	r.mu.Lock()
	r.entries[host] = &robotsEntry{group: group, fetchedAt: r.now()}
	r.mu.Unlock()

	return group, nil
}

// fetchBody returns the robots.txt body, nil when the host has none.
func (r *RobotsCache) fetchBody(ctx context.Context, scheme, host string) ([]byte, error) {
	cacheKey := "robots:" + HostKey(host)

	if r.rdb != nil {
		cached, err := r.rdb.Get(ctx, cacheKey).Bytes()
		if err == nil {
			return cached, nil
		}
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, err
	}

	if r.rdb != nil {
		if err := r.rdb.Set(ctx, cacheKey, body, robotsTTL).Err(); err != nil {
			r.logger.Debug("caching robots.txt in redis failed", zap.Error(err))
		}
	}

	return body, nil
}
