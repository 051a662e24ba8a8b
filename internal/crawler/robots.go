package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	defaultRobotsTTL = 30 * time.Minute

	// robotsFailureTTL bounds how long a failed lookup is remembered.
	robotsFailureTTL = 5 * time.Minute
)

// RobotsPolicy evaluates robots.txt rules, caching them per host.
//
// Lookups fail open: when robots.txt cannot be fetched or parsed the address
// is allowed.
type RobotsPolicy struct {
	client    *http.Client
	userAgent string
	guard     *ConnectivityGuard
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]robotsEntry
}

// robotsEntry is a cached lookup. A failed lookup is cached with err set so
// an unreachable host is not asked again on every descent.
type robotsEntry struct {
	fetched time.Time
	rules   *robotstxt.RobotsData
	err     error
}

func (e robotsEntry) fresh(ttl time.Duration) bool {
	if e.err != nil {
		ttl = min(ttl, robotsFailureTTL)
	}
	return time.Since(e.fetched) < ttl
}

// NewRobotsPolicy creates a RobotsPolicy. The guard is consulted before each
// robots.txt request; it may be nil.
func NewRobotsPolicy(client *http.Client, userAgent string, guard *ConnectivityGuard) *RobotsPolicy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		guard:     guard,
		ttl:       defaultRobotsTTL,
		cache:     make(map[string]robotsEntry),
	}
}

// Allowed reports whether the address may be fetched.
func (p *RobotsPolicy) Allowed(ctx context.Context, address string) bool {
	if p == nil {
		return true
	}
	target, err := url.Parse(address)
	if err != nil || !target.IsAbs() {
		return false
	}

	rules, err := p.rules(ctx, target)
	if err != nil {
		return true
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	return rules.TestAgent(path, p.userAgent)
}

func (p *RobotsPolicy) rules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	key := strings.ToLower(target.Scheme + "://" + target.Host)

	p.mu.RLock()
	entry, ok := p.cache[key]
	p.mu.RUnlock()
	if ok && entry.fresh(p.ttl) {
		return entry.rules, entry.err
	}

	if err := p.guard.EnsureOnline(ctx); err != nil {
		return nil, err
	}

	data, err := p.fetch(ctx, target)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = robotsEntry{fetched: time.Now(), rules: data, err: err}
	p.mu.Unlock()

	return data, err
}

func (p *RobotsPolicy) fetch(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.Scheme+"://"+target.Host+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRobotsUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only

	// FromResponse maps 4xx to allow-all and 5xx to disallow-all. A broken
	// server should not block the crawl, so 5xx is treated as unavailable.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrRobotsUnavailable, resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRobotsUnavailable, err)
	}
	return data, nil
}
